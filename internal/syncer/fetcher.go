package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// PageLister reads one page of an upstream collection.
type PageLister interface {
	ListPage(ctx context.Context, entity enums.SyncEntity, page, perPage int, params url.Values) (zoho.Page, error)
}

// FetcherParams wires a Fetcher.
type FetcherParams struct {
	Client     PageLister
	PerPage    int
	MaxRecords int
	Logger     *logger.Logger
}

// Fetcher walks every page of an entity until the upstream reports no more
// pages, a page fails, or the per-run record ceiling is hit.
type Fetcher struct {
	client     PageLister
	perPage    int
	maxRecords int
	logg       *logger.Logger
}

// FetchResult is the merged outcome of a paginated fetch. Records holds
// everything fetched before Err, if any.
type FetchResult struct {
	Records   []json.RawMessage
	Pages     int
	Truncated bool
	Err       error
}

func NewFetcher(p FetcherParams) (*Fetcher, error) {
	if p.Client == nil {
		return nil, errors.New("page lister required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.PerPage <= 0 || p.PerPage > 200 {
		return nil, errors.New("per page must be between 1 and 200")
	}
	if p.MaxRecords <= 0 {
		return nil, errors.New("max records must be positive")
	}
	return &Fetcher{
		client:     p.Client,
		perPage:    p.PerPage,
		maxRecords: p.MaxRecords,
		logg:       p.Logger,
	}, nil
}

// FetchAll fetches pages sequentially starting at page 1.
func (f *Fetcher) FetchAll(ctx context.Context, entity enums.SyncEntity, params url.Values) FetchResult {
	var result FetchResult
	for page := 1; ; page++ {
		pageCtx := f.logg.WithField(ctx, "page", page)

		res, err := f.client.ListPage(pageCtx, entity, page, f.perPage, params)
		if err != nil {
			f.logg.Error(pageCtx, "page fetch failed, keeping partial results", err)
			result.Err = err
			return result
		}
		result.Pages++
		result.Records = append(result.Records, res.Records...)

		if len(result.Records) >= f.maxRecords {
			if len(result.Records) > f.maxRecords || res.HasMorePage {
				result.Truncated = true
				f.logg.Warn(f.logg.WithFields(pageCtx, map[string]any{
					"max_records": f.maxRecords,
					"fetched":     len(result.Records),
				}), "record ceiling reached, truncating fetch")
			}
			result.Records = result.Records[:f.maxRecords]
			return result
		}
		if !res.HasMorePage {
			return result
		}
		if len(res.Records) == 0 {
			f.logg.Warn(pageCtx, "empty page reported more pages, stopping")
			return result
		}
	}
}
