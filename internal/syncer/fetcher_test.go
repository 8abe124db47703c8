package syncer

import (
	"context"
	"net/url"
	"testing"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

func newTestFetcher(t *testing.T, upstream PageLister, maxRecords int) *Fetcher {
	t.Helper()
	f, err := NewFetcher(FetcherParams{Client: upstream, PerPage: 40, MaxRecords: maxRecords, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f
}

func TestFetchAllMergesPagesUntilNoMore(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.setPages(enums.SyncEntityCustomers, contactPage(0, 40), contactPage(40, 40), contactPage(80, 12))

	res := newTestFetcher(t, upstream, 10000).FetchAll(context.Background(), enums.SyncEntityCustomers, url.Values{})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Records) != 92 || res.Pages != 3 {
		t.Fatalf("expected 92 records over 3 pages, got %d over %d", len(res.Records), res.Pages)
	}
	if res.Truncated {
		t.Fatal("did not expect truncation")
	}
	if upstream.calls[enums.SyncEntityCustomers] != 3 {
		t.Fatalf("expected 3 page calls, got %d", upstream.calls[enums.SyncEntityCustomers])
	}
}

func TestFetchAllKeepsPartialResultsOnPageError(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.setPages(enums.SyncEntityCustomers, contactPage(0, 40), contactPage(40, 40), contactPage(80, 12))
	upstream.failAt[enums.SyncEntityCustomers] = 2

	res := newTestFetcher(t, upstream, 10000).FetchAll(context.Background(), enums.SyncEntityCustomers, nil)
	if res.Err == nil {
		t.Fatal("expected page error")
	}
	if len(res.Records) != 40 || res.Pages != 1 {
		t.Fatalf("expected first page kept, got %d records over %d pages", len(res.Records), res.Pages)
	}
	if upstream.calls[enums.SyncEntityCustomers] != 2 {
		t.Fatalf("expected pagination to halt after the failed page, got %d calls", upstream.calls[enums.SyncEntityCustomers])
	}
}

func TestFetchAllTruncatesAtCeiling(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.setPages(enums.SyncEntityCustomers, contactPage(0, 40), contactPage(40, 40), contactPage(80, 12))

	res := newTestFetcher(t, upstream, 50).FetchAll(context.Background(), enums.SyncEntityCustomers, nil)
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if len(res.Records) != 50 || res.Pages != 2 {
		t.Fatalf("expected 50 records over 2 pages, got %d over %d", len(res.Records), res.Pages)
	}
}

func TestFetchAllExactCeilingOnLastPageIsNotTruncated(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.setPages(enums.SyncEntityCustomers, contactPage(0, 40))

	res := newTestFetcher(t, upstream, 40).FetchAll(context.Background(), enums.SyncEntityCustomers, nil)
	if res.Truncated || len(res.Records) != 40 {
		t.Fatalf("unexpected result truncated=%v records=%d", res.Truncated, len(res.Records))
	}
}

func TestNewFetcherValidatesParams(t *testing.T) {
	if _, err := NewFetcher(FetcherParams{Client: newFakeUpstream(), PerPage: 500, MaxRecords: 1, Logger: logger.Nop()}); err == nil {
		t.Fatal("expected per page error")
	}
	if _, err := NewFetcher(FetcherParams{PerPage: 10, MaxRecords: 1, Logger: logger.Nop()}); err == nil {
		t.Fatal("expected client error")
	}
}
