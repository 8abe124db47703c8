package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/zoho"
)

// fakeUpstream serves canned pages and single records per entity.
type fakeUpstream struct {
	mu      sync.Mutex
	pages   map[enums.SyncEntity][][]string
	failAt  map[enums.SyncEntity]int
	records map[string]string
	params  map[enums.SyncEntity][]url.Values
	calls   map[enums.SyncEntity]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		pages:   map[enums.SyncEntity][][]string{},
		failAt:  map[enums.SyncEntity]int{},
		records: map[string]string{},
		params:  map[enums.SyncEntity][]url.Values{},
		calls:   map[enums.SyncEntity]int{},
	}
}

func (f *fakeUpstream) setPages(entity enums.SyncEntity, pages ...[]string) {
	f.pages[entity] = pages
}

func (f *fakeUpstream) ListPage(ctx context.Context, entity enums.SyncEntity, page, perPage int, params url.Values) (zoho.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[entity]++
	f.params[entity] = append(f.params[entity], params)

	if at, ok := f.failAt[entity]; ok && at == page {
		return zoho.Page{}, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("page %d unavailable", page))
	}
	pages := f.pages[entity]
	if page > len(pages) {
		return zoho.Page{Number: page}, nil
	}
	out := zoho.Page{Number: page, HasMorePage: page < len(pages)}
	for _, raw := range pages[page-1] {
		out.Records = append(out.Records, json.RawMessage(raw))
	}
	return out, nil
}

func (f *fakeUpstream) Get(ctx context.Context, entity enums.SyncEntity, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.records[string(entity)+"/"+id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found upstream")
	}
	return json.RawMessage(raw), nil
}

func contactPage(start, n int) []string {
	out := make([]string, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, fmt.Sprintf(`{"contact_id":"c-%d","contact_name":"Customer %d"}`, i, i))
	}
	return out
}
