package zoho

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/ratelimit"
)

type fakeGate struct {
	mu         sync.Mutex
	acquireErr error
	acquired   int
	released   []bool
}

func (g *fakeGate) Acquire(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.acquireErr != nil {
		return g.acquireErr
	}
	g.acquired++
	return nil
}

func (g *fakeGate) Release(success bool, _ time.Duration) {
	g.mu.Lock()
	g.released = append(g.released, success)
	g.mu.Unlock()
}

type fakeTokens struct {
	mu          sync.Mutex
	tokens      []string
	calls       int
	invalidated int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := f.tokens[min(f.invalidated, len(f.tokens)-1)]
	f.calls++
	return tok, nil
}

func (f *fakeTokens) Invalidate(context.Context) {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
}

func newTestClient(t *testing.T, srv *httptest.Server, gate *fakeGate, tokens *fakeTokens) *Client {
	t.Helper()
	client, err := NewClient(ClientParams{
		BaseURL:        srv.URL + "/inventory/v1",
		OrganizationID: "org-1",
		HTTPClient:     srv.Client(),
		Gate:           gate,
		Tokens:         tokens,
		Logger:         logger.Nop(),
		MaxRetries:     2,
		RequestTimeout: time.Second,
		BackoffBase:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientValidatesParams(t *testing.T) {
	base := ClientParams{
		BaseURL:        "https://example.test",
		OrganizationID: "org",
		Gate:           &fakeGate{},
		Tokens:         &fakeTokens{tokens: []string{"t"}},
		Logger:         logger.Nop(),
	}
	mutate := []func(p *ClientParams){
		func(p *ClientParams) { p.Logger = nil },
		func(p *ClientParams) { p.Gate = nil },
		func(p *ClientParams) { p.Tokens = nil },
		func(p *ClientParams) { p.BaseURL = " " },
		func(p *ClientParams) { p.OrganizationID = "" },
	}
	for i, m := range mutate {
		p := base
		m(&p)
		if _, err := NewClient(p); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestListPageDecodesRecordsAndPageContext(t *testing.T) {
	var gotQuery url.Values
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"code":0,"message":"success","contacts":[{"contact_id":"1"},{"contact_id":"2"}],"page_context":{"page":2,"has_more_page":true}}`)
	}))
	defer srv.Close()

	gate := &fakeGate{}
	client := newTestClient(t, srv, gate, &fakeTokens{tokens: []string{"tok-1"}})

	params := url.Values{"last_modified_time": {"2026-01-01T00:00:00+0000"}}
	page, err := client.ListPage(context.Background(), enums.SyncEntityCustomers, 2, 40, params)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}

	if len(page.Records) != 2 || !page.HasMorePage || page.Number != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if gotPath != "/inventory/v1/contacts" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Zoho-oauthtoken tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	for key, want := range map[string]string{
		"organization_id":    "org-1",
		"page":               "2",
		"per_page":           "40",
		"last_modified_time": "2026-01-01T00:00:00+0000",
	} {
		if got := gotQuery.Get(key); got != want {
			t.Fatalf("query %s: want %q got %q", key, want, got)
		}
	}
	if gate.acquired != 1 || len(gate.released) != 1 || !gate.released[0] {
		t.Fatalf("expected one successful gate round trip, got acquired=%d released=%v", gate.acquired, gate.released)
	}
	if len(params) != 1 {
		t.Fatalf("caller params must not be mutated, got %v", params)
	}
}

func TestListPageRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"code":0,"items":[{"item_id":"9"}],"page_context":{"has_more_page":false}}`)
	}))
	defer srv.Close()

	gate := &fakeGate{}
	client := newTestClient(t, srv, gate, &fakeTokens{tokens: []string{"tok"}})

	page, err := client.ListPage(context.Background(), enums.SyncEntityItems, 1, 200, nil)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Records) != 1 || page.HasMorePage {
		t.Fatalf("unexpected page %+v", page)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	want := []bool{true, true, true}
	for i := range want {
		if gate.released[i] != want[i] {
			t.Fatalf("release %d: want %v got %v", i, want[i], gate.released[i])
		}
	}
}

func TestListPageGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, &fakeGate{}, &fakeTokens{tokens: []string{"tok"}})
	_, err := client.ListPage(context.Background(), enums.SyncEntityItems, 1, 200, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", calls.Load())
	}
}

func TestRateLimitDoesNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gate, err := ratelimit.New(ratelimit.Options{
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxConcurrent:     2,
		CircuitBreaker:    true,
		FailureThreshold:  2,
		RecoveryTime:      time.Hour,
	})
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	client, err := NewClient(ClientParams{
		BaseURL:        srv.URL + "/inventory/v1",
		OrganizationID: "org-1",
		HTTPClient:     srv.Client(),
		Gate:           gate,
		Tokens:         &fakeTokens{tokens: []string{"tok"}},
		Logger:         logger.Nop(),
		MaxRetries:     2,
		RequestTimeout: time.Second,
		BackoffBase:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := client.ListPage(context.Background(), enums.SyncEntityItems, 1, 200, nil)
		if !pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) {
			t.Fatalf("call %d: expected rate limit error, got %v", i, err)
		}
	}
	if calls.Load() != 6 {
		t.Fatalf("expected every attempt to reach upstream, got %d", calls.Load())
	}
	if got := gate.Stats().Breaker; got != ratelimit.BreakerClosed {
		t.Fatalf("expected breaker to stay closed under throttling, got %s", got)
	}
}

func TestUnauthorizedInvalidatesTokenAndRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Zoho-oauthtoken fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":57,"message":"You are not authorized to perform this operation"}`)
			return
		}
		fmt.Fprint(w, `{"code":0,"salesorders":[],"page_context":{"has_more_page":false}}`)
	}))
	defer srv.Close()

	tokens := &fakeTokens{tokens: []string{"stale", "fresh"}}
	client := newTestClient(t, srv, &fakeGate{}, tokens)

	if _, err := client.ListPage(context.Background(), enums.SyncEntityOrders, 1, 200, nil); err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if tokens.invalidated != 1 {
		t.Fatalf("expected token to be invalidated once, got %d", tokens.invalidated)
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"code":1,"message":"upstream down"}`)
	}))
	defer srv.Close()

	gate := &fakeGate{}
	client := newTestClient(t, srv, gate, &fakeTokens{tokens: []string{"tok"}})
	_, err := client.ListPage(context.Background(), enums.SyncEntityInvoices, 1, 200, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retry on 5xx, got %d calls", calls.Load())
	}
	if len(gate.released) != 1 || gate.released[0] {
		t.Fatalf("expected failed release, got %v", gate.released)
	}
}

func TestOpenCircuitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	breakerErr := pkgerrors.New(pkgerrors.CodeCircuitOpen, "open")
	client := newTestClient(t, srv, &fakeGate{acquireErr: breakerErr}, &fakeTokens{tokens: []string{"tok"}})
	_, err := client.ListPage(context.Background(), enums.SyncEntityPackages, 1, 200, nil)
	if !errors.Is(err, breakerErr) {
		t.Fatalf("expected breaker error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no upstream call, got %d", calls.Load())
	}
}

func TestNonZeroZohoCodeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":1001,"message":"Invalid organization"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, &fakeGate{}, &fakeTokens{tokens: []string{"tok"}})
	if _, err := client.ListPage(context.Background(), enums.SyncEntityItems, 1, 200, nil); err == nil {
		t.Fatal("expected error for non-zero zoho code")
	}
}

func TestGetReturnsSingleRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory/v1/contacts/999":
			fmt.Fprint(w, `{"code":0,"contact":{"contact_id":"999","company_name":"Acme"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":1002,"message":"Contact does not exist."}`)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, &fakeGate{}, &fakeTokens{tokens: []string{"tok"}})

	raw, err := client.Get(context.Background(), enums.SyncEntityCustomers, "999")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"contact_id":"999","company_name":"Acme"}` {
		t.Fatalf("unexpected record %s", raw)
	}

	_, err = client.Get(context.Background(), enums.SyncEntityCustomers, "404")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := client.Get(context.Background(), enums.SyncEntityCustomers, " "); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := map[string]time.Duration{
		"":                              0,
		"3":                             3 * time.Second,
		"-1":                            0,
		"garbage":                       0,
		"3600":                          maxRetryAfter,
		"Thu, 01 Jan 2026 12:00:10 GMT": 10 * time.Second,
	}
	for in, want := range cases {
		if got := retryAfter(in, now); got != want {
			t.Fatalf("retryAfter(%q): want %v got %v", in, want, got)
		}
	}
}
