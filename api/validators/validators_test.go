package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/pagination"
)

func requestWithEntity(value string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/sync/"+value, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("entity", value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseEntityParam(t *testing.T) {
	entity, err := ParseEntityParam(requestWithEntity("Orders"), "entity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity != enums.SyncEntityOrders {
		t.Fatalf("expected orders, got %s", entity)
	}

	_, err = ParseEntityParam(requestWithEntity("vendors"), "entity")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/sync/logs/items?limit=50", nil)
	got, err := ParseQueryInt(r, "limit", 20, 1, 200)
	if err != nil || got != 50 {
		t.Fatalf("expected 50, got %d err %v", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/sync/logs/items", nil)
	if got, _ := ParseQueryInt(r, "limit", 20, 1, 200); got != 20 {
		t.Fatalf("expected default 20, got %d", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/sync/logs/items?limit=500", nil)
	if _, err := ParseQueryInt(r, "limit", 20, 1, 200); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestParsePage(t *testing.T) {
	params, err := ParsePage(httptest.NewRequest(http.MethodGet, "/sync/logs/items", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != pagination.DefaultLimit || params.Cursor != "" {
		t.Fatalf("unexpected defaults %+v", params)
	}

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/sync/logs/items?cursor=abc", nil))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/sync/logs/items?limit=500", nil))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}
