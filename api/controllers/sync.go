package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/zohosync-backend/api/responses"
	"github.com/angelmondragon/zohosync-backend/api/validators"
	"github.com/angelmondragon/zohosync-backend/internal/syncer"
	"github.com/angelmondragon/zohosync-backend/internal/synclog"
	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/pagination"
)

// SyncRunner is the orchestrator surface the trigger endpoints drive.
type SyncRunner interface {
	RunFullSync(ctx context.Context, trigger enums.SyncTrigger) syncer.FullSyncResult
	SyncEntity(ctx context.Context, entity enums.SyncEntity, trigger enums.SyncTrigger) (syncer.EntityResult, error)
	LastSyncStatus(ctx context.Context, staleAfter time.Duration) (map[enums.SyncEntity]syncer.LastRunInfo, error)
}

// SyncLogLister reads pages of log entries for one entity.
type SyncLogLister interface {
	List(ctx context.Context, entity enums.SyncEntity, params pagination.Params) (synclog.ListResult, error)
}

// SyncFull runs every entity. The run outlives a dropped client connection so
// its log entries are always written.
func SyncFull(svc SyncRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := svc.RunFullSync(context.WithoutCancel(r.Context()), enums.SyncTriggerManual)
		ok := len(result.Failed) == 0
		responses.WriteResults(w, statusFor(ok), ok, result)
	}
}

// SyncOne runs a single entity named by the {entity} path segment.
func SyncOne(svc SyncRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := validators.ParseEntityParam(r, "entity")
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SyncEntity(context.WithoutCancel(r.Context()), entity, enums.SyncTriggerManual)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		ok := result.Status == enums.SyncStatusSuccess
		responses.WriteResults(w, statusFor(ok), ok, result)
	}
}

// SyncStatus reports the last run of every entity in sync order.
func SyncStatus(svc SyncRunner, staleAfter time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.LastSyncStatus(r.Context(), staleAfter)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		ordered := make([]syncer.LastRunInfo, 0, len(enums.SyncOrder))
		for _, entity := range enums.SyncOrder {
			ordered = append(ordered, status[entity])
		}
		responses.WriteResults(w, http.StatusOK, true, ordered)
	}
}

// SyncLogs lists log entries for one entity, newest first. Pass the returned
// next_cursor back as ?cursor= to read older entries.
func SyncLogs(logs SyncLogLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := validators.ParseEntityParam(r, "entity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := logs.List(r.Context(), entity, params)
		if err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sync logs")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func statusFor(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
