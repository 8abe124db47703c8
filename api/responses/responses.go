package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteResults answers a sync trigger or status call. ok selects the
// top-level status; the HTTP status is httpStatus either way.
func WriteResults(w http.ResponseWriter, httpStatus int, ok bool, results any) {
	status := StatusSuccess
	if !ok {
		status = StatusError
	}
	writeJSON(w, httpStatus, types.StatusEnvelope{
		Status:    status,
		Results:   results,
		Timestamp: time.Now().UTC(),
	})
}

// WriteStatusError answers a sync trigger or status call that could not run.
func WriteStatusError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed, meta := classify(err)
	logError(ctx, logg, err, typed)
	writeJSON(w, meta.HTTPStatus, types.StatusEnvelope{
		Status:    StatusError,
		Error:     publicMessage(typed, meta),
		Timestamp: time.Now().UTC(),
	})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed, meta := classify(err)

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: publicMessage(typed, meta),
		},
	}
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	logError(ctx, logg, err, typed)
	writeJSON(w, meta.HTTPStatus, payload)
}

func classify(err error) (*pkgerrors.Error, pkgerrors.Metadata) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	return typed, pkgerrors.MetadataFor(typed.Code())
}

func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeRateLimit,
		pkgerrors.CodeCircuitOpen:
		if m := typed.Message(); m != "" {
			return m
		}
	}
	return meta.PublicMessage
}

func logError(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error) {
	if logg == nil {
		return
	}
	if err == nil {
		err = typed
	}
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).LogFields())
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
