// Package handlers exposes the document engine over JSON HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/logger"
	"github.com/diewo77/go-facture/internal/services"
	"go.uber.org/zap"
)

// retryAttempts bounds how often a conflicting mutation is replayed.
const retryAttempts = 3

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *services.ValidationError
		se *services.StateError
		nf *services.NotFoundError
		ce *services.ConcurrencyError
	)
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.As(err, &nf):
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"entity": nf.Entity, "id": nf.ID})
	case errors.As(err, &se):
		httpx.JSONError(w, http.StatusConflict, "invalid_state", map[string]string{
			"kind": string(se.Kind), "status": string(se.Status), "action": se.Action,
		})
	case errors.Is(err, services.ErrClientHasDocuments):
		httpx.JSONError(w, http.StatusConflict, "client_has_documents", nil)
	case errors.As(err, &ce):
		logger.FromContext(r.Context()).Warn("concurrent update", zap.String("op", ce.Op), zap.Error(err))
		httpx.JSONError(w, http.StatusServiceUnavailable, "concurrent_update", nil)
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
