// Package handler serves the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/pricing"
	"github.com/selpix/selpix/internal/query"
	"github.com/selpix/selpix/internal/schema"
	"github.com/selpix/selpix/internal/store"
)

// errBadParam marks malformed path or query-string values.
var errBadParam = errors.New("bad parameter")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail answers err with the status its kind calls for. Unexpected errors
// are logged and reported as action failures without internal detail.
func fail(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	var verrs schema.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verrs})
	case errors.Is(err, schema.ErrBadJSON), errors.Is(err, errBadParam):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, query.ErrInvalidPage), errors.Is(err, query.ErrUnknownField),
		errors.Is(err, pricing.ErrUnknownPlatform):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusUnprocessableEntity, store.ErrInvalidReference.Error())
	case errors.Is(err, store.ErrReferenced):
		writeError(w, http.StatusConflict, store.ErrReferenced.Error())
	default:
		logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
