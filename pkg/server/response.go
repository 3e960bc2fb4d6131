package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/trace"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, anchor.ErrAnchorNotFound),
		errors.Is(err, anchor.ErrProfileNotFound),
		errors.Is(err, trace.ErrTraceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gate.ErrInvalidOperation):
		status = http.StatusConflict
	case errors.Is(err, anchor.ErrInvalidAnchor):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
