package server

import (
	"net/http"

	"mercator-hq/keel/pkg/trace"
)

type healthResponse struct {
	Status  string `json:"status"`
	Anchors int64  `json:"anchors"`
	Traces  int64  `json:"traces"`
}

// handleHealth serves GET /healthz. It exercises both stores so a wedged
// database shows up as unhealthy rather than as a hung evaluation later.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	anchors, err := s.anchors.ListAnchors(r.Context(), false)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}

	traces, err := s.traces.Count(r.Context(), &trace.Query{})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Anchors: int64(len(anchors)),
		Traces:  traces,
	})
}
