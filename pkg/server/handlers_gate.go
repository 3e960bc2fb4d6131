package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/trace"
)

type evaluateRequest struct {
	RequestSummary string `json:"request_summary"`
	Arousal        string `json:"arousal"`
	Dominance      string `json:"dominance"`
	ProfileID      *int64 `json:"profile_id,omitempty"`
}

type reframeRequest struct {
	ParentLogID    int64  `json:"parent_log_id"`
	RequestSummary string `json:"request_summary"`
	Arousal        string `json:"arousal,omitempty"`
	Dominance      string `json:"dominance,omitempty"`
}

type acknowledgeRequest struct {
	ParentLogID     int64  `json:"parent_log_id"`
	Acknowledgement string `json:"acknowledgement"`
}

// handleEvaluate serves POST /v1/gate/evaluate.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.RequestSummary == "" {
		writeBadRequest(w, "request_summary is required")
		return
	}

	result, err := s.engine.Evaluate(r.Context(), &gate.EvaluateInput{
		RequestID: GetRequestID(r.Context()),
		Summary:   req.RequestSummary,
		Arousal:   gate.ParseSignal(req.Arousal),
		Dominance: gate.ParseSignal(req.Dominance),
		ProfileID: req.ProfileID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleReframe serves POST /v1/gate/reframe.
func (s *Server) handleReframe(w http.ResponseWriter, r *http.Request) {
	var req reframeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ParentLogID == 0 {
		writeBadRequest(w, "parent_log_id is required")
		return
	}
	if req.RequestSummary == "" {
		writeBadRequest(w, "request_summary is required")
		return
	}

	result, err := s.engine.Reframe(r.Context(), req.ParentLogID, &gate.ReframeInput{
		RequestID: GetRequestID(r.Context()),
		Summary:   req.RequestSummary,
		Arousal:   gate.ParseSignal(req.Arousal),
		Dominance: gate.ParseSignal(req.Dominance),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAcknowledge serves POST /v1/gate/acknowledge.
func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ParentLogID == 0 {
		writeBadRequest(w, "parent_log_id is required")
		return
	}
	if req.Acknowledgement == "" {
		writeBadRequest(w, "acknowledgement is required")
		return
	}

	result, err := s.engine.Acknowledge(r.Context(), req.ParentLogID, req.Acknowledgement)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type logListResponse struct {
	Logs  []*trace.Record `json:"logs"`
	Total int64           `json:"total"`
}

// handleListLogs serves GET /v1/gate/logs with optional decision, limit,
// and offset query parameters.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := &trace.Query{
		Decision: r.URL.Query().Get("decision"),
		Limit:    50,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeBadRequest(w, "limit must be an integer between 1 and 500")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		q.Offset = n
	}

	records, err := s.traces.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	total, err := s.traces.Count(r.Context(), &trace.Query{Decision: q.Decision})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logListResponse{Logs: records, Total: total})
}

// handleGetLog serves GET /v1/gate/logs/{id}, returning the full record
// with its anchor snapshots.
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid log id")
		return
	}

	rec, err := s.traces.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleReplay serves GET /v1/gate/replay/{id}.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid log id")
		return
	}

	report, err := s.replayer.Replay(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.replayMetrics != nil {
		s.replayMetrics.RecordReplay(len(report.Drift) > 0)
	}

	writeJSON(w, http.StatusOK, report)
}
