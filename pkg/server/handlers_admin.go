package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"mercator-hq/keel/pkg/anchor"
)

type createAnchorRequest struct {
	Level     int      `json:"level"`
	Scope     string   `json:"scope"`
	Statement string   `json:"statement"`
	Triggers  []string `json:"triggers,omitempty"`
}

type updateAnchorRequest struct {
	Level     *int      `json:"level,omitempty"`
	Scope     *string   `json:"scope,omitempty"`
	Statement *string   `json:"statement,omitempty"`
	Triggers  *[]string `json:"triggers,omitempty"`
}

type createProfileRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	AnchorIDs   []int64 `json:"anchor_ids"`
}

// handleCreateAnchor serves POST /v1/anchors.
func (s *Server) handleCreateAnchor(w http.ResponseWriter, r *http.Request) {
	var req createAnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	created, err := s.anchors.CreateAnchor(r.Context(), &anchor.Anchor{
		Level:     anchor.Level(req.Level),
		Scope:     req.Scope,
		Statement: req.Statement,
		Triggers:  req.Triggers,
		Active:    true,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleListAnchors serves GET /v1/anchors. Pass include_inactive=true to
// include archived anchors.
func (s *Server) handleListAnchors(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	anchors, err := s.anchors.ListAnchors(r.Context(), includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"anchors": anchors})
}

// handleGetAnchor serves GET /v1/anchors/{id}.
func (s *Server) handleGetAnchor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid anchor id")
		return
	}

	a, err := s.anchors.GetAnchor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleUpdateAnchor serves PUT /v1/anchors/{id}. Omitted fields keep their
// current values; the content hash is recomputed by the store.
func (s *Server) handleUpdateAnchor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid anchor id")
		return
	}

	var req updateAnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	a, err := s.anchors.GetAnchor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Level != nil {
		a.Level = anchor.Level(*req.Level)
	}
	if req.Scope != nil {
		a.Scope = *req.Scope
	}
	if req.Statement != nil {
		a.Statement = *req.Statement
	}
	if req.Triggers != nil {
		a.Triggers = *req.Triggers
	}

	if !a.Level.Valid() {
		writeError(w, fmt.Errorf("%w: level must be 1, 2, or 3", anchor.ErrInvalidAnchor))
		return
	}

	if err := s.anchors.UpdateAnchor(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.anchors.GetAnchor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleArchiveAnchor serves DELETE /v1/anchors/{id}. Anchors are archived,
// never removed: past traces keep referring to them.
func (s *Server) handleArchiveAnchor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid anchor id")
		return
	}

	if err := s.anchors.ArchiveAnchor(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCreateProfile serves POST /v1/profiles.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	created, err := s.anchors.CreateProfile(r.Context(), req.Name, req.Description, req.AnchorIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleListProfiles serves GET /v1/profiles.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.anchors.ListProfiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// handleGetProfile serves GET /v1/profiles/{id}.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid profile id")
		return
	}

	p, err := s.anchors.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
