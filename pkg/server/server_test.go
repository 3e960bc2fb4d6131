package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/config"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/gate/matcher"
	"mercator-hq/keel/pkg/profile"
	"mercator-hq/keel/pkg/trace/recorder"
	"mercator-hq/keel/pkg/trace/replay"

	anchorstorage "mercator-hq/keel/pkg/anchor/storage"
	tracestorage "mercator-hq/keel/pkg/trace/storage"
)

type serverFixture struct {
	handler http.Handler
	anchors *anchorstorage.MemoryStorage
	traces  *tracestorage.MemoryStorage
	engine  *gate.Engine
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	anchors := anchorstorage.NewMemoryStorage()
	traces := tracestorage.NewMemoryStorage()
	engine := gate.NewEngine(profile.NewResolver(anchors), matcher.NewLexical(), recorder.NewRecorder(traces), traces)
	replayer := replay.NewReplayer(traces, anchors)

	srv := NewServer(&config.DefaultConfig().Server, engine, anchors, traces, replayer)
	return &serverFixture{
		handler: srv.Handler(),
		anchors: anchors,
		traces:  traces,
		engine:  engine,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func (f *serverFixture) seedAnchor(t *testing.T, level int, scope, statement string, triggers ...string) *anchor.Anchor {
	t.Helper()
	a, err := f.anchors.CreateAnchor(context.Background(), &anchor.Anchor{
		Level:     anchor.Level(level),
		Scope:     scope,
		Statement: statement,
		Triggers:  triggers,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestServer_Evaluate(t *testing.T) {
	f := newServerFixture(t)
	f.seedAnchor(t, 3, "security", "never access systems without authorization", "without authorization")

	rec := f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "pull the logs without authorization",
		"arousal":         "high",
		"dominance":       "low",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	result := decode[gate.Result](t, rec)
	if result.Decision != gate.DecisionGate {
		t.Errorf("decision = %s, want gate", result.Decision)
	}
	if result.Reason != gate.ReasonL3StateMismatch {
		t.Errorf("reason = %s, want state_mismatch_with_l3_anchor", result.Reason)
	}
	if result.TraceID == 0 {
		t.Error("response should carry the log id")
	}
}

func TestServer_Evaluate_Validation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"arousal": "low",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing summary: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/gate/evaluate", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestServer_AcknowledgeFlow(t *testing.T) {
	f := newServerFixture(t)
	f.seedAnchor(t, 2, "budget", "avoid unplanned spending", "buy")

	gated := decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "buy a new workstation",
		"arousal":         "med",
		"dominance":       "med",
	}))
	if gated.Decision != gate.DecisionGate {
		t.Fatalf("setup: expected gate, got %s", gated.Decision)
	}

	rec := f.do(t, http.MethodPost, "/v1/gate/acknowledge", map[string]any{
		"parent_log_id":   gated.TraceID,
		"acknowledgement": "I accept the risk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	acked := decode[gate.Result](t, rec)
	if acked.Reason != gate.ReasonProceedAcknowledged {
		t.Errorf("reason = %s, want proceed_acknowledged", acked.Reason)
	}
	if acked.ParentID == nil || *acked.ParentID != gated.TraceID {
		t.Error("acknowledge response not linked to the gate")
	}
}

func TestServer_Acknowledge_HardGateConflicts(t *testing.T) {
	f := newServerFixture(t)
	f.seedAnchor(t, 3, "security", "never access systems without authorization", "without authorization")

	gated := decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "pull the logs without authorization",
	}))

	rec := f.do(t, http.MethodPost, "/v1/gate/acknowledge", map[string]any{
		"parent_log_id":   gated.TraceID,
		"acknowledgement": "I accept the risk",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestServer_Acknowledge_UnknownParent(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/gate/acknowledge", map[string]any{
		"parent_log_id":   int64(404),
		"acknowledgement": "noted",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_Reframe(t *testing.T) {
	f := newServerFixture(t)
	f.seedAnchor(t, 2, "budget", "avoid unplanned spending", "buy")

	gated := decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "buy a new workstation",
	}))

	rec := f.do(t, http.MethodPost, "/v1/gate/reframe", map[string]any{
		"parent_log_id":   gated.TraceID,
		"request_summary": "add the workstation to next quarter's budget plan",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	reframed := decode[gate.Result](t, rec)
	if reframed.Decision != gate.DecisionProceed {
		t.Errorf("decision = %s, want proceed", reframed.Decision)
	}
	if reframed.ParentID == nil || *reframed.ParentID != gated.TraceID {
		t.Error("reframe response not linked to its parent")
	}
}

func TestServer_Logs(t *testing.T) {
	f := newServerFixture(t)
	f.seedAnchor(t, 2, "budget", "avoid unplanned spending", "buy")

	gated := decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "buy a new workstation",
	}))
	decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "water the plants",
	}))

	rec := f.do(t, http.MethodGet, "/v1/gate/logs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decode[logListResponse](t, rec)
	if list.Total != 2 || len(list.Logs) != 2 {
		t.Errorf("list = %d logs, total %d, want 2/2", len(list.Logs), list.Total)
	}

	rec = f.do(t, http.MethodGet, "/v1/gate/logs?decision=gate", nil)
	filtered := decode[logListResponse](t, rec)
	if filtered.Total != 1 || len(filtered.Logs) != 1 {
		t.Errorf("filtered = %d logs, total %d, want 1/1", len(filtered.Logs), filtered.Total)
	}

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/gate/logs/%d", gated.TraceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get log: status = %d", rec.Code)
	}
	full := decode[map[string]any](t, rec)
	if _, ok := full["snapshots"]; !ok {
		t.Error("single-log view should include anchor snapshots")
	}

	rec = f.do(t, http.MethodGet, "/v1/gate/logs/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown log: status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/gate/logs?limit=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}
}

func TestServer_Replay(t *testing.T) {
	f := newServerFixture(t)
	seeded := f.seedAnchor(t, 2, "budget", "avoid unplanned spending", "buy")

	gated := decode[gate.Result](t, f.do(t, http.MethodPost, "/v1/gate/evaluate", map[string]any{
		"request_summary": "buy a new workstation",
	}))

	if err := f.anchors.ArchiveAnchor(context.Background(), seeded.ID); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/gate/replay/%d", gated.TraceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	report := decode[replay.Report](t, rec)
	if !report.Reproduced {
		t.Error("replay should reproduce the recorded decision")
	}
	if len(report.Drift) != 1 || report.Drift[0].Field != "active" {
		t.Errorf("drift = %v, want one active entry", report.Drift)
	}
}

func TestServer_AnchorAdmin(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/anchors", map[string]any{
		"level":     2,
		"scope":     "budget",
		"statement": "avoid unplanned spending",
		"triggers":  []string{"buy"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[anchor.Anchor](t, rec)
	if created.ID == 0 || created.Hash == "" {
		t.Errorf("created anchor incomplete: %+v", created)
	}

	rec = f.do(t, http.MethodPost, "/v1/anchors", map[string]any{
		"level":     7,
		"scope":     "budget",
		"statement": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid level: status = %d, want 400", rec.Code)
	}

	// Partial update: only the level changes, and the hash moves with it.
	rec = f.do(t, http.MethodPut, fmt.Sprintf("/v1/anchors/%d", created.ID), map[string]any{
		"level": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := decode[anchor.Anchor](t, rec)
	if updated.Level != anchor.LevelHard || updated.Statement != "avoid unplanned spending" {
		t.Errorf("partial update wrong: %+v", updated)
	}
	if updated.Hash == created.Hash {
		t.Error("hash should change with the level")
	}

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/v1/anchors/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("archive: status = %d, want 204", rec.Code)
	}

	list := decode[map[string][]*anchor.Anchor](t, f.do(t, http.MethodGet, "/v1/anchors", nil))
	if len(list["anchors"]) != 0 {
		t.Errorf("archived anchor still listed: %v", list["anchors"])
	}

	all := decode[map[string][]*anchor.Anchor](t, f.do(t, http.MethodGet, "/v1/anchors?include_inactive=true", nil))
	if len(all["anchors"]) != 1 {
		t.Errorf("include_inactive should list the archived anchor, got %d", len(all["anchors"]))
	}

	rec = f.do(t, http.MethodGet, "/v1/anchors/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown anchor: status = %d, want 404", rec.Code)
	}
}

func TestServer_ProfileAdmin(t *testing.T) {
	f := newServerFixture(t)
	seeded := f.seedAnchor(t, 2, "budget", "avoid unplanned spending", "buy")

	rec := f.do(t, http.MethodPost, "/v1/profiles", map[string]any{
		"name":       "work",
		"anchor_ids": []int64{seeded.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[anchor.Profile](t, rec)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/profiles/%d", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get profile: status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/profiles", map[string]any{"anchor_ids": []int64{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	health := decode[healthResponse](t, rec)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
}

func TestServer_RequestIDEcho(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "test-request-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "test-request-42" {
		t.Errorf("request id not echoed: %q", got)
	}

	rec2 := f.do(t, http.MethodGet, "/healthz", nil)
	if rec2.Header().Get(RequestIDHeader) == "" {
		t.Error("server should assign a request id when none is supplied")
	}
}
