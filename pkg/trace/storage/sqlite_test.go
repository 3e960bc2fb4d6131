package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/keel/pkg/trace"
)

// createTempDB creates a temporary SQLite trace store for testing.
func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "traces.db")

	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	return storage, dbPath
}

func TestSQLiteStorage_Initialize(t *testing.T) {
	_, dbPath := createTempDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestSQLiteStorage_InsertAndGet(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	profileID := int64(7)
	rec := testRecord("gate")
	rec.RequestID = "req-1"
	rec.ProfileID = &profileID
	rec.NextActions = []string{"reframe", "proceed_acknowledged", "view_conflicts"}
	rec.ConflictedAnchorID = 1
	rec.MatchedAnchorIDs = []int64{1}
	rec.MaxMatchedLevel = 2
	rec.Explanation = `request conflicts with anchor 1 (scope "budget", level soft) triggered by "buy"`

	inserted, err := storage.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.ID != 1 {
		t.Errorf("trace id = %d, want 1", inserted.ID)
	}
	if inserted.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set at insert")
	}

	got, err := storage.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Summary != rec.Summary || got.Decision != "gate" || got.Reason != rec.Reason {
		t.Errorf("record round trip lost fields: %+v", got)
	}
	if got.RequestID != "req-1" {
		t.Errorf("request id = %q", got.RequestID)
	}
	if got.ProfileID == nil || *got.ProfileID != profileID {
		t.Error("profile id not preserved")
	}
	if len(got.NextActions) != 3 || got.NextActions[0] != "reframe" {
		t.Errorf("next actions not preserved: %v", got.NextActions)
	}
	if len(got.MatchedAnchorIDs) != 1 || got.MatchedAnchorIDs[0] != 1 {
		t.Errorf("matched ids not preserved: %v", got.MatchedAnchorIDs)
	}
	if got.MaxMatchedLevel != 2 {
		t.Errorf("max matched level = %d, want 2", got.MaxMatchedLevel)
	}

	if len(got.Snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(got.Snapshots))
	}
	snap := got.Snapshots[0]
	if snap.TraceID != inserted.ID {
		t.Errorf("snapshot trace id = %d, want %d", snap.TraceID, inserted.ID)
	}
	if snap.Statement != "avoid unplanned spending" || snap.Hash != "abc" || !snap.Active {
		t.Errorf("snapshot state lost: %+v", snap)
	}
	if !snap.Matched || len(snap.Fragments) != 1 || snap.Fragments[0] != "buy" {
		t.Errorf("match outcome lost: matched=%t fragments=%v", snap.Matched, snap.Fragments)
	}
	if len(snap.Triggers) != 1 || snap.Triggers[0] != "buy" {
		t.Errorf("triggers lost: %v", snap.Triggers)
	}
}

func TestSQLiteStorage_InsertAcknowledgeRecord(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	parent, err := storage.Insert(ctx, testRecord("gate"))
	if err != nil {
		t.Fatal(err)
	}

	// Acknowledge records carry the consent text and parent link but no
	// snapshots.
	ack := &trace.Record{
		Summary:         parent.Summary,
		Arousal:         "med",
		Dominance:       "med",
		Decision:        "proceed",
		Reason:          "proceed_acknowledged",
		ParentID:        &parent.ID,
		Acknowledgement: "I accept the risk",
	}

	inserted, err := storage.Insert(ctx, ack)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := storage.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ParentID == nil || *got.ParentID != parent.ID {
		t.Error("parent link not preserved")
	}
	if got.Acknowledgement != "I accept the risk" {
		t.Errorf("acknowledgement not stored verbatim: %q", got.Acknowledgement)
	}
	if len(got.Snapshots) != 0 {
		t.Errorf("acknowledge record should have no snapshots, got %d", len(got.Snapshots))
	}
}

func TestSQLiteStorage_GetNotFound(t *testing.T) {
	storage, _ := createTempDB(t)

	if _, err := storage.Get(context.Background(), 99); !errors.Is(err, trace.ErrTraceNotFound) {
		t.Errorf("expected ErrTraceNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	for _, d := range []string{"gate", "proceed", "gate", "gate", "proceed"} {
		if _, err := storage.Insert(ctx, testRecord(d)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := storage.List(ctx, &trace.Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[0].ID != 5 || records[4].ID != 1 {
		t.Errorf("records not newest first: first=%d last=%d", records[0].ID, records[4].ID)
	}
	if len(records[0].Snapshots) != 0 {
		t.Error("List should omit snapshots")
	}

	gates, err := storage.List(ctx, &trace.Query{Decision: "gate"})
	if err != nil {
		t.Fatal(err)
	}
	if len(gates) != 3 {
		t.Errorf("expected 3 gate records, got %d", len(gates))
	}

	page, err := storage.List(ctx, &trace.Query{Decision: "gate", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != 3 {
		t.Errorf("limit/offset page wrong: %+v", page)
	}

	total, err := storage.Count(ctx, &trace.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}

	gateCount, err := storage.Count(ctx, &trace.Query{Decision: "gate"})
	if err != nil {
		t.Fatal(err)
	}
	if gateCount != 3 {
		t.Errorf("gate count = %d, want 3", gateCount)
	}
}

func TestSQLiteStorage_Close(t *testing.T) {
	storage, _ := createTempDB(t)

	if err := storage.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := storage.Insert(context.Background(), testRecord("gate")); err == nil {
		t.Error("expected an error after Close")
	}
}
