package storage

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/trace"
)

func testRecord(decision string) *trace.Record {
	return &trace.Record{
		Summary:   "buy a new workstation",
		Arousal:   "med",
		Dominance: "med",
		Decision:  decision,
		Reason:    "l2_anchor_conflict",
		Snapshots: []*trace.Snapshot{
			{
				AnchorID:  1,
				Level:     anchor.LevelSoft,
				Scope:     "budget",
				Statement: "avoid unplanned spending",
				Triggers:  []string{"buy"},
				Hash:      "abc",
				Active:    true,
				Matched:   true,
				Fragments: []string{"buy"},
			},
		},
	}
}

func TestMemoryStorage_InsertAllocatesIDs(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	first, err := s.Insert(ctx, testRecord("gate"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second, err := s.Insert(ctx, testRecord("proceed"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set at insert")
	}
	if len(first.Snapshots) != 1 || first.Snapshots[0].TraceID != first.ID {
		t.Error("snapshot should be keyed to the allocated trace id")
	}
}

func TestMemoryStorage_GetIncludesSnapshots(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	inserted, err := s.Insert(ctx, testRecord("gate"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(got.Snapshots))
	}
	if got.Snapshots[0].Hash != "abc" || !got.Snapshots[0].Matched {
		t.Errorf("snapshot state lost: %+v", got.Snapshots[0])
	}
}

func TestMemoryStorage_GetNotFound(t *testing.T) {
	s := NewMemoryStorage()

	if _, err := s.Get(context.Background(), 99); !errors.Is(err, trace.ErrTraceNotFound) {
		t.Errorf("expected ErrTraceNotFound, got %v", err)
	}
}

func TestMemoryStorage_ListNewestFirst(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Insert(ctx, testRecord("gate")); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.List(ctx, &trace.Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != 3 || records[2].ID != 1 {
		t.Errorf("records not newest first: %d, %d, %d", records[0].ID, records[1].ID, records[2].ID)
	}
	if records[0].Snapshots != nil {
		t.Error("List should omit snapshots")
	}
}

func TestMemoryStorage_ListFilters(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for _, d := range []string{"gate", "proceed", "gate", "gate", "proceed"} {
		if _, err := s.Insert(ctx, testRecord(d)); err != nil {
			t.Fatal(err)
		}
	}

	gates, err := s.List(ctx, &trace.Query{Decision: "gate"})
	if err != nil {
		t.Fatal(err)
	}
	if len(gates) != 3 {
		t.Errorf("expected 3 gate records, got %d", len(gates))
	}
	for _, r := range gates {
		if r.Decision != "gate" {
			t.Errorf("filter leaked decision %q", r.Decision)
		}
	}

	page, err := s.List(ctx, &trace.Query{Decision: "gate", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != 3 {
		t.Errorf("limit/offset page wrong: %+v", page)
	}
}

func TestMemoryStorage_Count(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for _, d := range []string{"gate", "proceed", "gate"} {
		if _, err := s.Insert(ctx, testRecord(d)); err != nil {
			t.Fatal(err)
		}
	}

	total, err := s.Count(ctx, &trace.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	gates, err := s.Count(ctx, &trace.Query{Decision: "gate"})
	if err != nil {
		t.Fatal(err)
	}
	if gates != 2 {
		t.Errorf("gate count = %d, want 2", gates)
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	inserted, err := s.Insert(ctx, testRecord("gate"))
	if err != nil {
		t.Fatal(err)
	}

	// Mutating a returned record must not leak into storage.
	inserted.Summary = "tampered"
	inserted.Snapshots[0].Statement = "tampered"

	got, err := s.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "buy a new workstation" {
		t.Error("record mutated through a returned copy")
	}
	if got.Snapshots[0].Statement != "avoid unplanned spending" {
		t.Error("snapshot mutated through a returned copy")
	}
}
