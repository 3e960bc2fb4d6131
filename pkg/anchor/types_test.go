package anchor

import (
	"testing"
)

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash(LevelHard, "security", "never access systems without authorization")
	h2 := ContentHash(LevelHard, "security", "never access systems without authorization")

	if h1 != h2 {
		t.Errorf("identical inputs produced different hashes: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h1))
	}
}

func TestContentHash_CoversLevelScopeStatement(t *testing.T) {
	base := ContentHash(LevelSoft, "budget", "avoid unplanned spending")

	if ContentHash(LevelHard, "budget", "avoid unplanned spending") == base {
		t.Error("changing level should change the hash")
	}
	if ContentHash(LevelSoft, "finance", "avoid unplanned spending") == base {
		t.Error("changing scope should change the hash")
	}
	if ContentHash(LevelSoft, "budget", "avoid spending") == base {
		t.Error("changing statement should change the hash")
	}
}

func TestComputeHash_IgnoresTriggersAndActive(t *testing.T) {
	a := &Anchor{
		Level:     LevelSoft,
		Scope:     "budget",
		Statement: "avoid unplanned spending",
		Triggers:  []string{"buy", "purchase"},
		Active:    true,
	}
	h1 := a.ComputeHash()

	a.Triggers = []string{"different", "triggers"}
	a.Active = false

	if a.ComputeHash() != h1 {
		t.Error("triggers and active flag must not affect the content hash")
	}
}

func TestLevel_Valid(t *testing.T) {
	tests := []struct {
		level Level
		want  bool
	}{
		{LevelAdvisory, true},
		{LevelSoft, true},
		{LevelHard, true},
		{Level(0), false},
		{Level(4), false},
		{Level(-1), false},
	}

	for _, tt := range tests {
		if got := tt.level.Valid(); got != tt.want {
			t.Errorf("Level(%d).Valid() = %t, want %t", int(tt.level), got, tt.want)
		}
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelAdvisory, "advisory"},
		{LevelSoft, "soft"},
		{LevelHard, "hard"},
		{Level(9), "level(9)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}
