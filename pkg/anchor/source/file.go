package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/anchor/storage"
)

// SeedFile is the on-disk YAML document.
type SeedFile struct {
	Anchors  []SeedAnchor  `yaml:"anchors"`
	Profiles []SeedProfile `yaml:"profiles"`
}

// SeedAnchor declares one anchor.
type SeedAnchor struct {
	Level     int      `yaml:"level"`
	Scope     string   `yaml:"scope"`
	Statement string   `yaml:"statement"`
	Triggers  []string `yaml:"triggers"`
}

// SeedProfile declares one profile. Members reference anchors in the same
// file by statement text.
type SeedProfile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Statements  []string `yaml:"statements"`
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	AnchorsCreated  int
	AnchorsSkipped  int
	ProfilesCreated int
	ProfilesSkipped int
}

// Loader loads seed files and syncs them into the anchor store.
type Loader struct {
	path    string
	storage storage.Storage
	logger  *slog.Logger
}

// NewLoader creates a loader for the given seed file path.
func NewLoader(path string, st storage.Storage) *Loader {
	return &Loader{
		path:    path,
		storage: st,
		logger:  slog.Default().With("component", "anchor.source"),
	}
}

// Load parses the seed file without touching storage.
func (l *Loader) Load() (*SeedFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %q: %w", l.path, err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %q: %w", l.path, err)
	}

	for i, sa := range seed.Anchors {
		if !anchor.Level(sa.Level).Valid() {
			return nil, fmt.Errorf("seed anchor %d: %w: level must be 1, 2, or 3", i, anchor.ErrInvalidAnchor)
		}
		if sa.Statement == "" {
			return nil, fmt.Errorf("seed anchor %d: %w: statement is required", i, anchor.ErrInvalidAnchor)
		}
	}

	return &seed, nil
}

// Sync loads the seed file and applies it to storage. Anchors already
// present (matched by content hash against any anchor, active or archived)
// are skipped; profiles already present (matched by name) are skipped.
func (l *Loader) Sync(ctx context.Context) (*SyncResult, error) {
	seed, err := l.Load()
	if err != nil {
		return nil, err
	}

	existing, err := l.storage.ListAnchors(ctx, true)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string]*anchor.Anchor, len(existing))
	for _, a := range existing {
		// First occurrence wins: the oldest anchor with this content.
		if _, ok := byHash[a.Hash]; !ok {
			byHash[a.Hash] = a
		}
	}

	result := &SyncResult{}

	// Statement text to anchor id, for resolving profile members.
	byStatement := make(map[string]int64)

	for _, sa := range seed.Anchors {
		hash := anchor.ContentHash(anchor.Level(sa.Level), sa.Scope, sa.Statement)
		if found, ok := byHash[hash]; ok {
			byStatement[sa.Statement] = found.ID
			result.AnchorsSkipped++
			continue
		}

		created, err := l.storage.CreateAnchor(ctx, &anchor.Anchor{
			Level:     anchor.Level(sa.Level),
			Scope:     sa.Scope,
			Statement: sa.Statement,
			Triggers:  sa.Triggers,
			Active:    true,
		})
		if err != nil {
			return nil, err
		}

		byHash[created.Hash] = created
		byStatement[sa.Statement] = created.ID
		result.AnchorsCreated++
	}

	profiles, err := l.storage.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	profileNames := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		profileNames[p.Name] = true
	}

	for _, sp := range seed.Profiles {
		if profileNames[sp.Name] {
			result.ProfilesSkipped++
			continue
		}

		var ids []int64
		for _, stmt := range sp.Statements {
			id, ok := byStatement[stmt]
			if !ok {
				l.logger.Warn("profile references unknown statement, skipping member",
					"profile", sp.Name,
					"statement", stmt,
				)
				continue
			}
			ids = append(ids, id)
		}

		if _, err := l.storage.CreateProfile(ctx, sp.Name, sp.Description, ids); err != nil {
			return nil, err
		}
		result.ProfilesCreated++
	}

	l.logger.Info("anchor seed sync completed",
		"path", l.path,
		"anchors_created", result.AnchorsCreated,
		"anchors_skipped", result.AnchorsSkipped,
		"profiles_created", result.ProfilesCreated,
		"profiles_skipped", result.ProfilesSkipped,
	)

	return result, nil
}
