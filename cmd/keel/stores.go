package main

import (
	"fmt"

	"mercator-hq/keel/pkg/config"

	anchorstorage "mercator-hq/keel/pkg/anchor/storage"
	tracestorage "mercator-hq/keel/pkg/trace/storage"
)

// openStores opens the anchor and trace stores per the storage configuration.
// Callers own both Close calls.
func openStores(cfg *config.StorageConfig) (anchorstorage.Storage, tracestorage.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return anchorstorage.NewMemoryStorage(), tracestorage.NewMemoryStorage(), nil

	case "sqlite":
		anchors, err := anchorstorage.NewSQLiteStorage(&anchorstorage.SQLiteConfig{
			Path:        cfg.AnchorPath,
			WALMode:     true,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open anchor store: %w", err)
		}

		traces, err := tracestorage.NewSQLiteStorage(&tracestorage.SQLiteConfig{
			Path:        cfg.TracePath,
			WALMode:     true,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			anchors.Close()
			return nil, nil, fmt.Errorf("failed to open trace store: %w", err)
		}

		return anchors, traces, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// loadConfig loads configuration from the global --config flag with KEEL_*
// environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
