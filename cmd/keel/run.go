package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/keel/pkg/anchor/source"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/gate/matcher"
	"mercator-hq/keel/pkg/profile"
	"mercator-hq/keel/pkg/server"
	"mercator-hq/keel/pkg/telemetry/logging"
	"mercator-hq/keel/pkg/telemetry/metrics"
	"mercator-hq/keel/pkg/trace/audit"
	"mercator-hq/keel/pkg/trace/recorder"
	"mercator-hq/keel/pkg/trace/replay"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Keel server",
	Long: `Start the Keel server with the specified configuration.

The server exposes the gate API (evaluate, reframe, acknowledge), the trace
log and replay endpoints, and anchor/profile administration.

Examples:
  # Start with default config
  keel run

  # Start with custom config
  keel run --config /etc/keel/config.yaml

  # Override listen address
  keel run --listen 0.0.0.0:8390

  # Validate config without starting the server
  keel run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Keel v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	anchorStore, traceStore, err := openStores(&cfg.Storage)
	if err != nil {
		return err
	}
	defer anchorStore.Close()
	defer traceStore.Close()
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	// Seed anchors from file, optionally watching for changes
	if cfg.Seed.Path != "" {
		loader := source.NewLoader(cfg.Seed.Path, anchorStore)
		if _, err := loader.Sync(ctx); err != nil {
			return fmt.Errorf("anchor seed sync failed: %w", err)
		}
		fmt.Printf("✓ Anchors seeded from %s\n", cfg.Seed.Path)

		if cfg.Seed.Watch {
			watcher, err := source.NewWatcher(loader, &source.WatcherConfig{
				Path:             cfg.Seed.Path,
				DebounceInterval: cfg.Seed.DebounceInterval,
			})
			if err != nil {
				return fmt.Errorf("failed to create seed watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("seed watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	// Matching strategy
	var m matcher.Matcher
	switch cfg.Matcher.Strategy {
	case "semantic":
		scorer := matcher.NewHTTPScorer(cfg.Matcher.ScorerURL, cfg.Matcher.Timeout)
		m = matcher.NewSemantic(scorer, &matcher.SemanticConfig{
			Threshold: cfg.Matcher.Threshold,
			Timeout:   cfg.Matcher.Timeout,
		})
	default:
		m = matcher.NewLexical()
	}

	// Engine and replay
	resolver := profile.NewResolver(anchorStore)
	rec := recorder.NewRecorder(traceStore)
	engine := gate.NewEngine(resolver, m, rec, traceStore)
	replayer := replay.NewReplayer(traceStore, anchorStore)

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&metrics.Config{
			Enabled:   true,
			Namespace: cfg.Telemetry.Metrics.Namespace,
			Subsystem: cfg.Telemetry.Metrics.Subsystem,
		}, nil)
		engine.SetMetrics(collector.Gate())
		fmt.Printf("✓ Metrics enabled at %s\n", cfg.Telemetry.Metrics.Path)
	}

	// Scheduled drift sweeps
	if cfg.Audit.Schedule != "" {
		auditor := audit.NewAuditor(replayer, traceStore, &audit.Config{
			Schedule: cfg.Audit.Schedule,
			Lookback: cfg.Audit.Lookback,
		})
		if collector != nil {
			auditor.SetMetrics(collector.Replay())
		}
		scheduler := audit.NewScheduler(auditor)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start drift sweep scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				slog.Debug("drift sweep scheduler started", "next_sweep", next)
			}
			fmt.Printf("✓ Drift sweeps scheduled (%s)\n", cfg.Audit.Schedule)
		}
	}

	// HTTP server
	srv := server.NewServer(&cfg.Server, engine, anchorStore, traceStore, replayer)
	if collector != nil {
		srv.SetMetrics(cfg.Telemetry.Metrics.Path, collector)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}
