package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/keel/pkg/trace/audit"
	"mercator-hq/keel/pkg/trace/replay"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit recorded decisions",
}

var auditSweepFlags struct {
	lookback int
}

var auditSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Replay recent traces and summarize drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		anchorStore, traceStore, err := openStores(&cfg.Storage)
		if err != nil {
			return err
		}
		defer anchorStore.Close()
		defer traceStore.Close()

		lookback := auditSweepFlags.lookback
		if lookback == 0 {
			lookback = cfg.Audit.Lookback
		}

		replayer := replay.NewReplayer(traceStore, anchorStore)
		auditor := audit.NewAuditor(replayer, traceStore, &audit.Config{Lookback: lookback})

		summary, err := auditor.Sweep(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("traces examined:   %d\n", summary.Traces)
		fmt.Printf("drifted:           %d\n", summary.Drifted)
		fmt.Printf("changed decisions: %d\n", summary.ChangedDecisions)
		if summary.Failed > 0 {
			fmt.Printf("failed replays:    %d\n", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditSweepCmd)

	auditSweepCmd.Flags().IntVar(&auditSweepFlags.lookback, "lookback", 0, "number of recent traces to replay (default: config value)")
}
