package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/keel/pkg/trace/replay"
)

var replayFlags struct {
	jsonOutput bool
}

var replayCmd = &cobra.Command{
	Use:   "replay <log-id>",
	Short: "Replay a decision trace and report drift",
	Long: `Replay a decision trace against its stored anchor snapshots and the
live anchor set.

The replay first re-derives the recorded decision from the snapshots (which
must match exactly), then diffs each snapshot against the live store and
recomputes the decision against today's anchors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid log id %q", args[0])
		}

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

		replayer := replay.NewReplayer(traceStore, anchorStore)
		report, err := replayer.Replay(context.Background(), id)
		if err != nil {
			return err
		}

		if replayFlags.jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printReport(report)
		return nil
	},
}

func printReport(report *replay.Report) {
	fmt.Printf("trace %d\n", report.TraceID)
	fmt.Printf("  recorded:  %s (%s)\n", report.DecisionBefore, report.ReasonBefore)
	fmt.Printf("  today:     %s (%s)\n", report.DecisionNow, report.ReasonNow)

	if report.Reproduced {
		fmt.Println("  reproduced: yes")
	} else {
		fmt.Println("  reproduced: NO, snapshot replay diverged from the recorded decision")
	}

	if len(report.Drift) == 0 {
		fmt.Println("  drift: none")
		return
	}

	fmt.Printf("  drift: %d change(s)\n", len(report.Drift))
	for _, d := range report.Drift {
		fmt.Printf("    anchor %d: %s %s -> %s\n", d.AnchorID, d.Field, d.Old, d.New)
	}
	if !report.SameDecision {
		fmt.Println("  the decision would be different today")
	}
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayFlags.jsonOutput, "json", false, "emit the report as JSON")
}
