package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "Keel - deterministic boundary-enforcement engine",
	Long: `Keel is a deterministic boundary-enforcement engine.

It evaluates request summaries against a programmable set of anchors
(leveled policy statements) and issues proceed/gate decisions:
  - Level 1 anchors surface advisory warnings but never block
  - Level 2 anchors gate, with an explicit acknowledgement path through
  - Level 3 anchors gate with no pass-through

Every decision is recorded as an immutable trace with snapshots of the
evaluated anchors, so decisions can be replayed exactly as made and policy
drift detected when anchors change afterward.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
