package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/keel/pkg/anchor"
)

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Manage anchors",
	Long:  `List, add, and archive anchors directly against the configured store.`,
}

var anchorsListFlags struct {
	includeInactive bool
}

var anchorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List anchors",
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

		anchors, err := anchorStore.ListAnchors(context.Background(), anchorsListFlags.includeInactive)
		if err != nil {
			return err
		}

		if len(anchors) == 0 {
			fmt.Println("no anchors")
			return nil
		}

		for _, a := range anchors {
			status := "active"
			if !a.Active {
				status = "archived"
			}
			fmt.Printf("%4d  L%d  %-10s  %-8s  %s\n", a.ID, int(a.Level), a.Scope, status, a.Statement)
			if len(a.Triggers) > 0 {
				fmt.Printf("      triggers: %s\n", strings.Join(a.Triggers, ", "))
			}
		}
		return nil
	},
}

var anchorsAddFlags struct {
	level     int
	scope     string
	statement string
	triggers  []string
}

var anchorsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an anchor",
	Example: `  keel anchors add --level 3 --scope security \
    --statement "never bypass authentication controls" \
    --trigger "bypass auth" --trigger "disable login"`,
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

		created, err := anchorStore.CreateAnchor(context.Background(), &anchor.Anchor{
			Level:     anchor.Level(anchorsAddFlags.level),
			Scope:     anchorsAddFlags.scope,
			Statement: anchorsAddFlags.statement,
			Triggers:  anchorsAddFlags.triggers,
			Active:    true,
		})
		if err != nil {
			return err
		}

		fmt.Printf("created anchor %d (level %s, hash %s)\n", created.ID, created.Level, created.Hash[:12])
		return nil
	},
}

var anchorsArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive an anchor",
	Long: `Archive an anchor so it no longer participates in matching.

Archived anchors are kept in storage: existing traces continue to reference
them and replay continues to work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid anchor id %q", args[0])
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

		if err := anchorStore.ArchiveAnchor(context.Background(), id); err != nil {
			return err
		}

		fmt.Printf("archived anchor %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anchorsCmd)
	anchorsCmd.AddCommand(anchorsListCmd)
	anchorsCmd.AddCommand(anchorsAddCmd)
	anchorsCmd.AddCommand(anchorsArchiveCmd)

	anchorsListCmd.Flags().BoolVar(&anchorsListFlags.includeInactive, "all", false, "include archived anchors")

	anchorsAddCmd.Flags().IntVar(&anchorsAddFlags.level, "level", 2, "anchor level (1=advisory, 2=soft, 3=hard)")
	anchorsAddCmd.Flags().StringVar(&anchorsAddFlags.scope, "scope", "", "scope tag")
	anchorsAddCmd.Flags().StringVar(&anchorsAddFlags.statement, "statement", "", "policy statement")
	anchorsAddCmd.Flags().StringArrayVar(&anchorsAddFlags.triggers, "trigger", nil, "curated trigger phrase (repeatable)")
	_ = anchorsAddCmd.MarkFlagRequired("statement")
}
