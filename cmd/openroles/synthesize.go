package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	synthWeek   string
	synthForce  bool
	synthSector bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [slug]",
	Short: "Generate weekly hiring summaries",
	Long:  "Synthesizes a weekly summary for one employer, the sector roll-up (--sector), or everything at once. Defaults to the previous completed week.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSynthesize,
}

func init() {
	synthesizeCmd.Flags().StringVar(&synthWeek, "week", "", "week to synthesize, as the Monday date YYYY-MM-DD (default: previous completed week)")
	synthesizeCmd.Flags().BoolVar(&synthForce, "force", false, "delete any existing summary for the week and regenerate")
	synthesizeCmd.Flags().BoolVar(&synthSector, "sector", false, "synthesize only the sector roll-up")
	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	var week time.Time
	if synthWeek != "" {
		week, err = time.Parse("2006-01-02", synthWeek)
		if err != nil {
			return fmt.Errorf("invalid --week %q, want YYYY-MM-DD", synthWeek)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case len(args) == 1:
		result, err := a.orch.SynthesizeEmployer(ctx, args[0], week, synthForce)
		if err != nil {
			return err
		}
		return printJSON(result)
	case synthSector:
		result, err := a.orch.SynthesizeSector(ctx, week, synthForce)
		if err != nil {
			return err
		}
		return printJSON(result)
	default:
		result, err := a.orch.SynthesizeAll(ctx, week, synthForce)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}
