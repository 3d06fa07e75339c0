package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scrapeEnrich bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape [slug]",
	Short: "Reconcile employer boards against the store",
	Long:  "Fetches the live snapshot for one employer (or all of them) and reconciles postings: new ones are added, missing ones are marked removed.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeEnrich, "enrich", false, "enrich newly added postings afterwards (all-employer mode only)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(args) == 1 {
		result, err := a.orch.ScrapeEmployer(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	result, err := a.orch.ScrapeAll(ctx, scrapeEnrich)
	if err != nil {
		return err
	}
	return printJSON(result)
}
