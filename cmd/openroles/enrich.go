package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	enrichAll      bool
	enrichEmployer string
	enrichLimit    int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich pending postings via the completion service",
	Long:  "Runs one enrichment batch over postings that are live and not yet enriched. With --all, keeps running batches until none remain.",
	RunE:  runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichAll, "all", false, "drain the entire enrichment backlog")
	enrichCmd.Flags().StringVar(&enrichEmployer, "employer", "", "limit the batch to one employer slug")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "batch size (default: enrich.batch_limit from config)")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if enrichAll {
		result, err := a.orch.DrainEnrichment(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	result, err := a.orch.EnrichBatch(ctx, enrichEmployer, enrichLimit)
	if err != nil {
		return err
	}
	return printJSON(result)
}
