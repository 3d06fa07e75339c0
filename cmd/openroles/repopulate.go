package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var assumeYes bool

var repopulateCmd = &cobra.Command{
	Use:   "repopulate",
	Short: "Wipe all data and rebuild from live boards",
	Long:  "Deletes every posting, scrape run, and summary, then scrapes all employers, drains enrichment, and synthesizes the previous week.",
	RunE:  runRepopulate,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe all data",
	Long:  "Deletes every posting, scrape run, and summary. Employer configuration is untouched.",
	RunE:  runReset,
}

func init() {
	repopulateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(repopulateCmd)
	rootCmd.AddCommand(resetCmd)
}

func confirmWipe() bool {
	if assumeYes {
		return true
	}
	fmt.Print("This deletes all tracked data. Continue? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

func runRepopulate(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	if !confirmWipe() {
		fmt.Println("aborted")
		return nil
	}

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.orch.Repopulate(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runReset(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	if !confirmWipe() {
		fmt.Println("aborted")
		return nil
	}

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	counts, err := a.orch.Reset(ctx)
	if err != nil {
		return err
	}
	return printJSON(counts)
}
