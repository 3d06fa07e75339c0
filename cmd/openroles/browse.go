package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse tracked postings interactively (TUI)",
	Long:  "Shows the employer picker TUI, then launches the split-pane browser over the employer's tracked postings.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	a, err := buildApp(logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if len(a.employers) == 0 {
		fmt.Println("No enabled employers in config.")
		return nil
	}

	for {
		choice, err := tui.RunEmployerPicker(a.employers)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}
		employer := a.employers[choice]

		postings, err := tui.RunLoader(employer.Name, func(ctx context.Context) ([]model.Posting, error) {
			return a.store.ListPostings(ctx, employer.Slug)
		})
		if err != nil {
			fmt.Printf("Error loading postings: %v\n", err)
			continue
		}

		var active, removed []model.Posting
		for _, p := range postings {
			if p.Active() {
				active = append(active, p)
			} else {
				removed = append(removed, p)
			}
		}

		wantQuit, err := tui.RunBrowser(employer.Name, active, removed)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
