package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tyhouch/openroles.dev/internal/adapter"
	"github.com/tyhouch/openroles.dev/internal/config"
	"github.com/tyhouch/openroles.dev/internal/enrich"
	"github.com/tyhouch/openroles.dev/internal/llm"
	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/orchestrate"
	"github.com/tyhouch/openroles.dev/internal/ratelimit"
	"github.com/tyhouch/openroles.dev/internal/reconcile"
	"github.com/tyhouch/openroles.dev/internal/retry"
	"github.com/tyhouch/openroles.dev/internal/store"
	"github.com/tyhouch/openroles.dev/internal/synth"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "openroles",
	Short: "Hiring-intelligence tracker for AI-sector job boards",
	Long:  "openroles scrapes employer career boards, tracks posting lifecycles, enriches them with a completion service, and synthesizes weekly hiring summaries.",
	// Default to `serve` so that `openroles` with no args runs the API server.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: OPENROLES_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > OPENROLES_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("OPENROLES_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// app bundles everything a command needs after config is loaded.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.SQLite
	orch      *orchestrate.Orchestrator
	employers []model.Employer
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}

// buildApp loads config, opens the store, and wires the full pipeline.
func buildApp(logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	employers, err := cfg.EnabledEmployers()
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}

	// All employers on the same ATS share one limiter.
	overrides := make(map[model.ATS]time.Duration)
	for ats, d := range cfg.RateLimit.ATSOverrides {
		overrides[model.ATS(ats)] = d
	}
	limiter := ratelimit.NewATSRateLimiter(cfg.RateLimit.MinDelay, overrides)

	fetcherFor := func(e model.Employer) (model.SnapshotFetcher, error) {
		fetcher, err := adapter.ForEmployer(e, httpClient)
		if err != nil {
			return nil, err
		}
		fetcher = retry.NewRetryFetcher(fetcher, cfg.Fetch.MaxRetries, cfg.Fetch.BaseDelay, logger)
		return ratelimit.NewRateLimitedFetcher(fetcher, limiter, e.ATS), nil
	}

	// Completion providers are nil without an API key; enrichment and
	// synthesis then report skipped instead of failing.
	var enrichProvider, synthProvider llm.Provider
	if cfg.OpenAI.APIKey != "" {
		llmClient := &http.Client{Timeout: cfg.OpenAI.Timeout}
		enrichProvider = llm.NewOpenAIProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EnrichModel, llmClient)
		synthProvider = llm.NewOpenAIProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.SynthModel, llmClient)
	} else {
		logger.Warn("no openai api key configured, enrichment and synthesis disabled")
	}

	names := make(map[string]string, len(employers))
	for _, e := range employers {
		names[e.Slug] = e.Name
	}

	engine := reconcile.NewEngine(st, logger)
	pipeline := enrich.NewPipeline(st, enrichProvider, names, cfg.Enrich.Concurrency, logger)
	synthesizer := synth.NewSynthesizer(st, synthProvider, logger)
	orch := orchestrate.New(st, engine, pipeline, synthesizer, employers, fetcherFor, cfg.Enrich.BatchLimit, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		orch:      orch,
		employers: employers,
	}, nil
}

// printJSON renders a command result for the terminal.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
