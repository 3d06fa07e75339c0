package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tyhouch/openroles.dev/internal/enrich"
	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/reconcile"
	"github.com/tyhouch/openroles.dev/internal/store"
	"github.com/tyhouch/openroles.dev/internal/synth"
	"github.com/tyhouch/openroles.dev/internal/trend"
)

// FetcherFactory builds the snapshot fetcher for one employer. Production
// wiring stacks retry and rate limiting on the raw ATS adapter; tests
// substitute fakes.
type FetcherFactory func(employer model.Employer) (model.SnapshotFetcher, error)

// Orchestrator sequences the scrape, enrich, and synthesize stages across the
// configured employer set.
type Orchestrator struct {
	store       store.Store
	engine      *reconcile.Engine
	pipeline    *enrich.Pipeline
	synthesizer *synth.Synthesizer
	employers   []model.Employer
	fetcherFor  FetcherFactory
	batchLimit  int
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an orchestrator over the given employer set.
func New(
	st store.Store,
	engine *reconcile.Engine,
	pipeline *enrich.Pipeline,
	synthesizer *synth.Synthesizer,
	employers []model.Employer,
	fetcherFor FetcherFactory,
	batchLimit int,
	logger *slog.Logger,
) *Orchestrator {
	if batchLimit < 1 {
		batchLimit = 100
	}
	return &Orchestrator{
		store:       st,
		engine:      engine,
		pipeline:    pipeline,
		synthesizer: synthesizer,
		employers:   employers,
		fetcherFor:  fetcherFor,
		batchLimit:  batchLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// Employers returns the configured employer set.
func (o *Orchestrator) Employers() []model.Employer {
	return o.employers
}

// employerBySlug finds a configured employer.
func (o *Orchestrator) employerBySlug(slug string) (model.Employer, error) {
	for _, e := range o.employers {
		if e.Slug == slug {
			return e, nil
		}
	}
	return model.Employer{}, fmt.Errorf("unknown employer %q", slug)
}

// employerNames maps slugs to display names for synthesis prompts.
func (o *Orchestrator) employerNames() map[string]string {
	names := make(map[string]string, len(o.employers))
	for _, e := range o.employers {
		names[e.Slug] = e.Name
	}
	return names
}

// EmployerScrape is one employer's slice of a scrape-all run.
type EmployerScrape struct {
	Employer string `json:"employer"`
	reconcile.Result
}

// ScrapeAllResult summarizes a scrape across every employer, with the
// optional follow-up enrichment batch.
type ScrapeAllResult struct {
	Results    []EmployerScrape    `json:"results"`
	TotalAdded int                 `json:"total_added"`
	Enrich     *enrich.BatchResult `json:"enrich,omitempty"`
}

// ScrapeEmployer reconciles a single employer's board.
func (o *Orchestrator) ScrapeEmployer(ctx context.Context, slug string) (reconcile.Result, error) {
	employer, err := o.employerBySlug(slug)
	if err != nil {
		return reconcile.Result{}, err
	}
	fetcher, err := o.fetcherFor(employer)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("build fetcher for %s: %w", slug, err)
	}
	return o.engine.Run(ctx, employer, fetcher), nil
}

// ScrapeAll reconciles every employer, continuing past per-employer failures
// so one broken board never blocks the rest. When enrichAfter is set and the
// run added postings, one enrichment batch sized to the new postings follows.
func (o *Orchestrator) ScrapeAll(ctx context.Context, enrichAfter bool) (ScrapeAllResult, error) {
	var out ScrapeAllResult
	for _, employer := range o.employers {
		fetcher, err := o.fetcherFor(employer)
		if err != nil {
			out.Results = append(out.Results, EmployerScrape{
				Employer: employer.Slug,
				Result:   reconcile.Result{Status: model.StatusFailed, Reason: err.Error(), Err: err},
			})
			continue
		}
		res := o.engine.Run(ctx, employer, fetcher)
		out.Results = append(out.Results, EmployerScrape{Employer: employer.Slug, Result: res})
		out.TotalAdded += res.Added
	}

	if enrichAfter && out.TotalAdded > 0 {
		// Headroom of 50 covers postings left pending by earlier runs.
		batch, err := o.pipeline.EnrichBatch(ctx, "", out.TotalAdded+50)
		if err != nil {
			return out, fmt.Errorf("post-scrape enrichment: %w", err)
		}
		out.Enrich = &batch
	}
	return out, nil
}

// EnrichBatch runs one bounded enrichment batch.
func (o *Orchestrator) EnrichBatch(ctx context.Context, employerSlug string, limit int) (enrich.BatchResult, error) {
	if limit < 1 {
		limit = o.batchLimit
	}
	return o.pipeline.EnrichBatch(ctx, employerSlug, limit)
}

// DrainEnrichment enriches until nothing pending remains (or progress stops).
func (o *Orchestrator) DrainEnrichment(ctx context.Context) (enrich.DrainResult, error) {
	return o.pipeline.Drain(ctx, o.batchLimit)
}

// SynthesizeEmployer generates one employer's weekly summary. force deletes
// any existing summary for the week first, making regeneration explicit.
func (o *Orchestrator) SynthesizeEmployer(ctx context.Context, slug string, week time.Time, force bool) (synth.Result, error) {
	employer, err := o.employerBySlug(slug)
	if err != nil {
		return synth.Result{}, err
	}
	week = o.resolveWeek(week)
	if force {
		if err := o.store.DeleteWeeklySummary(ctx, slug, week); err != nil {
			return synth.Result{}, fmt.Errorf("delete weekly summary for %s: %w", slug, err)
		}
	}
	return o.synthesizer.EmployerWeek(ctx, employer, week)
}

// SynthesizeSector generates the sector roll-up for a week.
func (o *Orchestrator) SynthesizeSector(ctx context.Context, week time.Time, force bool) (synth.Result, error) {
	week = o.resolveWeek(week)
	if force {
		if err := o.store.DeleteSectorSummary(ctx, week); err != nil {
			return synth.Result{}, fmt.Errorf("delete sector summary: %w", err)
		}
	}
	return o.synthesizer.SectorWeek(ctx, o.employerNames(), week)
}

// WeeklySynthesisResult is the outcome of a full synthesis pass.
type WeeklySynthesisResult struct {
	WeekStart time.Time               `json:"week_start"`
	Employers map[string]synth.Result `json:"employers"`
	Sector    synth.Result            `json:"sector"`
}

// SynthesizeAll runs employer synthesis for every employer, then the sector
// roll-up. A zero week defaults to the previous (completed) week.
func (o *Orchestrator) SynthesizeAll(ctx context.Context, week time.Time, force bool) (WeeklySynthesisResult, error) {
	weekStart := o.resolveWeek(week)
	out := WeeklySynthesisResult{
		WeekStart: weekStart,
		Employers: make(map[string]synth.Result, len(o.employers)),
	}

	if force {
		for _, employer := range o.employers {
			if err := o.store.DeleteWeeklySummary(ctx, employer.Slug, weekStart); err != nil {
				return out, fmt.Errorf("delete weekly summary for %s: %w", employer.Slug, err)
			}
		}
		if err := o.store.DeleteSectorSummary(ctx, weekStart); err != nil {
			return out, fmt.Errorf("delete sector summary: %w", err)
		}
	}

	for _, employer := range o.employers {
		res, err := o.synthesizer.EmployerWeek(ctx, employer, weekStart)
		if err != nil {
			o.logger.Error("employer synthesis failed", "employer", employer.Slug, "error", err)
			res = synth.Result{Status: model.StatusFailed, Reason: err.Error()}
		}
		out.Employers[employer.Slug] = res
	}

	sector, err := o.synthesizer.SectorWeek(ctx, o.employerNames(), weekStart)
	if err != nil {
		return out, fmt.Errorf("sector synthesis: %w", err)
	}
	out.Sector = sector
	return out, nil
}

// RepopulateResult reports every stage of a from-scratch rebuild.
type RepopulateResult struct {
	Reset      store.WipeCounts      `json:"reset"`
	Scrape     ScrapeAllResult       `json:"scrape"`
	Enrich     enrich.DrainResult    `json:"enrich"`
	Synthesize WeeklySynthesisResult `json:"synthesize"`
}

// Repopulate wipes all data and rebuilds: scrape every board, drain
// enrichment, then synthesize the previous week.
func (o *Orchestrator) Repopulate(ctx context.Context) (RepopulateResult, error) {
	var out RepopulateResult

	counts, err := o.store.Wipe(ctx)
	if err != nil {
		return out, fmt.Errorf("wipe: %w", err)
	}
	out.Reset = counts
	o.logger.Info("data wiped for repopulation",
		"postings", counts.Postings,
		"scrape_runs", counts.ScrapeRuns,
	)

	scrape, err := o.ScrapeAll(ctx, false)
	if err != nil {
		return out, err
	}
	out.Scrape = scrape

	drain, err := o.pipeline.Drain(ctx, o.batchLimit)
	if err != nil {
		return out, fmt.Errorf("drain enrichment: %w", err)
	}
	out.Enrich = drain

	synthRes, err := o.SynthesizeAll(ctx, time.Time{}, false)
	if err != nil {
		return out, err
	}
	out.Synthesize = synthRes
	return out, nil
}

// Reset wipes all stored data. Employers live in configuration and survive.
func (o *Orchestrator) Reset(ctx context.Context) (store.WipeCounts, error) {
	return o.store.Wipe(ctx)
}

// resolveWeek normalizes the requested week, defaulting a zero value to the
// previous completed week.
func (o *Orchestrator) resolveWeek(week time.Time) time.Time {
	if week.IsZero() {
		return trend.PreviousWeekStart(o.now())
	}
	return trend.WeekStart(week)
}
