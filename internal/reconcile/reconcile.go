package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/store"
)

// Result reports the outcome of one reconciliation run.
type Result struct {
	Status  model.Status `json:"status"`
	Reason  string       `json:"reason,omitempty"`
	Found   int          `json:"found"`
	Added   int          `json:"added"`
	Updated int          `json:"updated"`
	Removed int          `json:"removed"`
	Err     error        `json:"-"`
}

// Engine diffs board snapshots against stored postings and applies the
// lifecycle delta. It never deletes posting rows: absence from a snapshot
// only stamps removed_at, and reappearance clears it.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a reconciliation engine.
func NewEngine(st store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Run reconciles one employer's board snapshot against the stored postings.
// Every attempt against a configured employer leaves a scrape run record,
// finalized exactly once as success or failed.
func (e *Engine) Run(ctx context.Context, employer model.Employer, fetcher model.SnapshotFetcher) Result {
	if !employer.Configured() {
		e.logger.Warn("skipping employer with missing ATS configuration", "employer", employer.Slug)
		return Result{Status: model.StatusSkipped, Reason: "missing ATS configuration"}
	}

	started := e.now().UTC()
	run := model.ScrapeRun{
		EmployerSlug: employer.Slug,
		StartedAt:    started,
		Status:       model.RunStatusRunning,
	}
	if err := e.store.CreateScrapeRun(ctx, &run); err != nil {
		return Result{Status: model.StatusFailed, Err: fmt.Errorf("open scrape run for %s: %w", employer.Slug, err)}
	}

	snapshot, err := fetcher.FetchPostings(ctx)
	if err != nil {
		e.logger.Error("snapshot fetch failed", "employer", employer.Slug, "error", err)
		if finErr := e.store.FinalizeScrapeRunFailed(ctx, run.ID, e.now().UTC(), 0, err.Error()); finErr != nil {
			e.logger.Error("finalizing failed run", "employer", employer.Slug, "error", finErr)
		}
		return Result{Status: model.StatusFailed, Err: fmt.Errorf("fetch snapshot for %s: %w", employer.Slug, err)}
	}

	existing, err := e.store.ListPostings(ctx, employer.Slug)
	if err != nil {
		if finErr := e.store.FinalizeScrapeRunFailed(ctx, run.ID, e.now().UTC(), len(snapshot), err.Error()); finErr != nil {
			e.logger.Error("finalizing failed run", "employer", employer.Slug, "error", finErr)
		}
		return Result{Status: model.StatusFailed, Err: fmt.Errorf("list postings for %s: %w", employer.Slug, err)}
	}

	byExternalID := make(map[string]model.Posting, len(existing))
	for _, p := range existing {
		byExternalID[p.ExternalID] = p
	}

	now := e.now().UTC()
	seen := make(map[string]bool, len(snapshot))

	var created []model.Posting
	var seenIDs []uuid.UUID
	updated := 0

	for _, raw := range snapshot {
		if seen[raw.ExternalID] {
			// Duplicate external IDs within one snapshot collapse to the first.
			continue
		}
		seen[raw.ExternalID] = true

		if prior, ok := byExternalID[raw.ExternalID]; ok {
			// Known posting: refresh last_seen and clear any removal stamp.
			// A reactivated posting keeps its original first_seen.
			seenIDs = append(seenIDs, prior.ID)
			updated++
			continue
		}

		firstSeen := now
		if raw.PublishedAt != nil {
			firstSeen = raw.PublishedAt.UTC()
		}
		created = append(created, model.Posting{
			ID:               uuid.New(),
			EmployerSlug:     employer.Slug,
			ExternalID:       raw.ExternalID,
			Title:            raw.Title,
			DescriptionHTML:  raw.DescriptionHTML,
			DescriptionPlain: raw.DescriptionPlain,
			Department:       raw.Department,
			Location:         raw.Location,
			JobURL:           raw.JobURL,
			ApplyURL:         raw.ApplyURL,
			PublishedAt:      raw.PublishedAt,
			FirstSeen:        firstSeen,
			LastSeen:         now,
		})
	}

	var removedIDs []uuid.UUID
	for _, p := range existing {
		if p.Active() && !seen[p.ExternalID] {
			removedIDs = append(removedIDs, p.ID)
		}
	}

	completed := now
	run.CompletedAt = &completed
	run.Status = model.RunStatusSuccess
	run.Found = len(snapshot)
	run.Added = len(created)
	run.Removed = len(removedIDs)

	delta := store.ReconcileDelta{
		Run:        run,
		Created:    created,
		SeenIDs:    seenIDs,
		RemovedIDs: removedIDs,
		Timestamp:  now,
	}
	if err := e.store.ApplyReconcileDelta(ctx, delta); err != nil {
		if finErr := e.store.FinalizeScrapeRunFailed(ctx, run.ID, e.now().UTC(), len(snapshot), err.Error()); finErr != nil {
			e.logger.Error("finalizing failed run", "employer", employer.Slug, "error", finErr)
		}
		return Result{Status: model.StatusFailed, Err: fmt.Errorf("apply delta for %s: %w", employer.Slug, err)}
	}

	e.logger.Info("reconciled employer board",
		"employer", employer.Slug,
		"found", len(snapshot),
		"added", len(created),
		"updated", updated,
		"removed", len(removedIDs),
	)

	return Result{
		Status:  model.StatusSuccess,
		Found:   len(snapshot),
		Added:   len(created),
		Updated: updated,
		Removed: len(removedIDs),
	}
}
