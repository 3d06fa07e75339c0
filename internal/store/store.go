// Package store persists postings, scrape runs, and weekly summaries in SQLite.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/migrations"
)

// ReconcileDelta is the full outcome of one reconciliation run, applied in a
// single transaction together with the run record's finalization.
type ReconcileDelta struct {
	Run        model.ScrapeRun // finalized values: status, counts, completion time
	Created    []model.Posting
	SeenIDs    []uuid.UUID // existing postings present in the snapshot
	RemovedIDs []uuid.UUID // previously live postings absent from the snapshot
	Timestamp  time.Time   // the run's start time, stamped on last_seen/removed_at
}

// WipeCounts reports how many rows an administrative wipe deleted.
type WipeCounts struct {
	Postings        int64 `json:"postings"`
	ScrapeRuns      int64 `json:"scrape_runs"`
	WeeklySummaries int64 `json:"weekly_summaries"`
	SectorSummaries int64 `json:"sector_summaries"`
}

// Store is the persistence interface.
type Store interface {
	// Postings.
	ListPostings(ctx context.Context, employerSlug string) ([]model.Posting, error)
	ListActivePostings(ctx context.Context, employerSlug string, limit int) ([]model.Posting, error)
	QueryPostings(ctx context.Context, filter PostingFilter) ([]model.Posting, int, error)
	ListPendingEnrichment(ctx context.Context, employerSlug string, limit int) ([]model.Posting, error)
	CountPendingEnrichment(ctx context.Context) (int, error)
	CountActivePostings(ctx context.Context, employerSlug string) (int, error)
	ListPostingsAddedBetween(ctx context.Context, employerSlug string, from, to time.Time) ([]model.Posting, error)
	ListPostingsRemovedBetween(ctx context.Context, employerSlug string, from, to time.Time) ([]model.Posting, error)
	FunctionBreakdown(ctx context.Context, employerSlug string) (map[model.Function]int, error)
	SaveEnrichment(ctx context.Context, postingID uuid.UUID, enr *model.Enrichment, enrichedAt time.Time) error

	// Scrape runs.
	CreateScrapeRun(ctx context.Context, run *model.ScrapeRun) error
	FinalizeScrapeRunFailed(ctx context.Context, runID uuid.UUID, completedAt time.Time, found int, errText string) error
	ApplyReconcileDelta(ctx context.Context, delta ReconcileDelta) error
	ListScrapeRuns(ctx context.Context, limit int) ([]model.ScrapeRun, error)

	// Weekly summaries.
	GetWeeklySummary(ctx context.Context, employerSlug string, weekStart time.Time) (*model.WeeklySummary, error)
	ListWeeklySummaries(ctx context.Context, employerSlug string, limit int) ([]model.WeeklySummary, error)
	ListWeeklySummariesBefore(ctx context.Context, employerSlug string, weekStart time.Time, limit int) ([]model.WeeklySummary, error)
	ListWeeklySummariesForWeek(ctx context.Context, weekStart time.Time) ([]model.WeeklySummary, error)
	CreateWeeklySummary(ctx context.Context, s *model.WeeklySummary) error
	DeleteWeeklySummary(ctx context.Context, employerSlug string, weekStart time.Time) error

	// Sector summaries.
	GetSectorSummary(ctx context.Context, weekStart time.Time) (*model.SectorSummary, error)
	ListSectorSummaries(ctx context.Context, limit int) ([]model.SectorSummary, error)
	CreateSectorSummary(ctx context.Context, s *model.SectorSummary) error
	DeleteSectorSummary(ctx context.Context, weekStart time.Time) error

	Wipe(ctx context.Context) (WipeCounts, error)
	Close() error
}

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite opens (or creates) a SQLite database at dsn and runs pending
// migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Wipe deletes all job data, scrape runs, and summaries. Employers live in
// configuration, so there is nothing else to keep.
func (s *SQLite) Wipe(ctx context.Context) (WipeCounts, error) {
	var counts WipeCounts

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range []struct {
		table string
		dest  *int64
	}{
		{"sector_summaries", &counts.SectorSummaries},
		{"weekly_summaries", &counts.WeeklySummaries},
		{"postings", &counts.Postings},
		{"scrape_runs", &counts.ScrapeRuns},
	} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+d.table)
		if err != nil {
			return counts, fmt.Errorf("wipe %s: %w", d.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return counts, fmt.Errorf("wipe %s: %w", d.table, err)
		}
		*d.dest = n
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("commit wipe: %w", err)
	}
	return counts, nil
}

// utc normalizes a timestamp so stored values compare consistently.
func utc(t time.Time) time.Time { return t.UTC() }

// utcPtr normalizes a nullable timestamp.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
