package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tyhouch/openroles.dev/internal/model"
)

type scrapeRunRow struct {
	ID           string     `db:"id"`
	EmployerSlug string     `db:"employer_slug"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	Status       string     `db:"status"`
	Found        int        `db:"jobs_found"`
	Added        int        `db:"jobs_added"`
	Removed      int        `db:"jobs_removed"`
	ErrorText    string     `db:"error_text"`
}

// CreateScrapeRun opens a run record in the running state.
func (s *SQLite) CreateScrapeRun(ctx context.Context, run *model.ScrapeRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, employer_slug, started_at, status, error_text)
		 VALUES (?, ?, ?, ?, '')`,
		run.ID.String(), run.EmployerSlug, utc(run.StartedAt), string(run.Status))
	if err != nil {
		return fmt.Errorf("create scrape run: %w", err)
	}
	return nil
}

// FinalizeScrapeRunFailed marks a run failed with its error text. Used when
// the run aborts before any posting mutation is committed.
func (s *SQLite) FinalizeScrapeRunFailed(ctx context.Context, runID uuid.UUID, completedAt time.Time, found int, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs SET completed_at = ?, status = ?, jobs_found = ?, error_text = ? WHERE id = ?`,
		utc(completedAt), string(model.RunStatusFailed), found, errText, runID.String())
	if err != nil {
		return fmt.Errorf("finalize failed scrape run: %w", err)
	}
	return nil
}

// ApplyReconcileDelta commits a reconciliation atomically: new postings are
// inserted, surviving postings touched (and reactivated), vanished postings
// marked removed, and the run record finalized — all in one transaction.
func (s *SQLite) ApplyReconcileDelta(ctx context.Context, delta ReconcileDelta) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range delta.Created {
		if err := insertPosting(ctx, tx, &delta.Created[i]); err != nil {
			return err
		}
	}

	ts := utc(delta.Timestamp)

	if len(delta.SeenIDs) > 0 {
		query, args, err := sqlx.In(
			"UPDATE postings SET last_seen = ?, removed_at = NULL WHERE id IN (?)",
			ts, uuidStrings(delta.SeenIDs))
		if err != nil {
			return fmt.Errorf("build seen update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("touch seen postings: %w", err)
		}
	}

	if len(delta.RemovedIDs) > 0 {
		query, args, err := sqlx.In(
			"UPDATE postings SET removed_at = ? WHERE id IN (?)",
			ts, uuidStrings(delta.RemovedIDs))
		if err != nil {
			return fmt.Errorf("build removed update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark removed postings: %w", err)
		}
	}

	run := delta.Run
	if _, err := tx.ExecContext(ctx,
		`UPDATE scrape_runs SET completed_at = ?, status = ?, jobs_found = ?,
		 jobs_added = ?, jobs_removed = ?, error_text = '' WHERE id = ?`,
		utcPtr(run.CompletedAt), string(run.Status), run.Found, run.Added, run.Removed,
		run.ID.String()); err != nil {
		return fmt.Errorf("finalize scrape run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reconcile tx: %w", err)
	}
	return nil
}

func insertPosting(ctx context.Context, tx *sqlx.Tx, p *model.Posting) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	// New postings always start unenriched; list columns keep their
	// empty-array defaults.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO postings (
			id, employer_slug, external_id, title, description_html,
			description_plain, department, location, job_url, apply_url,
			published_at, first_seen, last_seen, removed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		p.ID.String(), p.EmployerSlug, p.ExternalID, p.Title, p.DescriptionHTML,
		p.DescriptionPlain, p.Department, p.Location, p.JobURL, p.ApplyURL,
		utcPtr(p.PublishedAt), utc(p.FirstSeen), utc(p.LastSeen))
	if err != nil {
		return fmt.Errorf("insert posting %s/%s: %w", p.EmployerSlug, p.ExternalID, err)
	}
	return nil
}

// ListScrapeRuns returns the most recent runs, newest first.
func (s *SQLite) ListScrapeRuns(ctx context.Context, limit int) ([]model.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []scrapeRunRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, employer_slug, started_at, completed_at, status, jobs_found,
		 jobs_added, jobs_removed, error_text
		 FROM scrape_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}

	runs := make([]model.ScrapeRun, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse scrape run id %q: %w", r.ID, err)
		}
		runs = append(runs, model.ScrapeRun{
			ID:           id,
			EmployerSlug: r.EmployerSlug,
			StartedAt:    r.StartedAt,
			CompletedAt:  r.CompletedAt,
			Status:       model.RunStatus(r.Status),
			Found:        r.Found,
			Added:        r.Added,
			Removed:      r.Removed,
			ErrorText:    r.ErrorText,
		})
	}
	return runs, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func marshalUUIDs(ids []uuid.UUID) string {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	b, _ := json.Marshal(uuidStrings(ids))
	return string(b)
}

func unmarshalUUIDs(raw string) ([]uuid.UUID, error) {
	var strs []string
	if err := json.Unmarshal([]byte(raw), &strs); err != nil {
		return nil, fmt.Errorf("parse id list: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
