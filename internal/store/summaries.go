package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/model"
)

type weeklySummaryRow struct {
	ID           string    `db:"id"`
	EmployerSlug string    `db:"employer_slug"`
	WeekStart    time.Time `db:"week_start"`
	AddedCount   int       `db:"added_count"`
	RemovedCount int       `db:"removed_count"`
	ActiveCount  int       `db:"active_count"`
	AddedIDs     string    `db:"added_ids"`
	RemovedIDs   string    `db:"removed_ids"`
	Velocity     string    `db:"velocity"`
	SummaryText  string    `db:"summary_text"`
	FocusAreas   string    `db:"focus_areas"`
	Notable      string    `db:"notable_changes"`
	Anomalies    string    `db:"anomalies"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *weeklySummaryRow) toModel() (model.WeeklySummary, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("parse summary id %q: %w", r.ID, err)
	}
	addedIDs, err := unmarshalUUIDs(r.AddedIDs)
	if err != nil {
		return model.WeeklySummary{}, err
	}
	removedIDs, err := unmarshalUUIDs(r.RemovedIDs)
	if err != nil {
		return model.WeeklySummary{}, err
	}

	s := model.WeeklySummary{
		ID:           id,
		EmployerSlug: r.EmployerSlug,
		WeekStart:    r.WeekStart,
		AddedCount:   r.AddedCount,
		RemovedCount: r.RemovedCount,
		ActiveCount:  r.ActiveCount,
		AddedIDs:     addedIDs,
		RemovedIDs:   removedIDs,
		Velocity:     model.Velocity(r.Velocity),
		SummaryText:  r.SummaryText,
		CreatedAt:    r.CreatedAt,
	}
	for _, f := range []struct {
		raw  string
		dest *[]string
	}{
		{r.FocusAreas, &s.FocusAreas},
		{r.Notable, &s.NotableChanges},
		{r.Anomalies, &s.Anomalies},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return model.WeeklySummary{}, fmt.Errorf("parse summary %s list field: %w", r.ID, err)
		}
	}
	return s, nil
}

const weeklySummaryColumns = `id, employer_slug, week_start, added_count,
	removed_count, active_count, added_ids, removed_ids, velocity,
	summary_text, focus_areas, notable_changes, anomalies, created_at`

// GetWeeklySummary returns the summary for one employer-week, or nil if none
// exists.
func (s *SQLite) GetWeeklySummary(ctx context.Context, employerSlug string, weekStart time.Time) (*model.WeeklySummary, error) {
	var row weeklySummaryRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+weeklySummaryColumns+" FROM weekly_summaries WHERE employer_slug = ? AND week_start = ?",
		employerSlug, utc(weekStart))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly summary: %w", err)
	}
	m, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListWeeklySummaries returns an employer's summaries, most recent week first.
func (s *SQLite) ListWeeklySummaries(ctx context.Context, employerSlug string, limit int) ([]model.WeeklySummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []weeklySummaryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+weeklySummaryColumns+" FROM weekly_summaries WHERE employer_slug = ? ORDER BY week_start DESC LIMIT ?",
		employerSlug, limit)
	if err != nil {
		return nil, fmt.Errorf("list weekly summaries: %w", err)
	}
	return weeklyRowsToModels(rows)
}

// ListWeeklySummariesBefore returns up to limit summaries strictly before a
// week, most recent first. This is the trend calculator's history input.
func (s *SQLite) ListWeeklySummariesBefore(ctx context.Context, employerSlug string, weekStart time.Time, limit int) ([]model.WeeklySummary, error) {
	var rows []weeklySummaryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+weeklySummaryColumns+" FROM weekly_summaries WHERE employer_slug = ? AND week_start < ? ORDER BY week_start DESC LIMIT ?",
		employerSlug, utc(weekStart), limit)
	if err != nil {
		return nil, fmt.Errorf("list weekly summaries before %s: %w", weekStart.Format("2006-01-02"), err)
	}
	return weeklyRowsToModels(rows)
}

// ListWeeklySummariesForWeek returns all employer summaries for one week.
func (s *SQLite) ListWeeklySummariesForWeek(ctx context.Context, weekStart time.Time) ([]model.WeeklySummary, error) {
	var rows []weeklySummaryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+weeklySummaryColumns+" FROM weekly_summaries WHERE week_start = ? ORDER BY employer_slug",
		utc(weekStart))
	if err != nil {
		return nil, fmt.Errorf("list weekly summaries for week: %w", err)
	}
	return weeklyRowsToModels(rows)
}

func weeklyRowsToModels(rows []weeklySummaryRow) ([]model.WeeklySummary, error) {
	out := make([]model.WeeklySummary, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// CreateWeeklySummary inserts a new employer-week summary. The unique
// (employer, week_start) constraint rejects duplicates.
func (s *SQLite) CreateWeeklySummary(ctx context.Context, sum *model.WeeklySummary) error {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	focus, _ := json.Marshal(emptyIfNil(sum.FocusAreas))
	notable, _ := json.Marshal(emptyIfNil(sum.NotableChanges))
	anomalies, _ := json.Marshal(emptyIfNil(sum.Anomalies))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_summaries (
			id, employer_slug, week_start, added_count, removed_count,
			active_count, added_ids, removed_ids, velocity, summary_text,
			focus_areas, notable_changes, anomalies, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID.String(), sum.EmployerSlug, utc(sum.WeekStart), sum.AddedCount,
		sum.RemovedCount, sum.ActiveCount, marshalUUIDs(sum.AddedIDs),
		marshalUUIDs(sum.RemovedIDs), string(sum.Velocity), sum.SummaryText,
		string(focus), string(notable), string(anomalies), utc(sum.CreatedAt))
	if err != nil {
		return fmt.Errorf("create weekly summary: %w", err)
	}
	return nil
}

// DeleteWeeklySummary removes one employer-week summary (force-regeneration).
func (s *SQLite) DeleteWeeklySummary(ctx context.Context, employerSlug string, weekStart time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM weekly_summaries WHERE employer_slug = ? AND week_start = ?",
		employerSlug, utc(weekStart))
	if err != nil {
		return fmt.Errorf("delete weekly summary: %w", err)
	}
	return nil
}

type sectorSummaryRow struct {
	ID             string    `db:"id"`
	WeekStart      time.Time `db:"week_start"`
	Employers      int       `db:"employers"`
	ActiveCount    int       `db:"active_count"`
	AddedCount     int       `db:"added_count"`
	RemovedCount   int       `db:"removed_count"`
	SummaryText    string    `db:"summary_text"`
	TrendingRoles  string    `db:"trending_roles"`
	TrendingSkills string    `db:"trending_skills"`
	SectorSignals  string    `db:"sector_signals"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *sectorSummaryRow) toModel() (model.SectorSummary, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.SectorSummary{}, fmt.Errorf("parse sector summary id %q: %w", r.ID, err)
	}
	s := model.SectorSummary{
		ID:           id,
		WeekStart:    r.WeekStart,
		Employers:    r.Employers,
		ActiveCount:  r.ActiveCount,
		AddedCount:   r.AddedCount,
		RemovedCount: r.RemovedCount,
		SummaryText:  r.SummaryText,
		CreatedAt:    r.CreatedAt,
	}
	for _, f := range []struct {
		raw  string
		dest *[]string
	}{
		{r.TrendingRoles, &s.TrendingRoles},
		{r.TrendingSkills, &s.TrendingSkills},
		{r.SectorSignals, &s.SectorSignals},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return model.SectorSummary{}, fmt.Errorf("parse sector summary %s list field: %w", r.ID, err)
		}
	}
	return s, nil
}

const sectorSummaryColumns = `id, week_start, employers, active_count,
	added_count, removed_count, summary_text, trending_roles, trending_skills,
	sector_signals, created_at`

// GetSectorSummary returns the sector summary for one week, or nil if none.
func (s *SQLite) GetSectorSummary(ctx context.Context, weekStart time.Time) (*model.SectorSummary, error) {
	var row sectorSummaryRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+sectorSummaryColumns+" FROM sector_summaries WHERE week_start = ?",
		utc(weekStart))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sector summary: %w", err)
	}
	m, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListSectorSummaries returns sector summaries, most recent week first.
func (s *SQLite) ListSectorSummaries(ctx context.Context, limit int) ([]model.SectorSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []sectorSummaryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+sectorSummaryColumns+" FROM sector_summaries ORDER BY week_start DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list sector summaries: %w", err)
	}
	out := make([]model.SectorSummary, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// CreateSectorSummary inserts the sector roll-up for one week.
func (s *SQLite) CreateSectorSummary(ctx context.Context, sum *model.SectorSummary) error {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	roles, _ := json.Marshal(emptyIfNil(sum.TrendingRoles))
	skills, _ := json.Marshal(emptyIfNil(sum.TrendingSkills))
	signals, _ := json.Marshal(emptyIfNil(sum.SectorSignals))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sector_summaries (
			id, week_start, employers, active_count, added_count, removed_count,
			summary_text, trending_roles, trending_skills, sector_signals, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID.String(), utc(sum.WeekStart), sum.Employers, sum.ActiveCount,
		sum.AddedCount, sum.RemovedCount, sum.SummaryText,
		string(roles), string(skills), string(signals), utc(sum.CreatedAt))
	if err != nil {
		return fmt.Errorf("create sector summary: %w", err)
	}
	return nil
}

// DeleteSectorSummary removes one week's sector summary (force-regeneration).
func (s *SQLite) DeleteSectorSummary(ctx context.Context, weekStart time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sector_summaries WHERE week_start = ?", utc(weekStart))
	if err != nil {
		return fmt.Errorf("delete sector summary: %w", err)
	}
	return nil
}
