package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/model"
)

const postingColumns = `id, employer_slug, external_id, title, description_html,
	description_plain, department, location, job_url, apply_url, published_at,
	first_seen, last_seen, removed_at, normalized_title, seniority, function,
	team_area, is_leadership, experience_years_min, remote_policy, tech_stack,
	keywords, notable_signals, salary_min, salary_max, salary_currency, enriched_at`

// postingRow mirrors the postings table. List-valued enrichment fields are
// stored as JSON text.
type postingRow struct {
	ID               string     `db:"id"`
	EmployerSlug     string     `db:"employer_slug"`
	ExternalID       string     `db:"external_id"`
	Title            string     `db:"title"`
	DescriptionHTML  string     `db:"description_html"`
	DescriptionPlain string     `db:"description_plain"`
	Department       string     `db:"department"`
	Location         string     `db:"location"`
	JobURL           string     `db:"job_url"`
	ApplyURL         string     `db:"apply_url"`
	PublishedAt      *time.Time `db:"published_at"`
	FirstSeen        time.Time  `db:"first_seen"`
	LastSeen         time.Time  `db:"last_seen"`
	RemovedAt        *time.Time `db:"removed_at"`

	NormalizedTitle    string     `db:"normalized_title"`
	Seniority          string     `db:"seniority"`
	Function           string     `db:"function"`
	TeamArea           string     `db:"team_area"`
	IsLeadership       bool       `db:"is_leadership"`
	ExperienceYearsMin *int       `db:"experience_years_min"`
	RemotePolicy       string     `db:"remote_policy"`
	TechStackJSON      string     `db:"tech_stack"`
	KeywordsJSON       string     `db:"keywords"`
	NotableSignalsJSON string     `db:"notable_signals"`
	SalaryMin          *int       `db:"salary_min"`
	SalaryMax          *int       `db:"salary_max"`
	SalaryCurrency     string     `db:"salary_currency"`
	EnrichedAt         *time.Time `db:"enriched_at"`
}

func (r *postingRow) toModel() (model.Posting, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.Posting{}, fmt.Errorf("parse posting id %q: %w", r.ID, err)
	}

	p := model.Posting{
		ID:               id,
		EmployerSlug:     r.EmployerSlug,
		ExternalID:       r.ExternalID,
		Title:            r.Title,
		DescriptionHTML:  r.DescriptionHTML,
		DescriptionPlain: r.DescriptionPlain,
		Department:       r.Department,
		Location:         r.Location,
		JobURL:           r.JobURL,
		ApplyURL:         r.ApplyURL,
		PublishedAt:      r.PublishedAt,
		FirstSeen:        r.FirstSeen,
		LastSeen:         r.LastSeen,
		RemovedAt:        r.RemovedAt,
		EnrichedAt:       r.EnrichedAt,
	}

	// Enrichment fields are meaningful only once enriched_at is set; a posting
	// is never persisted partially enriched.
	if r.EnrichedAt != nil {
		enr := &model.Enrichment{
			NormalizedTitle:    r.NormalizedTitle,
			Seniority:          model.Seniority(r.Seniority),
			Function:           model.Function(r.Function),
			TeamArea:           r.TeamArea,
			IsLeadership:       r.IsLeadership,
			ExperienceYearsMin: r.ExperienceYearsMin,
			RemotePolicy:       model.RemotePolicy(r.RemotePolicy),
			SalaryMin:          r.SalaryMin,
			SalaryMax:          r.SalaryMax,
			SalaryCurrency:     r.SalaryCurrency,
		}
		for _, f := range []struct {
			raw  string
			dest *[]string
		}{
			{r.TechStackJSON, &enr.TechStack},
			{r.KeywordsJSON, &enr.Keywords},
			{r.NotableSignalsJSON, &enr.NotableSignals},
		} {
			if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
				return model.Posting{}, fmt.Errorf("parse posting %s list field: %w", r.ID, err)
			}
		}
		p.Enrichment = enr
	}

	return p, nil
}

func rowsToPostings(rows []postingRow) ([]model.Posting, error) {
	postings := make([]model.Posting, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, nil
}

// ListPostings returns every posting ever seen for an employer, live or
// removed. Reconciliation diffs against this full set.
func (s *SQLite) ListPostings(ctx context.Context, employerSlug string) ([]model.Posting, error) {
	var rows []postingRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+postingColumns+" FROM postings WHERE employer_slug = ?", employerSlug)
	if err != nil {
		return nil, fmt.Errorf("list postings for %s: %w", employerSlug, err)
	}
	return rowsToPostings(rows)
}

// ListActivePostings returns currently live postings, newest first. An empty
// employerSlug selects across all employers.
func (s *SQLite) ListActivePostings(ctx context.Context, employerSlug string, limit int) ([]model.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE removed_at IS NULL"
	var args []any
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}
	query += " ORDER BY first_seen DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active postings: %w", err)
	}
	return rowsToPostings(rows)
}

// ListPendingEnrichment returns up to limit postings that are live and not
// yet enriched. A limit of zero or less selects nothing.
func (s *SQLite) ListPendingEnrichment(ctx context.Context, employerSlug string, limit int) ([]model.Posting, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := "SELECT " + postingColumns + " FROM postings WHERE enriched_at IS NULL AND removed_at IS NULL"
	var args []any
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pending enrichment: %w", err)
	}
	return rowsToPostings(rows)
}

// CountPendingEnrichment returns how many live postings still await enrichment.
func (s *SQLite) CountPendingEnrichment(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM postings WHERE enriched_at IS NULL AND removed_at IS NULL")
	if err != nil {
		return 0, fmt.Errorf("count pending enrichment: %w", err)
	}
	return count, nil
}

// CountActivePostings counts live postings; empty employerSlug counts all.
func (s *SQLite) CountActivePostings(ctx context.Context, employerSlug string) (int, error) {
	query := "SELECT COUNT(*) FROM postings WHERE removed_at IS NULL"
	var args []any
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count active postings: %w", err)
	}
	return count, nil
}

// PostingFilter narrows a paginated posting query. Zero values mean
// "no constraint" for every field except Limit, which must be positive.
type PostingFilter struct {
	EmployerSlug string
	Function     model.Function
	Seniority    model.Seniority
	OnlyActive   bool
	OnlyRemoved  bool
	AddedSince   time.Time
	Limit        int
	Offset       int
}

// QueryPostings returns one page of postings matching the filter, newest
// first, along with the total match count ignoring pagination.
func (s *SQLite) QueryPostings(ctx context.Context, filter PostingFilter) ([]model.Posting, int, error) {
	where := " WHERE 1=1"
	var args []any
	if filter.EmployerSlug != "" {
		where += " AND employer_slug = ?"
		args = append(args, filter.EmployerSlug)
	}
	if filter.Function != "" {
		where += " AND function = ?"
		args = append(args, string(filter.Function))
	}
	if filter.Seniority != "" {
		where += " AND seniority = ?"
		args = append(args, string(filter.Seniority))
	}
	if filter.OnlyActive {
		where += " AND removed_at IS NULL"
	}
	if filter.OnlyRemoved {
		where += " AND removed_at IS NOT NULL"
	}
	if !filter.AddedSince.IsZero() {
		where += " AND first_seen >= ?"
		args = append(args, utc(filter.AddedSince))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM postings"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count postings: %w", err)
	}

	query := "SELECT " + postingColumns + " FROM postings" + where +
		" ORDER BY first_seen DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query postings: %w", err)
	}
	postings, err := rowsToPostings(rows)
	if err != nil {
		return nil, 0, err
	}
	return postings, total, nil
}

// ListPostingsAddedBetween returns postings first seen in [from, to).
func (s *SQLite) ListPostingsAddedBetween(ctx context.Context, employerSlug string, from, to time.Time) ([]model.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE first_seen >= ? AND first_seen < ?"
	args := []any{utc(from), utc(to)}
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list postings added between: %w", err)
	}
	return rowsToPostings(rows)
}

// ListPostingsRemovedBetween returns postings removed in [from, to).
func (s *SQLite) ListPostingsRemovedBetween(ctx context.Context, employerSlug string, from, to time.Time) ([]model.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE removed_at IS NOT NULL AND removed_at >= ? AND removed_at < ?"
	args := []any{utc(from), utc(to)}
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list postings removed between: %w", err)
	}
	return rowsToPostings(rows)
}

// FunctionBreakdown counts live postings grouped by enriched function; empty
// employerSlug aggregates across all employers. Unenriched postings count
// under the empty-string key.
func (s *SQLite) FunctionBreakdown(ctx context.Context, employerSlug string) (map[model.Function]int, error) {
	query := "SELECT function, COUNT(*) AS n FROM postings WHERE removed_at IS NULL"
	var args []any
	if employerSlug != "" {
		query += " AND employer_slug = ?"
		args = append(args, employerSlug)
	}
	query += " GROUP BY function"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("function breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	breakdown := make(map[model.Function]int)
	for rows.Next() {
		var fn string
		var n int
		if err := rows.Scan(&fn, &n); err != nil {
			return nil, fmt.Errorf("scan function breakdown: %w", err)
		}
		breakdown[model.Function(fn)] = n
	}
	return breakdown, rows.Err()
}

// SaveEnrichment writes all enrichment fields plus enriched_at in one update.
func (s *SQLite) SaveEnrichment(ctx context.Context, postingID uuid.UUID, enr *model.Enrichment, enrichedAt time.Time) error {
	techStack, _ := json.Marshal(emptyIfNil(enr.TechStack))
	keywords, _ := json.Marshal(emptyIfNil(enr.Keywords))
	signals, _ := json.Marshal(emptyIfNil(enr.NotableSignals))

	_, err := s.db.ExecContext(ctx, `
		UPDATE postings SET
			normalized_title = ?, seniority = ?, function = ?, team_area = ?,
			is_leadership = ?, experience_years_min = ?, remote_policy = ?,
			tech_stack = ?, keywords = ?, notable_signals = ?,
			salary_min = ?, salary_max = ?, salary_currency = ?, enriched_at = ?
		WHERE id = ?`,
		enr.NormalizedTitle, string(enr.Seniority), string(enr.Function), enr.TeamArea,
		enr.IsLeadership, enr.ExperienceYearsMin, string(enr.RemotePolicy),
		string(techStack), string(keywords), string(signals),
		enr.SalaryMin, enr.SalaryMax, enr.SalaryCurrency, utc(enrichedAt),
		postingID.String(),
	)
	if err != nil {
		return fmt.Errorf("save enrichment for %s: %w", postingID, err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
