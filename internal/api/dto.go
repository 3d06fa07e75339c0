package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/model"
)

// postingDTO is the wire shape of one posting. Enrichment fields are present
// only once the posting has been enriched.
type postingDTO struct {
	ID           uuid.UUID  `json:"id"`
	Employer     string     `json:"employer"`
	Title        string     `json:"title"`
	Department   string     `json:"department,omitempty"`
	Location     string     `json:"location,omitempty"`
	JobURL       string     `json:"job_url"`
	ApplyURL     string     `json:"apply_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
	EnrichedAt   *time.Time `json:"enriched_at,omitempty"`

	NormalizedTitle    string   `json:"normalized_title,omitempty"`
	Seniority          string   `json:"seniority,omitempty"`
	Function           string   `json:"function,omitempty"`
	TeamArea           string   `json:"team_area,omitempty"`
	IsLeadership       *bool    `json:"is_leadership,omitempty"`
	ExperienceYearsMin *int     `json:"experience_years_min,omitempty"`
	RemotePolicy       string   `json:"remote_policy,omitempty"`
	TechStack          []string `json:"tech_stack,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	SalaryMin          *int     `json:"salary_min,omitempty"`
	SalaryMax          *int     `json:"salary_max,omitempty"`
	SalaryCurrency     string   `json:"salary_currency,omitempty"`
}

func toPostingDTO(p model.Posting) postingDTO {
	dto := postingDTO{
		ID:          p.ID,
		Employer:    p.EmployerSlug,
		Title:       p.Title,
		Department:  p.Department,
		Location:    p.Location,
		JobURL:      p.JobURL,
		ApplyURL:    p.ApplyURL,
		PublishedAt: p.PublishedAt,
		FirstSeen:   p.FirstSeen,
		LastSeen:    p.LastSeen,
		RemovedAt:   p.RemovedAt,
		EnrichedAt:  p.EnrichedAt,
	}
	if enr := p.Enrichment; enr != nil {
		dto.NormalizedTitle = enr.NormalizedTitle
		dto.Seniority = string(enr.Seniority)
		dto.Function = string(enr.Function)
		dto.TeamArea = enr.TeamArea
		dto.IsLeadership = &enr.IsLeadership
		dto.ExperienceYearsMin = enr.ExperienceYearsMin
		dto.RemotePolicy = string(enr.RemotePolicy)
		dto.TechStack = enr.TechStack
		dto.Keywords = enr.Keywords
		dto.SalaryMin = enr.SalaryMin
		dto.SalaryMax = enr.SalaryMax
		dto.SalaryCurrency = enr.SalaryCurrency
	}
	return dto
}

// postingPage is the paginated envelope for posting listings.
type postingPage struct {
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	Jobs   []postingDTO `json:"jobs"`
}

type employerDTO struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	ATS         string `json:"ats"`
	ActiveCount int    `json:"active_count"`
}

type weeklySummaryDTO struct {
	ID           uuid.UUID `json:"id"`
	Employer     string    `json:"employer"`
	WeekStart    string    `json:"week_start"`
	AddedCount   int       `json:"jobs_added_count"`
	RemovedCount int       `json:"jobs_removed_count"`
	ActiveCount  int       `json:"total_active_count"`

	Velocity       model.Velocity `json:"velocity"`
	SummaryText    string         `json:"summary_text"`
	FocusAreas     []string       `json:"focus_areas"`
	NotableChanges []string       `json:"notable_changes"`
	Anomalies      []string       `json:"anomalies"`

	CreatedAt time.Time `json:"created_at"`
}

func toWeeklySummaryDTO(s model.WeeklySummary) weeklySummaryDTO {
	return weeklySummaryDTO{
		ID:             s.ID,
		Employer:       s.EmployerSlug,
		WeekStart:      s.WeekStart.Format("2006-01-02"),
		AddedCount:     s.AddedCount,
		RemovedCount:   s.RemovedCount,
		ActiveCount:    s.ActiveCount,
		Velocity:       s.Velocity,
		SummaryText:    s.SummaryText,
		FocusAreas:     s.FocusAreas,
		NotableChanges: s.NotableChanges,
		Anomalies:      s.Anomalies,
		CreatedAt:      s.CreatedAt,
	}
}

type sectorSummaryDTO struct {
	ID           uuid.UUID `json:"id"`
	WeekStart    string    `json:"week_start"`
	Employers    int       `json:"companies_count"`
	ActiveCount  int       `json:"total_active_count"`
	AddedCount   int       `json:"total_added_count"`
	RemovedCount int       `json:"total_removed_count"`

	SummaryText    string   `json:"summary_text"`
	TrendingRoles  []string `json:"trending_roles"`
	TrendingSkills []string `json:"trending_skills"`
	SectorSignals  []string `json:"sector_signals"`

	CreatedAt time.Time `json:"created_at"`
}

func toSectorSummaryDTO(s model.SectorSummary) sectorSummaryDTO {
	return sectorSummaryDTO{
		ID:             s.ID,
		WeekStart:      s.WeekStart.Format("2006-01-02"),
		Employers:      s.Employers,
		ActiveCount:    s.ActiveCount,
		AddedCount:     s.AddedCount,
		RemovedCount:   s.RemovedCount,
		SummaryText:    s.SummaryText,
		TrendingRoles:  s.TrendingRoles,
		TrendingSkills: s.TrendingSkills,
		SectorSignals:  s.SectorSignals,
		CreatedAt:      s.CreatedAt,
	}
}

type scrapeRunDTO struct {
	ID          uuid.UUID  `json:"id"`
	Employer    string     `json:"employer"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      string     `json:"status"`
	Found       int        `json:"found"`
	Added       int        `json:"added"`
	Removed     int        `json:"removed"`
	Error       string     `json:"error,omitempty"`
}

func toScrapeRunDTO(r model.ScrapeRun) scrapeRunDTO {
	return scrapeRunDTO{
		ID:          r.ID,
		Employer:    r.EmployerSlug,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Status:      string(r.Status),
		Found:       r.Found,
		Added:       r.Added,
		Removed:     r.Removed,
		Error:       r.ErrorText,
	}
}
