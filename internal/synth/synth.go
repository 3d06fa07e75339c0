package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/llm"
	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/store"
	"github.com/tyhouch/openroles.dev/internal/trend"
)

// promptPostingLimit caps how many postings are listed per prompt section.
const promptPostingLimit = 30

// sectorKeywordLimit caps the keyword tally fed into sector synthesis.
const sectorKeywordLimit = 15

// Result reports the outcome of one synthesis attempt.
type Result struct {
	Status    model.Status `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	SummaryID uuid.UUID    `json:"summary_id,omitempty"`
}

// Synthesizer turns a week of posting churn into persisted weekly summaries.
// The narrative comes from the completion provider; every count and the
// velocity classification are computed locally so reruns stay deterministic.
type Synthesizer struct {
	store    store.Store
	provider llm.Provider // nil disables synthesis
	logger   *slog.Logger
	now      func() time.Time
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(st store.Store, provider llm.Provider, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		store:    st,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// employerNarrative mirrors employerSynthesisSchema.
type employerNarrative struct {
	SummaryText    string   `json:"summary_text"`
	FocusAreas     []string `json:"focus_areas"`
	NotableChanges []string `json:"notable_changes"`
	Anomalies      []string `json:"anomalies"`
}

// sectorNarrative mirrors sectorSynthesisSchema.
type sectorNarrative struct {
	SummaryText    string   `json:"summary_text"`
	TrendingRoles  []string `json:"trending_roles"`
	TrendingSkills []string `json:"trending_skills"`
	SectorSignals  []string `json:"sector_signals"`
}

// EmployerWeek generates and persists the weekly summary for one employer.
// weekStart is normalized to its Monday. An existing summary for the week is
// left untouched and reported as exists.
func (s *Synthesizer) EmployerWeek(ctx context.Context, employer model.Employer, weekStart time.Time) (Result, error) {
	if s.provider == nil {
		return Result{Status: model.StatusSkipped, Reason: "completion provider not configured"}, nil
	}

	weekStart = trend.WeekStart(weekStart)
	weekEnd := trend.WeekEnd(weekStart)

	existing, err := s.store.GetWeeklySummary(ctx, employer.Slug, weekStart)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("check existing summary: %w", err)
	}
	if existing != nil {
		return Result{Status: model.StatusExists, SummaryID: existing.ID}, nil
	}

	added, err := s.store.ListPostingsAddedBetween(ctx, employer.Slug, weekStart, weekEnd)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("list added postings: %w", err)
	}
	removed, err := s.store.ListPostingsRemovedBetween(ctx, employer.Slug, weekStart, weekEnd)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("list removed postings: %w", err)
	}
	active, err := s.store.CountActivePostings(ctx, employer.Slug)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("count active postings: %w", err)
	}
	breakdown, err := s.store.FunctionBreakdown(ctx, employer.Slug)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("function breakdown: %w", err)
	}
	previous, err := s.store.ListWeeklySummariesBefore(ctx, employer.Slug, weekStart, trend.HistoryWindow)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("list previous summaries: %w", err)
	}

	velocity := trend.Velocity(len(added), len(removed), trend.HistoryFromSummaries(previous))

	data := employerPromptData{
		EmployerName: employer.Name,
		Profile:      orDefault(employer.Profile, "No profile available"),
		AddedCount:   len(added),
		AddedList:    formatAdded(added),
		RemovedCount: len(removed),
		RemovedList:  formatRemoved(removed),
		FunctionList: formatBreakdown(breakdown, 0),
		PreviousList: formatPrevious(previous),
	}

	var prompt strings.Builder
	if err := employerTemplate.Execute(&prompt, data); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("render employer prompt: %w", err)
	}

	raw, err := s.provider.Complete(ctx, employerSystemPrompt, prompt.String(), employerSynthesisSchema)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("employer synthesis for %s: %w", employer.Slug, err)
	}

	var narrative employerNarrative
	if err := json.Unmarshal(raw, &narrative); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("parse employer synthesis: %w", err)
	}

	summary := model.WeeklySummary{
		EmployerSlug:   employer.Slug,
		WeekStart:      weekStart,
		AddedCount:     len(added),
		RemovedCount:   len(removed),
		ActiveCount:    active,
		AddedIDs:       postingIDs(added),
		RemovedIDs:     postingIDs(removed),
		Velocity:       velocity,
		SummaryText:    narrative.SummaryText,
		FocusAreas:     narrative.FocusAreas,
		NotableChanges: narrative.NotableChanges,
		Anomalies:      narrative.Anomalies,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateWeeklySummary(ctx, &summary); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("persist weekly summary: %w", err)
	}

	s.logger.Info("employer week synthesized",
		"employer", employer.Slug,
		"week_start", weekStart.Format("2006-01-02"),
		"added", len(added),
		"removed", len(removed),
		"velocity", velocity,
	)
	return Result{Status: model.StatusSuccess, SummaryID: summary.ID}, nil
}

// SectorWeek rolls this week's employer summaries into one sector summary.
// It requires at least one employer summary for the week; with none it skips
// rather than fabricating an empty report.
func (s *Synthesizer) SectorWeek(ctx context.Context, employerNames map[string]string, weekStart time.Time) (Result, error) {
	if s.provider == nil {
		return Result{Status: model.StatusSkipped, Reason: "completion provider not configured"}, nil
	}

	weekStart = trend.WeekStart(weekStart)
	weekEnd := trend.WeekEnd(weekStart)

	existing, err := s.store.GetSectorSummary(ctx, weekStart)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("check existing sector summary: %w", err)
	}
	if existing != nil {
		return Result{Status: model.StatusExists, SummaryID: existing.ID}, nil
	}

	summaries, err := s.store.ListWeeklySummariesForWeek(ctx, weekStart)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("list employer summaries: %w", err)
	}
	if len(summaries) == 0 {
		return Result{Status: model.StatusSkipped, Reason: "no employer summaries for this week"}, nil
	}

	totalAdded, totalRemoved, totalActive := 0, 0, 0
	for _, ws := range summaries {
		totalAdded += ws.AddedCount
		totalRemoved += ws.RemovedCount
		totalActive += ws.ActiveCount
	}

	breakdown, err := s.store.FunctionBreakdown(ctx, "")
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("sector function breakdown: %w", err)
	}

	recent, err := s.store.ListPostingsAddedBetween(ctx, "", weekStart, weekEnd)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("list recent postings: %w", err)
	}

	data := sectorPromptData{
		WeekStart:     weekStart.Format("2006-01-02"),
		Employers:     len(summaries),
		TotalActive:   totalActive,
		TotalAdded:    totalAdded,
		TotalRemoved:  totalRemoved,
		SummariesList: formatSummaries(summaries, employerNames),
		FunctionList:  formatBreakdown(breakdown, 10),
		KeywordList:   formatKeywords(recent),
	}

	var prompt strings.Builder
	if err := sectorTemplate.Execute(&prompt, data); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("render sector prompt: %w", err)
	}

	raw, err := s.provider.Complete(ctx, sectorSystemPrompt, prompt.String(), sectorSynthesisSchema)
	if err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("sector synthesis: %w", err)
	}

	var narrative sectorNarrative
	if err := json.Unmarshal(raw, &narrative); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("parse sector synthesis: %w", err)
	}

	summary := model.SectorSummary{
		WeekStart:      weekStart,
		Employers:      len(summaries),
		ActiveCount:    totalActive,
		AddedCount:     totalAdded,
		RemovedCount:   totalRemoved,
		SummaryText:    narrative.SummaryText,
		TrendingRoles:  narrative.TrendingRoles,
		TrendingSkills: narrative.TrendingSkills,
		SectorSignals:  narrative.SectorSignals,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateSectorSummary(ctx, &summary); err != nil {
		return Result{Status: model.StatusFailed}, fmt.Errorf("persist sector summary: %w", err)
	}

	s.logger.Info("sector week synthesized",
		"week_start", weekStart.Format("2006-01-02"),
		"employers", len(summaries),
		"added", totalAdded,
		"removed", totalRemoved,
	)
	return Result{Status: model.StatusSuccess, SummaryID: summary.ID}, nil
}

// --- prompt formatting helpers ---

func postingIDs(postings []model.Posting) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(postings))
	for _, p := range postings {
		ids = append(ids, p.ID)
	}
	return ids
}

func postingTitle(p model.Posting) string {
	if p.Enrichment != nil && p.Enrichment.NormalizedTitle != "" {
		return p.Enrichment.NormalizedTitle
	}
	return p.Title
}

func postingFunction(p model.Posting) string {
	if p.Enrichment != nil && p.Enrichment.Function != "" {
		return string(p.Enrichment.Function)
	}
	return "unknown"
}

func postingSeniority(p model.Posting) string {
	if p.Enrichment != nil && p.Enrichment.Seniority != "" {
		return string(p.Enrichment.Seniority)
	}
	return "unknown"
}

func formatAdded(postings []model.Posting) string {
	if len(postings) == 0 {
		return "No new jobs this week"
	}
	var b strings.Builder
	for i, p := range postings {
		if i == promptPostingLimit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", postingTitle(p), postingFunction(p), postingSeniority(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRemoved(postings []model.Posting) string {
	if len(postings) == 0 {
		return "No jobs removed this week"
	}
	var b strings.Builder
	for i, p := range postings {
		if i == promptPostingLimit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", postingTitle(p), postingFunction(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatBreakdown renders function counts sorted by count descending.
// limit of 0 means all.
func formatBreakdown(breakdown map[model.Function]int, limit int) string {
	if len(breakdown) == 0 {
		return "No active jobs"
	}
	type entry struct {
		fn    model.Function
		count int
	}
	entries := make([]entry, 0, len(breakdown))
	for fn, count := range breakdown {
		entries = append(entries, entry{fn, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].fn < entries[j].fn
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	var b strings.Builder
	for _, e := range entries {
		fn := string(e.fn)
		if fn == "" {
			fn = "unknown"
		}
		fmt.Fprintf(&b, "- %s: %d\n", fn, e.count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPrevious(summaries []model.WeeklySummary) string {
	if len(summaries) == 0 {
		return "No previous reports"
	}
	var b strings.Builder
	for _, ws := range summaries {
		net := ws.AddedCount - ws.RemovedCount
		fmt.Fprintf(&b, "Week of %s: +%d/-%d (net: %+d), velocity: %s\n",
			ws.WeekStart.Format("2006-01-02"), ws.AddedCount, ws.RemovedCount, net, ws.Velocity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSummaries(summaries []model.WeeklySummary, names map[string]string) string {
	var b strings.Builder
	for i, ws := range summaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		name := ws.EmployerSlug
		if n, ok := names[ws.EmployerSlug]; ok {
			name = n
		}
		notable := "None"
		if len(ws.NotableChanges) > 0 {
			notable = strings.Join(ws.NotableChanges, "; ")
		}
		fmt.Fprintf(&b, "**%s** (added: %d, removed: %d):\nVelocity: %s\nFocus: %s\nNotable: %s",
			name, ws.AddedCount, ws.RemovedCount, ws.Velocity,
			strings.Join(ws.FocusAreas, ", "), notable)
	}
	return b.String()
}

func formatKeywords(postings []model.Posting) string {
	counts := make(map[string]int)
	for _, p := range postings {
		if p.Enrichment == nil {
			continue
		}
		for _, kw := range p.Enrichment.Keywords {
			counts[kw]++
		}
	}
	if len(counts) == 0 {
		return "No keyword data"
	}

	type entry struct {
		kw    string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for kw, count := range counts {
		entries = append(entries, entry{kw, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].kw < entries[j].kw
	})
	if len(entries) > sectorKeywordLimit {
		entries = entries[:sectorKeywordLimit]
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %d\n", e.kw, e.count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
