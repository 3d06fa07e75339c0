package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func makePosting(slug, externalID, title string) model.Posting {
	return model.Posting{
		ID:           uuid.New(),
		EmployerSlug: slug,
		ExternalID:   externalID,
		Title:        title,
		JobURL:       "https://example.com/" + externalID,
		FirstSeen:    testTime,
		LastSeen:     testTime,
	}
}

// insertPostings seeds postings through the reconcile path, the only write
// path that creates rows.
func insertPostings(t *testing.T, s *SQLite, postings ...model.Posting) {
	t.Helper()
	run := &model.ScrapeRun{EmployerSlug: "seed", StartedAt: testTime}
	if err := s.CreateScrapeRun(context.Background(), run); err != nil {
		t.Fatalf("CreateScrapeRun: %v", err)
	}
	completed := testTime
	run.CompletedAt = &completed
	run.Status = model.RunStatusSuccess
	run.Found = len(postings)
	run.Added = len(postings)
	err := s.ApplyReconcileDelta(context.Background(), ReconcileDelta{
		Run:       *run,
		Created:   postings,
		Timestamp: testTime,
	})
	if err != nil {
		t.Fatalf("ApplyReconcileDelta: %v", err)
	}
}

func TestPostingRoundTrip(t *testing.T) {
	s := newTestStore(t)

	published := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	p := makePosting("acme", "job-1", "Platform Engineer")
	p.DescriptionHTML = "<p>Build things.</p>"
	p.DescriptionPlain = "Build things."
	p.Department = "Infrastructure"
	p.Location = "San Francisco"
	p.ApplyURL = "https://example.com/job-1/apply"
	p.PublishedAt = &published
	insertPostings(t, s, p)

	got, err := s.ListPostings(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	if diff := cmp.Diff(p, got[0]); diff != "" {
		t.Errorf("posting mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveEnrichmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := makePosting("acme", "job-1", "Senior ML Engineer")
	insertPostings(t, s, p)

	years := 5
	salaryMin, salaryMax := 180000, 250000
	enr := &model.Enrichment{
		NormalizedTitle:    "Machine Learning Engineer",
		Seniority:          model.SenioritySenior,
		Function:           model.FunctionMLAI,
		TeamArea:           "training",
		IsLeadership:       false,
		ExperienceYearsMin: &years,
		RemotePolicy:       model.RemotePolicyHybrid,
		TechStack:          []string{"python", "pytorch"},
		Keywords:           []string{"llm", "inference"},
		NotableSignals:     []string{"new team"},
		SalaryMin:          &salaryMin,
		SalaryMax:          &salaryMax,
		SalaryCurrency:     "USD",
	}
	enrichedAt := testTime.Add(time.Hour)
	if err := s.SaveEnrichment(context.Background(), p.ID, enr, enrichedAt); err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}

	got, err := s.ListPostings(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if got[0].EnrichedAt == nil || !got[0].EnrichedAt.Equal(enrichedAt) {
		t.Errorf("expected enriched_at %v, got %v", enrichedAt, got[0].EnrichedAt)
	}
	if diff := cmp.Diff(enr, got[0].Enrichment); diff != "" {
		t.Errorf("enrichment mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingEnrichment(t *testing.T) {
	s := newTestStore(t)
	p1 := makePosting("acme", "job-1", "Engineer")
	p2 := makePosting("acme", "job-2", "Designer")
	p3 := makePosting("globex", "job-3", "Researcher")
	insertPostings(t, s, p1, p2, p3)

	count, err := s.CountPendingEnrichment(context.Background())
	if err != nil {
		t.Fatalf("CountPendingEnrichment: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 pending, got %d", count)
	}

	// Enriching one and removing another leaves one pending.
	if err := s.SaveEnrichment(context.Background(), p1.ID, &model.Enrichment{}, testTime); err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}
	run := &model.ScrapeRun{EmployerSlug: "acme", StartedAt: testTime}
	if err := s.CreateScrapeRun(context.Background(), run); err != nil {
		t.Fatalf("CreateScrapeRun: %v", err)
	}
	err = s.ApplyReconcileDelta(context.Background(), ReconcileDelta{
		Run:        *run,
		RemovedIDs: []uuid.UUID{p2.ID},
		Timestamp:  testTime,
	})
	if err != nil {
		t.Fatalf("ApplyReconcileDelta: %v", err)
	}

	pending, err := s.ListPendingEnrichment(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListPendingEnrichment: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != p3.ID {
		t.Fatalf("expected only job-3 pending, got %d postings", len(pending))
	}

	none, err := s.ListPendingEnrichment(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListPendingEnrichment with zero limit: %v", err)
	}
	if none != nil {
		t.Errorf("zero limit should select nothing, got %d", len(none))
	}
}

func TestQueryPostings(t *testing.T) {
	s := newTestStore(t)
	p1 := makePosting("acme", "job-1", "Engineer")
	p2 := makePosting("acme", "job-2", "Designer")
	p3 := makePosting("globex", "job-3", "Researcher")
	p3.FirstSeen = testTime.Add(time.Hour)
	p3.LastSeen = p3.FirstSeen
	insertPostings(t, s, p1, p2, p3)

	if err := s.SaveEnrichment(context.Background(), p1.ID, &model.Enrichment{
		Function:  model.FunctionEngineering,
		Seniority: model.SeniorityMid,
	}, testTime); err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}

	all, total, err := s.QueryPostings(context.Background(), PostingFilter{OnlyActive: true, Limit: 10})
	if err != nil {
		t.Fatalf("QueryPostings: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 postings, got total %d len %d", total, len(all))
	}
	if all[0].ID != p3.ID {
		t.Errorf("expected newest posting first, got %s", all[0].ExternalID)
	}

	page, total, err := s.QueryPostings(context.Background(), PostingFilter{OnlyActive: true, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("QueryPostings paginated: %v", err)
	}
	if total != 3 {
		t.Errorf("total should ignore pagination, got %d", total)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 posting on last page, got %d", len(page))
	}

	byFunc, total, err := s.QueryPostings(context.Background(), PostingFilter{
		Function: model.FunctionEngineering, Limit: 10,
	})
	if err != nil {
		t.Fatalf("QueryPostings by function: %v", err)
	}
	if total != 1 || byFunc[0].ID != p1.ID {
		t.Fatalf("expected only the enriched engineering posting, got total %d", total)
	}

	recent, total, err := s.QueryPostings(context.Background(), PostingFilter{
		AddedSince: testTime.Add(30 * time.Minute), Limit: 10,
	})
	if err != nil {
		t.Fatalf("QueryPostings by added-since: %v", err)
	}
	if total != 1 || recent[0].ID != p3.ID {
		t.Fatalf("expected only job-3 added since cutoff, got total %d", total)
	}
}

func TestAddedAndRemovedBetween(t *testing.T) {
	s := newTestStore(t)
	p1 := makePosting("acme", "job-1", "Engineer")
	p2 := makePosting("acme", "job-2", "Designer")
	p2.FirstSeen = testTime.Add(48 * time.Hour)
	p2.LastSeen = p2.FirstSeen
	insertPostings(t, s, p1, p2)

	from := testTime.Add(-time.Hour)
	to := testTime.Add(24 * time.Hour)
	added, err := s.ListPostingsAddedBetween(context.Background(), "acme", from, to)
	if err != nil {
		t.Fatalf("ListPostingsAddedBetween: %v", err)
	}
	if len(added) != 1 || added[0].ID != p1.ID {
		t.Fatalf("expected only job-1 in window, got %d", len(added))
	}

	// The window is half-open: a posting first seen exactly at `to` is out.
	exact, err := s.ListPostingsAddedBetween(context.Background(), "acme", testTime, testTime)
	if err != nil {
		t.Fatalf("ListPostingsAddedBetween empty window: %v", err)
	}
	if len(exact) != 0 {
		t.Errorf("empty window should match nothing, got %d", len(exact))
	}

	removedAt := testTime.Add(2 * time.Hour)
	run := &model.ScrapeRun{EmployerSlug: "acme", StartedAt: removedAt}
	if err := s.CreateScrapeRun(context.Background(), run); err != nil {
		t.Fatalf("CreateScrapeRun: %v", err)
	}
	err = s.ApplyReconcileDelta(context.Background(), ReconcileDelta{
		Run:        *run,
		RemovedIDs: []uuid.UUID{p1.ID},
		Timestamp:  removedAt,
	})
	if err != nil {
		t.Fatalf("ApplyReconcileDelta: %v", err)
	}

	removed, err := s.ListPostingsRemovedBetween(context.Background(), "acme", from, to)
	if err != nil {
		t.Fatalf("ListPostingsRemovedBetween: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != p1.ID {
		t.Fatalf("expected job-1 removed in window, got %d", len(removed))
	}
}

func TestFunctionBreakdown(t *testing.T) {
	s := newTestStore(t)
	p1 := makePosting("acme", "job-1", "Engineer")
	p2 := makePosting("acme", "job-2", "Engineer II")
	p3 := makePosting("acme", "job-3", "Designer")
	insertPostings(t, s, p1, p2, p3)

	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		if err := s.SaveEnrichment(context.Background(), id, &model.Enrichment{Function: model.FunctionEngineering}, testTime); err != nil {
			t.Fatalf("SaveEnrichment: %v", err)
		}
	}

	breakdown, err := s.FunctionBreakdown(context.Background(), "acme")
	if err != nil {
		t.Fatalf("FunctionBreakdown: %v", err)
	}
	if breakdown[model.FunctionEngineering] != 2 {
		t.Errorf("expected 2 engineering postings, got %d", breakdown[model.FunctionEngineering])
	}
	// The unenriched posting counts under the empty key.
	if breakdown[model.Function("")] != 1 {
		t.Errorf("expected 1 unenriched posting, got %d", breakdown[model.Function("")])
	}
}

func TestScrapeRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	run := &model.ScrapeRun{EmployerSlug: "acme", StartedAt: testTime}
	if err := s.CreateScrapeRun(context.Background(), run); err != nil {
		t.Fatalf("CreateScrapeRun: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatal("CreateScrapeRun should assign an ID")
	}

	completedAt := testTime.Add(time.Minute)
	if err := s.FinalizeScrapeRunFailed(context.Background(), run.ID, completedAt, 7, "board down"); err != nil {
		t.Fatalf("FinalizeScrapeRunFailed: %v", err)
	}

	runs, err := s.ListScrapeRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListScrapeRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != model.RunStatusFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if got.Found != 7 || got.ErrorText != "board down" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestListScrapeRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		run := &model.ScrapeRun{EmployerSlug: "acme", StartedAt: testTime.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateScrapeRun(context.Background(), run); err != nil {
			t.Fatalf("CreateScrapeRun: %v", err)
		}
	}

	runs, err := s.ListScrapeRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListScrapeRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit to apply, got %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("expected newest run first")
	}
}

func TestWeeklySummaryLifecycle(t *testing.T) {
	s := newTestStore(t)
	week := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	sum := &model.WeeklySummary{
		EmployerSlug: "acme",
		WeekStart:    week,
		AddedCount:   4,
		RemovedCount: 1,
		ActiveCount:  20,
		AddedIDs:     []uuid.UUID{uuid.New(), uuid.New()},
		Velocity:     model.VelocityUp,
		SummaryText:  "Hiring picked up.",
		FocusAreas:   []string{"infrastructure"},
		CreatedAt:    testTime,
	}
	if err := s.CreateWeeklySummary(context.Background(), sum); err != nil {
		t.Fatalf("CreateWeeklySummary: %v", err)
	}

	got, err := s.GetWeeklySummary(context.Background(), "acme", week)
	if err != nil {
		t.Fatalf("GetWeeklySummary: %v", err)
	}
	if got == nil {
		t.Fatal("expected summary, got nil")
	}
	if got.Velocity != model.VelocityUp || got.AddedCount != 4 {
		t.Errorf("unexpected summary: %+v", got)
	}
	if len(got.AddedIDs) != 2 {
		t.Errorf("expected 2 added ids, got %d", len(got.AddedIDs))
	}
	// Absent list fields come back empty, never nil.
	if got.NotableChanges == nil || got.Anomalies == nil {
		t.Error("list fields should round-trip as empty slices")
	}

	// Duplicate employer-week violates the unique constraint.
	dup := &model.WeeklySummary{EmployerSlug: "acme", WeekStart: week, CreatedAt: testTime}
	if err := s.CreateWeeklySummary(context.Background(), dup); err == nil {
		t.Error("expected duplicate employer-week to fail")
	}

	if err := s.DeleteWeeklySummary(context.Background(), "acme", week); err != nil {
		t.Fatalf("DeleteWeeklySummary: %v", err)
	}
	got, err = s.GetWeeklySummary(context.Background(), "acme", week)
	if err != nil {
		t.Fatalf("GetWeeklySummary after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestListWeeklySummariesBefore(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		sum := &model.WeeklySummary{
			EmployerSlug: "acme",
			WeekStart:    base.AddDate(0, 0, -7*i),
			AddedCount:   i,
			CreatedAt:    testTime,
		}
		if err := s.CreateWeeklySummary(context.Background(), sum); err != nil {
			t.Fatalf("CreateWeeklySummary: %v", err)
		}
	}

	// Strictly before: the base week itself is excluded.
	before, err := s.ListWeeklySummariesBefore(context.Background(), "acme", base, 2)
	if err != nil {
		t.Fatalf("ListWeeklySummariesBefore: %v", err)
	}
	if len(before) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(before))
	}
	if !before[0].WeekStart.Equal(base.AddDate(0, 0, -7)) {
		t.Errorf("expected most recent prior week first, got %s", before[0].WeekStart)
	}

	forWeek, err := s.ListWeeklySummariesForWeek(context.Background(), base)
	if err != nil {
		t.Fatalf("ListWeeklySummariesForWeek: %v", err)
	}
	if len(forWeek) != 1 {
		t.Errorf("expected 1 summary for the base week, got %d", len(forWeek))
	}
}

func TestSectorSummaryLifecycle(t *testing.T) {
	s := newTestStore(t)
	week := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	got, err := s.GetSectorSummary(context.Background(), week)
	if err != nil {
		t.Fatalf("GetSectorSummary: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil before creation")
	}

	sum := &model.SectorSummary{
		WeekStart:     week,
		Employers:     5,
		ActiveCount:   120,
		AddedCount:    18,
		RemovedCount:  6,
		SummaryText:   "Sector expanding.",
		TrendingRoles: []string{"ml engineer"},
		CreatedAt:     testTime,
	}
	if err := s.CreateSectorSummary(context.Background(), sum); err != nil {
		t.Fatalf("CreateSectorSummary: %v", err)
	}

	got, err = s.GetSectorSummary(context.Background(), week)
	if err != nil {
		t.Fatalf("GetSectorSummary: %v", err)
	}
	if got == nil || got.Employers != 5 || got.TrendingRoles[0] != "ml engineer" {
		t.Fatalf("unexpected sector summary: %+v", got)
	}

	list, err := s.ListSectorSummaries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSectorSummaries: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 sector summary, got %d", len(list))
	}

	if err := s.DeleteSectorSummary(context.Background(), week); err != nil {
		t.Fatalf("DeleteSectorSummary: %v", err)
	}
	got, err = s.GetSectorSummary(context.Background(), week)
	if err != nil {
		t.Fatalf("GetSectorSummary after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestWipe(t *testing.T) {
	s := newTestStore(t)
	insertPostings(t, s, makePosting("acme", "job-1", "Engineer"))
	week := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if err := s.CreateWeeklySummary(context.Background(), &model.WeeklySummary{
		EmployerSlug: "acme", WeekStart: week, CreatedAt: testTime,
	}); err != nil {
		t.Fatalf("CreateWeeklySummary: %v", err)
	}
	if err := s.CreateSectorSummary(context.Background(), &model.SectorSummary{
		WeekStart: week, CreatedAt: testTime,
	}); err != nil {
		t.Fatalf("CreateSectorSummary: %v", err)
	}

	counts, err := s.Wipe(context.Background())
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if counts.Postings != 1 || counts.ScrapeRuns != 1 ||
		counts.WeeklySummaries != 1 || counts.SectorSummaries != 1 {
		t.Errorf("unexpected wipe counts: %+v", counts)
	}

	remaining, err := s.ListPostings(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected empty store after wipe, got %d postings", len(remaining))
	}
}
