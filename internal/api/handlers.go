package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/store"
	"github.com/tyhouch/openroles.dev/internal/trend"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxHistory      = 52
)

func (s *Server) handleListPostings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.PostingFilter{
		EmployerSlug: q.Get("employer"),
		Limit:        parseLimit(r, defaultPageSize, maxPageSize),
	}
	if fn := q.Get("function"); fn != "" {
		filter.Function = model.Function(fn)
	}
	if sen := q.Get("seniority"); sen != "" {
		filter.Seniority = model.Seniority(sen)
	}
	if off := q.Get("offset"); off != "" {
		var offset int
		if _, err := fmt.Sscanf(off, "%d", &offset); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}

	switch status := q.Get("status"); status {
	case "", "active":
		filter.OnlyActive = true
	case "removed":
		filter.OnlyRemoved = true
	case "added_this_week":
		filter.OnlyActive = true
		filter.AddedSince = trend.WeekStart(time.Now().UTC())
	case "all":
	default:
		s.writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	postings, total, err := s.store.QueryPostings(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	jobs := make([]postingDTO, 0, len(postings))
	for _, p := range postings {
		jobs = append(jobs, toPostingDTO(p))
	}
	s.writeJSON(w, http.StatusOK, postingPage{
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Jobs:   jobs,
	})
}

func (s *Server) handleListEmployers(w http.ResponseWriter, r *http.Request) {
	employers := s.orch.Employers()
	out := make([]employerDTO, 0, len(employers))
	for _, e := range employers {
		count, err := s.store.CountActivePostings(r.Context(), e.Slug)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		out = append(out, employerDTO{
			Name:        e.Name,
			Slug:        e.Slug,
			ATS:         string(e.ATS),
			ActiveCount: count,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestSectorSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListSectorSummaries(r.Context(), 1)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(summaries) == 0 {
		s.writeError(w, http.StatusNotFound, "no sector summaries yet")
		return
	}
	s.writeJSON(w, http.StatusOK, toSectorSummaryDTO(summaries[0]))
}

func (s *Server) handleSectorHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 12, maxHistory)
	summaries, err := s.store.ListSectorSummaries(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]sectorSummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toSectorSummaryDTO(sum))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestEmployerSummary(w http.ResponseWriter, r *http.Request) {
	employer, ok := s.employerOr404(w, r)
	if !ok {
		return
	}
	summaries, err := s.store.ListWeeklySummaries(r.Context(), employer.Slug, 1)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(summaries) == 0 {
		s.writeError(w, http.StatusNotFound, "no summaries for this employer yet")
		return
	}
	s.writeJSON(w, http.StatusOK, toWeeklySummaryDTO(summaries[0]))
}

func (s *Server) handleEmployerHistory(w http.ResponseWriter, r *http.Request) {
	employer, ok := s.employerOr404(w, r)
	if !ok {
		return
	}
	limit := parseLimit(r, 12, maxHistory)
	summaries, err := s.store.ListWeeklySummaries(r.Context(), employer.Slug, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]weeklySummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toWeeklySummaryDTO(sum))
	}
	s.writeJSON(w, http.StatusOK, out)
}
