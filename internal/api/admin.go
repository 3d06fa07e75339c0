package api

import (
	"net/http"
)

func (s *Server) handleListScrapeRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)
	runs, err := s.store.ListScrapeRuns(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]scrapeRunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toScrapeRunDTO(run))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScrapeEmployer(w http.ResponseWriter, r *http.Request) {
	employer, ok := s.employerOr404(w, r)
	if !ok {
		return
	}
	result, err := s.orch.ScrapeEmployer(r.Context(), employer.Slug)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScrapeAll(w http.ResponseWriter, r *http.Request) {
	enrichAfter := r.URL.Query().Get("enrich") == "true"
	result, err := s.orch.ScrapeAll(r.Context(), enrichAfter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 0, 1000)
	result, err := s.orch.EnrichBatch(r.Context(), r.URL.Query().Get("employer"), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEnrichAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.DrainEnrichment(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSynthesizeEmployer(w http.ResponseWriter, r *http.Request) {
	employer, ok := s.employerOr404(w, r)
	if !ok {
		return
	}
	week, err := parseWeek(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := s.orch.SynthesizeEmployer(r.Context(), employer.Slug, week, force)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSynthesizeSector(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := s.orch.SynthesizeSector(r.Context(), week, force)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSynthesizeAll(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := s.orch.SynthesizeAll(r.Context(), week, force)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	counts, err := s.orch.Reset(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": counts})
}

func (s *Server) handleRepopulate(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.Repopulate(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
