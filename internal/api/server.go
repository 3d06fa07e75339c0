package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/orchestrate"
	"github.com/tyhouch/openroles.dev/internal/store"
)

// Server exposes the read API plus key-protected admin operations.
type Server struct {
	store    store.Store
	orch     *orchestrate.Orchestrator
	adminKey string // empty disables all admin routes
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer builds the HTTP handler.
func NewServer(st store.Store, orch *orchestrate.Orchestrator, adminKey string, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		orch:     orch,
		adminKey: adminKey,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/postings", s.handleListPostings)
	s.mux.HandleFunc("GET /api/employers", s.handleListEmployers)
	s.mux.HandleFunc("GET /api/summaries/sector", s.handleLatestSectorSummary)
	s.mux.HandleFunc("GET /api/summaries/sector/history", s.handleSectorHistory)
	s.mux.HandleFunc("GET /api/summaries/company/{slug}", s.handleLatestEmployerSummary)
	s.mux.HandleFunc("GET /api/summaries/company/{slug}/history", s.handleEmployerHistory)

	s.mux.HandleFunc("GET /admin/scrape-runs", s.admin(s.handleListScrapeRuns))
	s.mux.HandleFunc("POST /admin/scrape/{slug}", s.admin(s.handleScrapeEmployer))
	s.mux.HandleFunc("POST /admin/scrape-all", s.admin(s.handleScrapeAll))
	s.mux.HandleFunc("POST /admin/enrich", s.admin(s.handleEnrich))
	s.mux.HandleFunc("POST /admin/enrich-all", s.admin(s.handleEnrichAll))
	s.mux.HandleFunc("POST /admin/synthesize/{slug}", s.admin(s.handleSynthesizeEmployer))
	s.mux.HandleFunc("POST /admin/synthesize-sector", s.admin(s.handleSynthesizeSector))
	s.mux.HandleFunc("POST /admin/synthesize-all", s.admin(s.handleSynthesizeAll))
	s.mux.HandleFunc("POST /admin/reset", s.admin(s.handleReset))
	s.mux.HandleFunc("POST /admin/repopulate", s.admin(s.handleRepopulate))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// admin gates a handler behind the X-Admin-Key header. With no key
// configured the whole admin surface is disabled.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.writeError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		if r.Header.Get("X-Admin-Key") != s.adminKey {
			s.writeError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs the real cause and hides it from the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// parseWeek parses an optional ?week=2006-01-02 query parameter. A zero time
// means "not specified".
func parseWeek(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("week")
	if raw == "" {
		return time.Time{}, nil
	}
	week, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week %q, want YYYY-MM-DD", raw)
	}
	return week, nil
}

// parseLimit parses ?limit= with a default and a hard ceiling.
func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	var limit int
	if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// employerOr404 resolves a path slug against the configured employer set.
func (s *Server) employerOr404(w http.ResponseWriter, r *http.Request) (model.Employer, bool) {
	slug := r.PathValue("slug")
	for _, e := range s.orch.Employers() {
		if e.Slug == slug {
			return e, true
		}
	}
	s.writeError(w, http.StatusNotFound, "employer not found")
	return model.Employer{}, false
}

// Run serves until the context is cancelled, then drains with a timeout.
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
