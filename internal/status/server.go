// Package status serves health, metrics and recent scenario history over HTTP
// while the scheduler runs.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"TailHedge/internal/metrics"
	"TailHedge/internal/recorder"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// ScenarioLister reads recorded scenarios, newest first.
type ScenarioLister interface {
	RecentScenarios(limit int) ([]recorder.ScenarioRecord, error)
}

// Server is the status HTTP server.
type Server struct {
	addr    string
	router  chi.Router
	started time.Time
	log     zerolog.Logger
}

// New builds the router. lister may be nil when no history is kept.
func New(addr string, m *metrics.Metrics, lister ScenarioLister, logger zerolog.Logger) *Server {
	s := &Server{
		addr:    addr,
		started: time.Now(),
		log:     logger.With().Str("component", "status").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/scenarios", s.scenarios(lister))
	})
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("status server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) scenarios(lister ScenarioLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"error": "scenario history is disabled"})
			return
		}

		limit := defaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxLimit)
		}

		records, err := lister.RecentScenarios(limit)
		if err != nil {
			s.log.Error().Err(err).Msg("list scenarios")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to list scenarios"})
			return
		}
		if records == nil {
			records = []recorder.ScenarioRecord{}
		}
		render.JSON(w, r, records)
	}
}
