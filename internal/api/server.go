package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// Server exposes health, metrics and a small read-only session API.
type Server struct {
	http     *http.Server
	sessions *sessionservice.SessionService
	logger   *slog.Logger
}

// NewServer builds the HTTP server on addr, serving registry at /metrics.
func NewServer(addr string, sessions *sessionservice.SessionService, registry *prometheus.Registry, logger *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/api/v1/sessions", s.handleListSessions)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.InfoContext(ctx, "HTTP server started", slog.String("addr", s.http.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guild_id")
	if guildID == "" {
		http.Error(w, `{"error":"guild_id is required"}`, http.StatusBadRequest)
		return
	}

	sessions, err := s.sessions.ListActiveSessions(r.Context(), sharedtypes.GuildID(guildID))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list sessions", slog.Any("error", err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode sessions", slog.Any("error", err))
	}
}
