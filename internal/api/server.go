package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/alerts"
	"metric-anomaly-alerts/internal/config"
)

// Server exposes the outward alert surface: recent listing plus the
// acknowledge/resolve lifecycle mutations.
type Server struct {
	svc    *alerts.Service
	logger zerolog.Logger
	http   *http.Server
}

// NewServer builds the router and HTTP server.
func NewServer(cfg config.APIConfig, svc *alerts.Service, logger zerolog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.With().Str("component", "api").Logger(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/alerts/recent", s.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id:[0-9]+}/ack", s.handleAcknowledge).Methods(http.MethodPost)
	router.HandleFunc("/alerts/{id:[0-9]+}/resolve", s.handleResolve).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("api listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
