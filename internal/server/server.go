package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/clawminium/agentkernel/internal/alert"
	"github.com/clawminium/agentkernel/internal/config"
	"github.com/clawminium/agentkernel/internal/middleware"
	"github.com/clawminium/agentkernel/internal/policy"
	"github.com/clawminium/agentkernel/internal/store"
)

const (
	shutdownTimeout  = 10 * time.Second
	baseWriteTimeout = 60 * time.Second
	// room to encode and write the envelope after a tool call times out
	writeMargin = 10 * time.Second
)

type Server struct {
	cfg     *config.Config
	http    *http.Server
	handler http.Handler

	// held for graceful close
	store    store.Store
	notifier *alert.Notifier
	limiter  *middleware.RateLimiter
	watcher  *policy.Watcher

	// cancelled on shutdown so discovery streams end
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	router, err := s.setupRoutes()
	if err != nil {
		s.cancelBase()
		s.closeResources(context.Background())
		return nil, fmt.Errorf("setup routes: %w", err)
	}
	s.handler = router

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg), // discovery streams clear their own deadline
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return s.baseCtx },
	}
	s.http.RegisterOnShutdown(s.cancelBase)

	return s, nil
}

// writeTimeout outlasts the per-call deadline so a timed-out tools/call can
// still answer with an envelope.
func writeTimeout(cfg *config.Config) time.Duration {
	return max(baseWriteTimeout, cfg.ToolCallDeadline()+writeMargin)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled or the listener fails, then shuts down:
// HTTP first (ending discovery streams), then the alert queue and the store.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", s.http.Addr).Msg("kernel listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.closeResources(shutdownCtx)
		return err
	})

	return g.Wait()
}

func (s *Server) closeResources(ctx context.Context) {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing policy watcher")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("alert queue not drained")
		}
		st := s.notifier.Stats()
		log.Info().
			Int64("delivered", st.Delivered).
			Int64("failed", st.Failed).
			Int64("dropped", st.Dropped).
			Msg("alert notifier closed")
	}
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing store")
		}
	}
}
