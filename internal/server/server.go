// Package server exposes the conversation API over HTTP: session tokens,
// the goal/clarify/chat turns, and the progress endpoints. It owns the
// error-to-status mapping and the idle-session sweeper.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chainlabs/questline/internal/auth"
	"github.com/chainlabs/questline/internal/cms"
	"github.com/chainlabs/questline/internal/progress"
	"github.com/chainlabs/questline/internal/turn"
)

// Options holds the assembled dependencies for the API server.
type Options struct {
	DB        *gorm.DB
	Auth      *auth.Manager
	Sequencer *turn.Sequencer
	Progress  *progress.Reconciler
	Phases    *turn.PhaseStore
	CMS       *cms.Library
	Logger    *zap.Logger

	Addr           string
	AllowedOrigins []string

	// Sessions idle longer than IdleTimeout are deactivated by the
	// sweeper, which runs every SweepInterval.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Server is the assembled HTTP server.
type Server struct {
	engine  *gin.Engine
	addr    string
	logger  *zap.Logger
	sweeper *sweeper
}

// New builds the server and registers all routes.
func New(opts Options) (*Server, error) {
	if opts.DB == nil || opts.Auth == nil || opts.Sequencer == nil || opts.Progress == nil || opts.Phases == nil {
		return nil, fmt.Errorf("server: db, auth, sequencer, progress and phases are required")
	}
	if opts.CMS == nil {
		opts.CMS = cms.NewLibrary()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestTiming(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		engine.Use(corsMiddleware(opts.AllowedOrigins))
	}

	registerRoutes(engine, opts)

	var sw *sweeper
	if opts.IdleTimeout > 0 {
		sw = newSweeper(opts.DB, opts.IdleTimeout, opts.SweepInterval, opts.Logger)
	}

	return &Server{
		engine:  engine,
		addr:    opts.Addr,
		logger:  opts.Logger,
		sweeper: sw,
	}, nil
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	if s.sweeper != nil {
		s.sweeper.start()
		defer s.sweeper.stop()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
