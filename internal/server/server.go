package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/clientstate"
	"github.com/chapter-verse/bookfront/internal/store"
)

type Options struct {
	Port          int
	TokenFile     string
	SessionSecret []byte
	SecureCookies bool
	// AllowBrandOverride lets ?brand=<variant> force an assignment (QA).
	AllowBrandOverride bool
	EventRate          rate.Limit
	EventBurst         int
	Logger             *zap.Logger
	Assigner           *brand.Assigner
}

type Server struct {
	store         *store.SQLiteStore
	recorder      *analytics.Recorder
	assigner      *brand.Assigner
	cookies       *clientstate.Cookies
	limiter       *ipLimiter
	logger        *zap.Logger
	port          int
	token         string
	tokenFile     string
	allowOverride bool
	router        *http.ServeMux
	startTime     time.Time
}

func New(s *store.SQLiteStore, rec *analytics.Recorder, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Assigner == nil {
		opts.Assigner = brand.NewAssigner(brand.WithLogger(opts.Logger))
	}
	if opts.EventRate == 0 {
		opts.EventRate = 5
	}
	if opts.EventBurst == 0 {
		opts.EventBurst = 20
	}

	srv := &Server{
		store:         s,
		recorder:      rec,
		assigner:      opts.Assigner,
		cookies:       clientstate.NewCookies(opts.SessionSecret, opts.SecureCookies),
		limiter:       newIPLimiter(opts.EventRate, opts.EventBurst),
		logger:        opts.Logger,
		port:          opts.Port,
		token:         generateToken(),
		tokenFile:     opts.TokenFile,
		allowOverride: opts.AllowBrandOverride,
		router:        http.NewServeMux(),
		startTime:     time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/brand", s.handleBrand)
	s.router.Handle("POST /api/events", s.rateLimit(http.HandlerFunc(s.handleEvent)))
	s.router.HandleFunc("POST /api/pre-orders", s.handlePreOrder)
	s.router.HandleFunc("POST /api/contact", s.handleContact)
	s.router.HandleFunc("GET /api/saved-books", s.handleListSavedBooks)
	s.router.HandleFunc("POST /api/saved-books", s.handleSaveBook)
	s.router.HandleFunc("DELETE /api/saved-books", s.handleUnsaveBook)
	s.router.HandleFunc("GET /api/tiers", s.handleTiers)
	s.router.HandleFunc("GET /api/subscriptions", s.handleGetSubscription)
	s.router.HandleFunc("POST /api/subscriptions", s.handleSelectSubscription)

	// Dashboard endpoints (admin only)
	s.router.Handle("GET /dashboard", s.authMiddleware(http.HandlerFunc(s.handleDashboard)))
	s.router.Handle("GET /dashboard/api/experiment", s.authMiddleware(http.HandlerFunc(s.handleExperimentAPI)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("server started", zap.Int("port", s.port))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) Token() string {
	return s.token
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

func generateToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a fixed token if crypto/rand fails
		return "a1b2c3d4e5f60718"
	}
	return hex.EncodeToString(bytes)
}
