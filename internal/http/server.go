// Package http serves the budget tracker's JSON API. Every authenticated
// request runs against the workspace of its bearer token.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tazzio/internal/cache"
	"tazzio/internal/log"
	"tazzio/internal/middleware/ratelimit"
	"tazzio/internal/middleware/security"
	"tazzio/internal/middleware/trace"
	"tazzio/internal/store"
)

// Config wires the server to its backend.
type Config struct {
	Addr   string
	Remote store.Remote
	// Ping reports backend readiness; nil means always ready.
	Ping   func(ctx context.Context) error
	Logger *log.Logger

	RateLimitPerMinute int
	WorkspaceTTL       time.Duration
	WorkspaceSize      int
	// CleanupInterval is how often idle workspaces are swept.
	CleanupInterval time.Duration
	// Now is the clock of every budget store; time.Now when nil.
	Now func() time.Time
}

// Server is the API server.
type Server struct {
	http.Server

	registry *Registry
	ping     func(ctx context.Context) error
	logger   *log.Logger

	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	s := &Server{
		registry: NewRegistry(cfg.Remote, RegistryConfig{
			TTL:     cfg.WorkspaceTTL,
			MaxSize: cfg.WorkspaceSize,
			Now:     cfg.Now,
		}, logger),
		ping:     cfg.Ping,
		logger:   logger.WithComponent(log.ComponentHTTP),
		caches:   cache.NewManager(logger),
		detector: security.NewDetector(logger),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.caches.Register(s.registry.Cache())
	s.caches.StartCleanup(cfg.CleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, true, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.authed(s.handleSignOut))
	mux.HandleFunc("POST /api/auth/password-reset", s.handlePasswordReset)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", s.handlePasswordResetConfirm)
	mux.HandleFunc("PUT /api/auth/email", s.authed(s.handleChangeEmail))
	mux.HandleFunc("PUT /api/auth/password", s.authed(s.handleChangePassword))

	mux.HandleFunc("GET /api/state", s.authed(s.handleState))
	mux.HandleFunc("GET /api/reports", s.authed(s.handleReport))
	mux.HandleFunc("GET /api/translations/{key}", s.authed(s.handleTranslation))
	mux.HandleFunc("GET /api/quote", s.authed(s.handleQuote))

	mux.HandleFunc("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.authed(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.authed(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.HandleFunc("PUT /api/budgets/{categoryID}", s.authed(s.handleUpdateBudget))

	mux.HandleFunc("POST /api/buyers", s.authed(s.handleAddBuyer))
	mux.HandleFunc("PUT /api/buyers/{id}", s.authed(s.handleUpdateBuyer))
	mux.HandleFunc("DELETE /api/buyers/{id}", s.authed(s.handleRemoveBuyer))
	mux.HandleFunc("PUT /api/buyers/{id}/income", s.authed(s.handleUpdateIncome))

	mux.HandleFunc("POST /api/categories", s.authed(s.handleAddCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.authed(s.handleRenameCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authed(s.handleRemoveCategory))

	mux.HandleFunc("POST /api/savings", s.authed(s.handleAddSavingsGoal))
	mux.HandleFunc("POST /api/savings/{id}/contributions", s.authed(s.handleContribute))
	mux.HandleFunc("DELETE /api/savings/{id}", s.authed(s.handleRemoveSavingsGoal))

	mux.HandleFunc("PUT /api/settings/language", s.authed(s.handleSetLanguage))
	mux.HandleFunc("PUT /api/settings/currency", s.authed(s.handleSetCurrency))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
}

// wsHandler is a handler that runs against an authenticated workspace.
type wsHandler func(w http.ResponseWriter, r *http.Request, ws *Workspace)

// authed resolves the bearer token to its workspace and tags the request
// logger with the user.
func (s *Server) authed(next wsHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		ws, err := s.registry.Lookup(r.Context(), token)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if id, ok := ws.session.Current(); ok {
			r = r.WithContext(log.Annotate(r.Context(), log.FieldUserID, id.ID))
		}
		next(w, r, ws)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, CodeRemote, "data store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]any{
		"status":     "ready",
		"workspaces": s.registry.Size(),
	}).Write(w)
}

// Metrics summarises the middleware counters.
type Metrics struct {
	Requests           int64 `json:"requests"`
	ServerErrors       int64 `json:"serverErrors"`
	AvgResponseMicros  int64 `json:"avgResponseMicros"`
	RateLimited        int64 `json:"rateLimited"`
	SuspiciousRequests int64 `json:"suspiciousRequests"`
	Workspaces         int   `json:"workspaces"`
}

func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	return Metrics{
		Requests:           tm.TotalRequests,
		ServerErrors:       tm.ServerErrors,
		AvgResponseMicros:  tm.AverageResponseTime,
		RateLimited:        s.limiter.GetMetrics().TotalHits,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
		Workspaces:         s.registry.Size(),
	}
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.caches.Stop()
		s.limiter.Stop()
		s.registry.Close()
		m := s.Metrics()
		s.logger.Info("HTTP server stopped",
			"requests", m.Requests,
			"server_errors", m.ServerErrors,
			"rate_limited", m.RateLimited)
	})
	return shutdownErr
}
