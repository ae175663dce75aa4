package http

import (
	"context"
	"net/http"
	"time"

	"ledger/internal/auth"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

const readyTimeout = 2 * time.Second

// Options wires the server to the ledger and its middleware. Limiter and
// Detector are optional; Guard is required for the /api routes.
type Options struct {
	Addr     string
	Service  *services.LedgerService
	Guard    auth.Authenticator
	Limiter  *ratelimit.Limiter
	Detector *security.Detector
	Headers  security.HeadersConfig
	Logger   *applog.Logger
	Now      func() time.Time
}

type Server struct {
	http.Server
	svc   *services.LedgerService
	trace *trace.Middleware
	now   func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Detector == nil {
		opts.Detector = security.NewDetector()
	}

	s := &Server{
		svc: opts.Service,
		now: opts.Now,
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("GET /api/expenses", s.handleListExpenses)
	api.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	api.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	api.HandleFunc("POST /api/incomes", s.handleCreateIncome)
	api.HandleFunc("GET /api/incomes", s.handleListIncomes)
	api.HandleFunc("PUT /api/incomes/{id}", s.handleUpdateIncome)
	api.HandleFunc("DELETE /api/incomes/{id}", s.handleDeleteIncome)
	api.HandleFunc("POST /api/transfers", s.handleTransfer)
	api.HandleFunc("GET /api/transfers", s.handleListTransfers)
	api.HandleFunc("GET /api/accounts", s.handleListAccounts)
	api.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	api.HandleFunc("GET /api/accounts/{id}/journal", s.handleAccountJournal)
	api.HandleFunc("GET /api/saving-goals", s.handleListGoals)
	api.HandleFunc("POST /api/saving-goals", s.handleCreateGoal)
	api.HandleFunc("POST /api/saving-goals/{id}/allocate", s.handleAllocate)

	var protected http.Handler = api
	protected = auth.Require(opts.Guard, denyRequest)(protected)
	if opts.Limiter != nil {
		protected = opts.Limiter.Middleware(opts.Detector.ClientIP, s.rateLimited)(protected)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", protected)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var root http.Handler = mux
	root = opts.Detector.Middleware(root)
	root = security.Headers(opts.Headers)(root)
	s.trace = trace.NewMiddleware(opts.Logger, opts.Detector.ClientIP)
	root = s.trace.Handler(root)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Requests returns how many requests the server has handled.
func (s *Server) Requests() int64 {
	return s.trace.Requests()
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).Warn("Rate limit exceeded",
		"method", r.Method,
		"path", r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Field("success", false).
		Field("kind", "rate_limited").
		Field("detail", "too many requests, retry later").
		Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Field("status", "ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.svc.Reader().Ping(ctx); err != nil {
		applog.FromContext(ctx).Error("Readiness check failed", "error", err)
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Field("success", false).
			Field("status", "unavailable").
			Write(w)
		return
	}
	NewJSONResponse().Field("status", "ready").Write(w)
}
