package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"smartswap/native/loyalty"
	"smartswap/services/swapd/audit"
	"smartswap/services/swapd/executor"
	"smartswap/services/swapd/history"
	"smartswap/services/swapd/tokens"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress   string
	TLS             TLSConfig
	RateLimit       RateLimit
	Thresholds      audit.Thresholds
	ShutdownTimeout time.Duration
	// StreamOrigins lists the browser origin hosts, as path.Match patterns,
	// allowed to open the audit stream besides the server's own host.
	StreamOrigins []string
}

// TLSConfig describes TLS settings for the server.
type TLSConfig struct {
	Disabled bool
	CertFile string
	KeyFile  string
	Config   *tls.Config
}

// SwapService prices and executes swaps.
type SwapService interface {
	Fee(ctx context.Context, wallet string) (executor.FeeDecision, error)
	Quote(ctx context.Context, req executor.QuoteRequest) (*executor.QuoteResult, error)
	Execute(ctx context.Context, req executor.QuoteRequest) (*executor.Result, error)
}

// HistoryStore lists and clears completed swaps.
type HistoryStore interface {
	List(ctx context.Context, wallet string) ([]history.SwapRecord, error)
	Clear(ctx context.Context, wallet string) error
}

// Deps are the collaborators behind the routes. History and Tokens are
// optional; their routes answer 501 when absent. Health, when set, checks the
// backing store for /healthz.
type Deps struct {
	Registry *loyalty.Registry
	Swaps    SwapService
	Audit    *audit.Log
	History  HistoryStore
	Tokens   *tokens.Store
	Auth     *Authenticator
	Health   func(ctx context.Context) error
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server hosts the public swap API and the admin audit API.
type Server struct {
	cfg        Config
	registry   *loyalty.Registry
	swaps      SwapService
	audit      *audit.Log
	history    HistoryStore
	tokens     *tokens.Store
	auth       *Authenticator
	health     func(ctx context.Context) error
	limiter    *RateLimiter
	thresholds audit.Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a new HTTP server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("campaign registry required")
	}
	if deps.Swaps == nil {
		return nil, fmt.Errorf("swap service required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("audit log required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("admin authenticator required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	thresholds := cfg.Thresholds
	if thresholds == (audit.Thresholds{}) {
		thresholds = audit.DefaultThresholds()
	}
	return &Server{
		cfg:        cfg,
		registry:   deps.Registry,
		swaps:      deps.Swaps,
		audit:      deps.Audit,
		history:    deps.History,
		tokens:     deps.Tokens,
		auth:       deps.Auth,
		health:     deps.Health,
		limiter:    NewRateLimiter(cfg.RateLimit),
		thresholds: thresholds,
		logger:     logger,
		now:        now,
	}, nil
}

// Handler assembles the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Use(s.limiter.Middleware("v1"))

		v.Get("/campaigns", s.handleCampaigns)
		v.Get("/campaigns/active", s.handleActiveCampaign)
		v.Get("/campaigns/{id}", s.handleCampaign)

		v.Get("/fees/{wallet}", s.handleFee)
		v.Post("/quote", s.handleQuote)
		v.Post("/swap", s.handleSwap)

		v.Get("/history/{wallet}", s.handleHistory)
		v.Delete("/history/{wallet}", s.handleClearHistory)

		v.Get("/favorites/{wallet}", s.handleFavorites)
		v.Put("/favorites/{wallet}/{mint}", s.handleAddFavorite)
		v.Delete("/favorites/{wallet}/{mint}", s.handleRemoveFavorite)

		v.Get("/tokens/custom", s.handleCustomTokens)
		v.Post("/tokens/custom", s.handleAddCustomTokens)
	})

	r.Route("/admin/audit", func(a chi.Router) {
		a.Group(func(read chi.Router) {
			read.Use(s.auth.Middleware(ScopeAuditRead))
			read.Get("/entries", s.handleAuditEntries)
			read.Get("/stats", s.handleAuditStats)
			read.Get("/anomalies", s.handleAuditAnomalies)
			read.Get("/export", s.handleAuditExport)
			read.Get("/export.parquet", s.handleAuditParquet)
			read.Get("/stream", s.handleAuditStream)
		})
		a.With(s.auth.Middleware(ScopeAuditAdmin)).Delete("/entries", s.handleAuditClear)
	})

	return otelhttp.NewHandler(r, "swapd")
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server not configured")
	}
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		TLSConfig:         s.cfg.TLS.Config,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", slog.String("addr", s.cfg.ListenAddress), slog.Bool("tls", !s.cfg.TLS.Disabled))
	var err error
	if s.cfg.TLS.Disabled {
		err = srv.ListenAndServe()
	} else {
		err = srv.ListenAndServeTLS(strings.TrimSpace(s.cfg.TLS.CertFile), strings.TrimSpace(s.cfg.TLS.KeyFile))
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}
