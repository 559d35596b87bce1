package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/orderforge/pricing-api/internal/platform/httpx"
	"github.com/orderforge/pricing-api/internal/platform/observability"
)

const defaultRequestTimeout = 60 * time.Second

// RouterDeps collects everything the HTTP router needs.
type RouterDeps struct {
	Logger    *zap.Logger
	Health    *HealthHandlers
	Quotes    *QuoteHandlers
	RuleAdmin *RuleAdminHandlers
	// InternalAuth guards the /internal route group. Nil leaves the group
	// unmounted rather than exposed.
	InternalAuth   func(http.Handler) http.Handler
	RequestTimeout time.Duration
}

// NewRouter assembles the chi router with the standard middleware stack.
func NewRouter(deps RouterDeps) chi.Router {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.TraceMiddleware())
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	if deps.Health != nil {
		deps.Health.Routes(r)
	}

	r.Route("/api/v1/pricing", func(api chi.Router) {
		if deps.Quotes != nil {
			deps.Quotes.Routes(api)
		}
	})

	if deps.RuleAdmin != nil && deps.InternalAuth != nil {
		r.Route("/internal", func(internal chi.Router) {
			internal.Use(deps.InternalAuth)
			deps.RuleAdmin.Routes(internal)
		})
	}

	return r
}
