// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/okian/recipebox/internal/adapters/repository"
	"github.com/okian/recipebox/pkg/logger"
	"github.com/okian/recipebox/pkg/metrics"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	recipesHandler *RecipesHandler

	logger       logger.Logger
	limiter      *rate.Limiter
	rateLimit    float64
	rateBurst    int
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by middleware and handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit enables a global token bucket. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(store repository.Store, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		logger:       logger.Nop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rateLimit > 0 {
		burst := s.rateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.rateLimit), burst)
	}

	s.healthHandler = NewHealthHandler(store)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recipesHandler = NewRecipesHandler(store, s.logger, s.maxBodyBytes)
	return s
}

// Routes builds a chi router with the middleware chain and every API route.
// Further routes may be added to the returned router; middleware may not.
func (s *Server) Routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

// Register installs the middleware chain and routes on r. It must be called
// before any other route is added to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(
		middleware.RealIP,
		s.requestIDMiddleware,
		s.panicRecoveryMiddleware,
		s.rateLimitMiddleware,
		s.loggingMiddleware,
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, nil)
	})

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	h := s.recipesHandler
	r.Get("/recipes", MetricsMiddleware(h.HandleList, "recipes_list"))
	r.Post("/recipes", MetricsMiddleware(h.HandleCreate, "recipes_create"))
	r.Get("/recipes/{id}", MetricsMiddleware(h.HandleGet, "recipes_get"))
	r.Put("/recipes/{id}", MetricsMiddleware(h.HandleUpdate, "recipes_update"))
	r.Delete("/recipes/{id}", MetricsMiddleware(h.HandleDelete, "recipes_delete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the error payload. A nil err yields the status text.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
