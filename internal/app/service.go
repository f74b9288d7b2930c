// Package service owns the recipe store and the HTTP server lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/recipebox/internal/adapters/http/api"
	"github.com/okian/recipebox/internal/adapters/http/swagger"
	repository "github.com/okian/recipebox/internal/adapters/repository"
	"github.com/okian/recipebox/internal/config"
	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/pkg/logger"
	"github.com/okian/recipebox/pkg/metrics"
)

const readHeaderTimeout = 5 * time.Second

// Seeder is implemented by stores that accept an initial data set.
type Seeder interface {
	Seed(ctx context.Context, inputs []recipe.Input) error
}

// Service serves the recipe API over HTTP.
type Service struct {
	// lifecycle serialises Start and Stop; mu guards the fields below and is
	// never held while waiting on the HTTP server.
	lifecycle sync.Mutex
	mu        sync.RWMutex

	// Core components
	store    repository.Store
	server   *http.Server
	listener net.Listener
	serveErr chan error

	// Configuration
	addr           string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
	rateLimitRPS   float64
	rateLimitBurst int
	maxBodyBytes   int64
	seed           []recipe.Input

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr sets the listen address. ":0" picks a free port.
func WithAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithTimeouts sets the HTTP server read, write and idle timeouts.
// Zero leaves the corresponding timeout disabled.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Service) {
		s.readTimeout = read
		s.writeTimeout = write
		s.idleTimeout = idle
	}
}

// WithRateLimit enables request rate limiting. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Service) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithSeed replaces the recipes loaded on start.
func WithSeed(seed []recipe.Input) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithStore injects the store. It is seeded on start when it implements Seeder.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithConfig applies every server-related setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		WithAddr(cfg.Addr)(s)
		WithTimeouts(cfg.ReadTimeout(), cfg.WriteTimeout(), cfg.IdleTimeout())(s)
		WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(s)
		WithMaxBodyBytes(cfg.MaxBodyBytes)(s)
		WithSeed(SeedInputs(cfg.Seed))(s)
	}
}

// SeedInputs converts configured seed recipes into store inputs.
func SeedInputs(seed []config.SeedRecipe) []recipe.Input {
	out := make([]recipe.Input, 0, len(seed))
	for _, sr := range seed {
		out = append(out, recipe.Input{Name: sr.Name, Ingredients: sr.Ingredients})
	}
	return out
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	defaults := config.New()
	s := &Service{
		addr:           defaults.Addr,
		readTimeout:    defaults.ReadTimeout(),
		writeTimeout:   defaults.WriteTimeout(),
		idleTimeout:    defaults.IdleTimeout(),
		rateLimitBurst: defaults.RateLimitBurst,
		maxBodyBytes:   defaults.MaxBodyBytes,
		seed:           SeedInputs(defaults.Seed),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	return s
}

// Handler builds the full route tree: API, metrics and docs.
func (s *Service) Handler(ctx context.Context) http.Handler {
	apiServer := api.NewServer(s.store, s,
		api.WithLogger(s.log().Named("http")),
		api.WithRateLimit(s.rateLimitRPS, s.rateLimitBurst),
		api.WithMaxBodyBytes(s.maxBodyBytes),
	)
	r := apiServer.Routes(ctx)
	swagger.Register(ctx, r)
	return r
}

// Start seeds the store, binds the listener and serves in the background.
// It returns once the listener accepts connections. Calling Start on a
// running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.isStarted() {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting recipe service...")

	if seeder, ok := s.store.(Seeder); ok && len(s.seed) > 0 && s.store.Count(ctx) == 0 {
		if err := seeder.Seed(ctx, s.seed); err != nil {
			s.logger.Warn(ctx, "some seed recipes were skipped", logger.Error(err))
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrListen, s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	l := s.logger
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(context.Background(), "HTTP server failed", logger.Error(err))
		}
		serveErr <- err
		close(serveErr)
	}()

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.serveErr = serveErr
	s.started = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info(ctx, "recipe service started",
		logger.String("addr", ln.Addr().String()),
		logger.Int("recipes", s.store.Count(ctx)),
	)

	return nil
}

// Stop drains in-flight requests until ctx expires, then closes remaining
// connections. Calling Stop on a stopped service is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.isStarted() {
		return nil
	}

	s.mu.RLock()
	srv, serveErr := s.server, s.serveErr
	s.mu.RUnlock()

	s.logger.Info(ctx, "stopping recipe service...")

	var err error
	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		s.logger.Warn(ctx, "graceful shutdown incomplete; closing connections", logger.Error(shutdownErr))
		_ = srv.Close()
		err = fmt.Errorf("%w: %w", ErrShutdown, shutdownErr)
	}
	<-serveErr

	s.mu.Lock()
	s.server = nil
	s.listener = nil
	s.serveErr = nil
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "recipe service stopped")

	return err
}

// Addr returns the bound address while running, the configured one otherwise.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Store returns the recipe store the service serves.
func (s *Service) Store() repository.Store {
	return s.store
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	count := s.store.Count(ctx)
	stats := map[string]interface{}{
		"started":        s.started,
		"recipes":        count,
		"rateLimitRPS":   s.rateLimitRPS,
		"rateLimitBurst": s.rateLimitBurst,
		"maxBodyBytes":   s.maxBodyBytes,
	}

	if s.started {
		stats["addr"] = s.listener.Addr().String()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}

	metrics.UpdateRecipesTotal(count)

	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}
