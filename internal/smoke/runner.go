package smoke

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/pkg/logger"
)

// Defaults applied to zero Config fields.
const (
	DefaultRecipes = 20
	DefaultWorkers = 4
	DefaultTimeout = 10 * time.Second
)

// Sentinel errors reported by Run.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrVerification = errors.New("verification failed")
)

// Run executes the full smoke scenario against cfg.BaseURL:
// health, create, verify, update, verify, delete, verify.
func Run(ctx context.Context, cfg *Config, opts ...ClientOption) (*Stats, error) {
	cfg = withDefaults(cfg)
	log := cfg.Logger
	client := NewClient(cfg.BaseURL, cfg.Timeout, opts...)
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting recipe smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("recipes", cfg.Recipes),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	health, err := client.Health(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if health.Status != "ok" {
		return stats, fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
	}

	baseline, err := client.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("baseline list failed: %w", err)
	}
	stats.Baseline = len(baseline)

	items := plan(cfg.Recipes)

	created, err := createAll(ctx, cfg, client, items)
	stats.Created = int(created)
	if err != nil {
		return stats, fmt.Errorf("create phase failed: %w", err)
	}
	step(ctx, cfg, "created recipes", logger.Int("count", stats.Created))

	if err := verifyListed(ctx, client, items, true); err != nil {
		return stats, err
	}

	updated, err := updateAll(ctx, cfg, client, items)
	stats.Updated = int(updated)
	if err != nil {
		return stats, fmt.Errorf("update phase failed: %w", err)
	}
	step(ctx, cfg, "updated recipes", logger.Int("count", stats.Updated))

	verified, err := verifyUpdated(ctx, cfg, client, items)
	stats.Verified = int(verified)
	if err != nil {
		return stats, err
	}

	deleted, err := deleteAll(ctx, cfg, client, items)
	stats.Deleted = int(deleted)
	if err != nil {
		return stats, fmt.Errorf("delete phase failed: %w", err)
	}
	step(ctx, cfg, "deleted recipes", logger.Int("count", stats.Deleted))

	if err := verifyListed(ctx, client, items, false); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "smoke run completed",
		logger.Int("baseline", stats.Baseline),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("verified", stats.Verified),
		logger.Int("deleted", stats.Deleted),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// planned is one recipe's lifecycle: created as Name, then renamed.
type planned struct {
	Name           string
	Ingredients    []string
	NewName        string
	NewIngredients []string
}

func plan(n int) []planned {
	out := make([]planned, n)
	for i := range out {
		suffix := uuid.New().String()
		out[i] = planned{
			Name:           "smoke-" + suffix,
			Ingredients:    []string{"flour", "water", fmt.Sprintf("salt #%d", i)},
			NewName:        "smoke-renamed-" + suffix,
			NewIngredients: []string{"rice", "beans"},
		}
	}
	return out
}

func withDefaults(cfg *Config) *Config {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Recipes <= 0 {
		c.Recipes = DefaultRecipes
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Get()
	}
	return &c
}

func step(ctx context.Context, cfg *Config, msg string, fields ...logger.Field) {
	if cfg.Verbose {
		cfg.Logger.Info(ctx, msg, fields...)
		return
	}
	cfg.Logger.Debug(ctx, msg, fields...)
}

// forEach runs fn over items with at most cfg.Workers in flight and counts
// successes. The first error cancels the rest.
func forEach(ctx context.Context, cfg *Config, items []planned, fn func(context.Context, planned) error) (int64, error) {
	var ok atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, item := range items {
		g.Go(func() error {
			if err := fn(gctx, item); err != nil {
				return err
			}
			ok.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return ok.Load(), err
}

func createAll(ctx context.Context, cfg *Config, c *Client, items []planned) (int64, error) {
	return forEach(ctx, cfg, items, func(ctx context.Context, p planned) error {
		rec, err := c.Create(ctx, p.Name, p.Ingredients)
		if err != nil {
			return err
		}
		if rec.ID != p.Name || rec.Name != p.Name || !slices.Equal(rec.Ingredients, p.Ingredients) {
			return fmt.Errorf("%w: create %q returned %+v", ErrVerification, p.Name, rec)
		}
		return nil
	})
}

func updateAll(ctx context.Context, cfg *Config, c *Client, items []planned) (int64, error) {
	return forEach(ctx, cfg, items, func(ctx context.Context, p planned) error {
		return c.Update(ctx, p.Name, p.NewName, p.NewIngredients)
	})
}

func verifyUpdated(ctx context.Context, cfg *Config, c *Client, items []planned) (int64, error) {
	return forEach(ctx, cfg, items, func(ctx context.Context, p planned) error {
		rec, err := c.Get(ctx, p.Name)
		if err != nil {
			return fmt.Errorf("%w: get %q after update: %w", ErrVerification, p.Name, err)
		}
		want := recipe.Recipe{ID: p.Name, Name: p.NewName, Ingredients: p.NewIngredients}
		if rec.ID != want.ID || rec.Name != want.Name || !slices.Equal(rec.Ingredients, want.Ingredients) {
			return fmt.Errorf("%w: %q after update is %+v, want %+v", ErrVerification, p.Name, rec, want)
		}
		return nil
	})
}

func deleteAll(ctx context.Context, cfg *Config, c *Client, items []planned) (int64, error) {
	return forEach(ctx, cfg, items, func(ctx context.Context, p planned) error {
		if err := c.Delete(ctx, p.Name); err != nil {
			return err
		}
		if _, err := c.Get(ctx, p.Name); !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %q still readable after delete: %v", ErrVerification, p.Name, err)
		}
		return nil
	})
}

// verifyListed checks that every planned id is (or is not) in the list.
func verifyListed(ctx context.Context, c *Client, items []planned, present bool) error {
	list, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: list: %w", ErrVerification, err)
	}
	byID := make(map[string]recipe.Recipe, len(list))
	for _, rec := range list {
		byID[rec.ID] = rec
	}
	for _, p := range items {
		rec, found := byID[p.Name]
		switch {
		case present && !found:
			return fmt.Errorf("%w: %q missing from list", ErrVerification, p.Name)
		case present && rec.Name != p.Name:
			return fmt.Errorf("%w: %q listed with name %q", ErrVerification, p.Name, rec.Name)
		case !present && found:
			return fmt.Errorf("%w: %q still listed after delete", ErrVerification, p.Name)
		}
	}
	return nil
}
