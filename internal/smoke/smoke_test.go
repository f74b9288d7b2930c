package smoke_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okian/recipebox/internal/adapters/http/api"
	"github.com/okian/recipebox/internal/adapters/repository"
	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/internal/smoke"
	"github.com/okian/recipebox/pkg/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), []recipe.Input{
		{Name: "milkshake", Ingredients: []string{"2 tbsp cocoa", "2 cups vanilla ice cream", "1 cup milk"}},
	}))
	srv := httptest.NewServer(api.NewServer(store, nil).Routes(context.Background()))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRun(t *testing.T) {
	srv, store := newTestServer(t)

	stats, err := smoke.Run(context.Background(), &smoke.Config{
		BaseURL: srv.URL,
		Recipes: 8,
		Workers: 3,
		Timeout: 5 * time.Second,
		Logger:  logger.Nop(),
	}, smoke.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	require.Equal(t, 1, stats.Baseline)
	require.Equal(t, 8, stats.Created)
	require.Equal(t, 8, stats.Updated)
	require.Equal(t, 8, stats.Verified)
	require.Equal(t, 8, stats.Deleted)
	require.Positive(t, stats.Duration)

	// Only the seed survives.
	require.Equal(t, 1, store.Count(context.Background()))
}

func TestRunUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := smoke.Run(context.Background(), &smoke.Config{BaseURL: srv.URL, Logger: logger.Nop()})
	require.ErrorIs(t, err, smoke.ErrUnhealthy)
}

func TestClient(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	c := smoke.NewClient(srv.URL+"/", time.Second)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, smoke.Health{Status: "ok", Recipes: 1}, h)

	rec, err := c.Create(ctx, "pad thai", nil)
	require.NoError(t, err)
	require.Equal(t, recipe.Recipe{ID: "pad thai", Name: "pad thai", Ingredients: []string{}}, rec)

	_, err = c.Create(ctx, "pad thai", []string{"noodles"})
	var apiErr *smoke.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "duplicate_id", apiErr.Code)

	require.NoError(t, c.Update(ctx, "pad thai", "noodles", []string{"rice noodles", "peanuts"}))
	got, err := c.Get(ctx, "pad thai")
	require.NoError(t, err)
	require.Equal(t, "pad thai", got.ID)
	require.Equal(t, []string{"rice noodles", "peanuts"}, got.Ingredients)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, c.Delete(ctx, "pad thai"))
	_, err = c.Get(ctx, "pad thai")
	require.ErrorIs(t, err, smoke.ErrNotFound)
	require.ErrorIs(t, c.Delete(ctx, "pad thai"), smoke.ErrNotFound)
	require.ErrorIs(t, c.Update(ctx, "ghost", "x", nil), smoke.ErrNotFound)
}
