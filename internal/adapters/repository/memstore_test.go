package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/pkg/metrics"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(WithRecorder(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
}

func ids(list []recipe.Recipe) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.Empty(t, store.List(ctx))
	require.NotNil(t, store.List(ctx))
	require.Equal(t, 0, store.Count(ctx))

	created, err := store.Create(ctx, recipe.Input{Name: "tortilla", Ingredients: []string{"cheese", "beans", "salsa"}})
	require.NoError(t, err)
	require.Equal(t, recipe.Recipe{ID: "tortilla", Name: "tortilla", Ingredients: []string{"cheese", "beans", "salsa"}}, created)

	list := store.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, created, list[0])

	got, err := store.Get(ctx, "tortilla")
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestMemoryStore_CreateDefaultsIngredients(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, recipe.Input{Name: "toast"})
	require.NoError(t, err)
	require.NotNil(t, created.Ingredients)
	require.Empty(t, created.Ingredients)

	list := store.List(ctx)
	require.NotNil(t, list[0].Ingredients)
}

func TestMemoryStore_CreateValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		in   recipe.Input
	}{
		{name: "empty name", in: recipe.Input{Name: ""}},
		{name: "blank name", in: recipe.Input{Name: " \t"}},
		{name: "blank ingredient", in: recipe.Input{Name: "soup", Ingredients: []string{"water", " "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			_, err := store.Create(ctx, tt.in)
			require.ErrorIs(t, err, recipe.ErrValidation)
			require.Equal(t, 0, store.Count(ctx))
		})
	}
}

func TestMemoryStore_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, recipe.Input{Name: "pancakes", Ingredients: []string{"flour"}})
	require.NoError(t, err)

	_, err = store.Create(ctx, recipe.Input{Name: "pancakes", Ingredients: []string{"eggs"}})
	require.ErrorIs(t, err, recipe.ErrDuplicateID)
	require.ErrorIs(t, err, recipe.ErrValidation)

	list := store.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, []string{"flour"}, list[0].Ingredients)
}

func TestMemoryStore_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	names := []string{"c", "a", "b", "e", "d"}
	for _, n := range names {
		_, err := store.Create(ctx, recipe.Input{Name: n})
		require.NoError(t, err)
	}
	require.Equal(t, names, ids(store.List(ctx)))

	require.True(t, store.Remove(ctx, "a"))
	require.True(t, store.Remove(ctx, "e"))
	require.Equal(t, []string{"c", "b", "d"}, ids(store.List(ctx)))

	_, err := store.Create(ctx, recipe.Input{Name: "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "d", "a"}, ids(store.List(ctx)))
}

func TestMemoryStore_CountTracksCreateAndRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 10; i++ {
		before := len(store.List(ctx))
		_, err := store.Create(ctx, recipe.Input{Name: fmt.Sprintf("r%d", i)})
		require.NoError(t, err)
		require.Equal(t, before+1, len(store.List(ctx)))
	}

	for i := 0; i < 10; i += 2 {
		before := len(store.List(ctx))
		require.True(t, store.Remove(ctx, fmt.Sprintf("r%d", i)))
		require.Equal(t, before-1, len(store.List(ctx)))
	}
	require.Equal(t, 5, store.Count(ctx))
}

func TestMemoryStore_UpdateKeepsID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, recipe.Input{Name: "tortilla", Ingredients: []string{"cheese", "beans", "salsa"}})
	require.NoError(t, err)

	ok, err := store.Update(ctx, "tortilla", recipe.Patch{Name: "foo", Ingredients: []string{"salsa", "cheese"}})
	require.NoError(t, err)
	require.True(t, ok)

	list := store.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, recipe.Recipe{ID: "tortilla", Name: "foo", Ingredients: []string{"salsa", "cheese"}}, list[0])

	_, err = store.Get(ctx, "foo")
	require.ErrorIs(t, err, recipe.ErrNotFound)
}

func TestMemoryStore_UpdateIsFullReplace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, recipe.Input{Name: "stew", Ingredients: []string{"beef", "carrot", "onion"}})
	require.NoError(t, err)

	ok, err := store.Update(ctx, "stew", recipe.Patch{Name: "stew", Ingredients: []string{}})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(ctx, "stew")
	require.NoError(t, err)
	require.Empty(t, got.Ingredients)
	require.NotNil(t, got.Ingredients)
}

func TestMemoryStore_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, recipe.Input{Name: "stew", Ingredients: []string{"beef"}})
	require.NoError(t, err)

	_, err = store.Update(ctx, "stew", recipe.Patch{Name: "", Ingredients: []string{"x"}})
	require.ErrorIs(t, err, recipe.ErrValidation)

	_, err = store.Update(ctx, "stew", recipe.Patch{Name: "stew"})
	require.ErrorIs(t, err, recipe.ErrValidation)

	got, err := store.Get(ctx, "stew")
	require.NoError(t, err)
	require.Equal(t, []string{"beef"}, got.Ingredients)
}

func TestMemoryStore_NotFoundIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, recipe.Input{Name: "salad", Ingredients: []string{"lettuce"}})
	require.NoError(t, err)
	before := store.List(ctx)

	ok, err := store.Update(ctx, "missing", recipe.Patch{Name: "x", Ingredients: []string{}})
	require.NoError(t, err)
	require.False(t, ok)

	require.False(t, store.Remove(ctx, "missing"))
	require.Equal(t, before, store.List(ctx))

	_, err = store.Get(ctx, "missing")
	require.True(t, errors.Is(err, recipe.ErrNotFound))
}

func TestMemoryStore_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := []string{"milk", "cocoa"}
	created, err := store.Create(ctx, recipe.Input{Name: "milkshake", Ingredients: in})
	require.NoError(t, err)

	in[0] = "mutated input"
	created.Ingredients[1] = "mutated result"
	list := store.List(ctx)
	list[0].Ingredients = append(list[0].Ingredients, "mutated list")

	got, err := store.Get(ctx, "milkshake")
	require.NoError(t, err)
	require.Equal(t, []string{"milk", "cocoa"}, got.Ingredients)
}

func TestMemoryStore_Compaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 100; i++ {
		_, err := store.Create(ctx, recipe.Input{Name: fmt.Sprintf("r%03d", i)})
		require.NoError(t, err)
	}
	for i := 0; i < 90; i++ {
		require.True(t, store.Remove(ctx, fmt.Sprintf("r%03d", i)))
	}

	store.mu.RLock()
	orderLen := len(store.order)
	store.mu.RUnlock()
	require.LessOrEqual(t, orderLen, 2*store.Count(ctx)+1)

	want := make([]string, 0, 10)
	for i := 90; i < 100; i++ {
		want = append(want, fmt.Sprintf("r%03d", i))
	}
	require.Equal(t, want, ids(store.List(ctx)))

	// Positions must stay valid after compaction.
	require.True(t, store.Remove(ctx, "r095"))
	require.NotContains(t, ids(store.List(ctx)), "r095")
	require.Len(t, store.List(ctx), 9)
}

func TestMemoryStore_Seed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Seed(ctx, []recipe.Input{
		{Name: "boiled white rice", Ingredients: []string{"1 cup white rice", "2 cups water", "pinch of salt"}},
		{Name: ""},
		{Name: "boiled white rice"},
		{Name: "milkshake", Ingredients: []string{"2 tbsp cocoa", "2 cups vanilla ice cream", "1 cup milk"}},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, recipe.ErrValidation)
	require.ErrorIs(t, err, recipe.ErrDuplicateID)
	require.Equal(t, []string{"boiled white rice", "milkshake"}, ids(store.List(ctx)))

	require.NoError(t, newTestStore(t).Seed(ctx, nil))
}

func TestMemoryStore_WithSeed(t *testing.T) {
	ctx := context.Background()
	rec := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	store := NewMemoryStore(
		WithRecorder(rec),
		WithInitialCapacity(4),
		WithSeed([]recipe.Input{{Name: "toast", Ingredients: []string{"bread"}}, {Name: "  "}}),
	)

	require.Equal(t, 1, store.Count(ctx))
	got, err := store.Get(ctx, "toast")
	require.NoError(t, err)
	require.Equal(t, []string{"bread"}, got.Ingredients)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if _, err := store.Create(ctx, recipe.Input{Name: id}); err != nil {
					t.Errorf("create %s: %v", id, err)
					return
				}
				if _, err := store.Update(ctx, id, recipe.Patch{Name: id + "!", Ingredients: []string{"x"}}); err != nil {
					t.Errorf("update %s: %v", id, err)
					return
				}
				_ = store.List(ctx)
				if i%2 == 0 {
					store.Remove(ctx, id)
				}
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, workers*perWorker/2, store.Count(ctx))
	seen := make(map[string]bool)
	for _, r := range store.List(ctx) {
		require.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
		require.Equal(t, r.ID+"!", r.Name)
	}
}

func TestMemoryStore_Metrics(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{ops: map[string]int{}}
	store := NewMemoryStore(WithRecorder(rec), WithInitialCapacity(4))

	_, _ = store.Create(ctx, recipe.Input{Name: "a"})
	_, _ = store.Create(ctx, recipe.Input{Name: "a"})
	_, _ = store.Update(ctx, "zzz", recipe.Patch{Name: "z", Ingredients: []string{}})
	store.Remove(ctx, "a")

	require.Equal(t, 1, rec.ops["create/ok"])
	require.Equal(t, 1, rec.ops["create/duplicate"])
	require.Equal(t, 1, rec.ops["update/not_found"])
	require.Equal(t, 1, rec.ops["remove/ok"])
	require.Equal(t, 0, rec.total)
}

type fakeRecorder struct {
	mu    sync.Mutex
	ops   map[string]int
	total int
}

func (f *fakeRecorder) RecordStoreOperation(operation, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[operation+"/"+outcome]++
}

func (f *fakeRecorder) UpdateRecipesTotal(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = count
}
