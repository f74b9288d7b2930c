package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/pkg/metrics"
)

// Store operation labels and outcomes used for metrics.
const (
	opCreate = "create"
	opUpdate = "update"
	opRemove = "remove"
	opGet    = "get"
	opList   = "list"

	outcomeOK        = "ok"
	outcomeNotFound  = "not_found"
	outcomeInvalid   = "invalid"
	outcomeDuplicate = "duplicate"
)

var _ Store = (*MemoryStore)(nil)

// globalRecorder forwards to the package-level metrics helpers.
type globalRecorder struct{}

func (globalRecorder) RecordStoreOperation(operation, outcome string) {
	metrics.RecordStoreOperation(operation, outcome)
}

func (globalRecorder) UpdateRecipesTotal(count int) { metrics.UpdateRecipesTotal(count) }

// slot holds one stored recipe and its position in the insertion order.
type slot struct {
	rec recipe.Recipe
	pos int
}

// MemoryStore is an in-memory Store.
//
// Lookups go through a map keyed by id; insertion order is kept in a slice
// of slots. Removal leaves a nil tombstone that is compacted away once
// tombstones make up more than half of the order slice, so create, update
// and remove stay O(1) amortised regardless of collection size.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*slot
	order      []*slot
	tombstones int

	capacity int
	recorder Recorder
	seed     []recipe.Input
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		capacity: 16,
		recorder: globalRecorder{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.byID = make(map[string]*slot, s.capacity)
	s.order = make([]*slot, 0, s.capacity)
	s.recorder.UpdateRecipesTotal(0)

	if len(s.seed) > 0 {
		_ = s.Seed(context.Background(), s.seed)
		s.seed = nil
	}

	return s
}

// Seed creates each input in order. Invalid or duplicate inputs are skipped
// and reported in the joined error; the rest are still stored.
func (s *MemoryStore) Seed(ctx context.Context, inputs []recipe.Input) error {
	var errs []error
	for i, in := range inputs {
		if _, err := s.Create(ctx, in); err != nil {
			errs = append(errs, fmt.Errorf("seed %d (%q): %w", i, in.Name, err))
		}
	}
	return errors.Join(errs...)
}

// List implements Store.List.
func (s *MemoryStore) List(_ context.Context) []recipe.Recipe {
	s.mu.RLock()
	out := make([]recipe.Recipe, 0, len(s.byID))
	for _, sl := range s.order {
		if sl != nil {
			out = append(out, sl.rec.Clone())
		}
	}
	s.mu.RUnlock()

	s.recorder.RecordStoreOperation(opList, outcomeOK)
	return out
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, id string) (recipe.Recipe, error) {
	s.mu.RLock()
	sl, ok := s.byID[id]
	var r recipe.Recipe
	if ok {
		r = sl.rec.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		s.recorder.RecordStoreOperation(opGet, outcomeNotFound)
		return recipe.Recipe{}, fmt.Errorf("get %q: %w", id, recipe.ErrNotFound)
	}
	s.recorder.RecordStoreOperation(opGet, outcomeOK)
	return r, nil
}

// Create implements Store.Create.
func (s *MemoryStore) Create(_ context.Context, in recipe.Input) (recipe.Recipe, error) {
	if err := in.Validate(); err != nil {
		s.recorder.RecordStoreOperation(opCreate, outcomeInvalid)
		return recipe.Recipe{}, err
	}
	r := recipe.New(in)

	s.mu.Lock()
	if _, exists := s.byID[r.ID]; exists {
		s.mu.Unlock()
		s.recorder.RecordStoreOperation(opCreate, outcomeDuplicate)
		return recipe.Recipe{}, fmt.Errorf("create %q: %w", r.ID, recipe.ErrDuplicateID)
	}
	sl := &slot{rec: r, pos: len(s.order)}
	s.order = append(s.order, sl)
	s.byID[r.ID] = sl
	count := len(s.byID)
	s.mu.Unlock()

	s.recorder.RecordStoreOperation(opCreate, outcomeOK)
	s.recorder.UpdateRecipesTotal(count)
	return r.Clone(), nil
}

// Update implements Store.Update. The stored id is never changed, even
// when p.Name differs from the name the recipe was created with.
func (s *MemoryStore) Update(_ context.Context, id string, p recipe.Patch) (bool, error) {
	if err := p.Validate(); err != nil {
		s.recorder.RecordStoreOperation(opUpdate, outcomeInvalid)
		return false, err
	}
	ingredients := make([]string, len(p.Ingredients))
	copy(ingredients, p.Ingredients)

	s.mu.Lock()
	sl, ok := s.byID[id]
	if ok {
		sl.rec.Name = p.Name
		sl.rec.Ingredients = ingredients
	}
	s.mu.Unlock()

	if !ok {
		s.recorder.RecordStoreOperation(opUpdate, outcomeNotFound)
		return false, nil
	}
	s.recorder.RecordStoreOperation(opUpdate, outcomeOK)
	return true, nil
}

// Remove implements Store.Remove.
func (s *MemoryStore) Remove(_ context.Context, id string) bool {
	s.mu.Lock()
	sl, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		s.order[sl.pos] = nil
		s.tombstones++
		if s.tombstones > len(s.order)/2 {
			s.compact()
		}
	}
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		s.recorder.RecordStoreOperation(opRemove, outcomeNotFound)
		return false
	}
	s.recorder.RecordStoreOperation(opRemove, outcomeOK)
	s.recorder.UpdateRecipesTotal(count)
	return true
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// compact drops tombstones and renumbers positions. Caller holds s.mu.
func (s *MemoryStore) compact() {
	live := make([]*slot, 0, len(s.byID))
	for _, sl := range s.order {
		if sl == nil {
			continue
		}
		sl.pos = len(live)
		live = append(live, sl)
	}
	s.order = live
	s.tombstones = 0
}
