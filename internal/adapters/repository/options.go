package repository

import "github.com/okian/recipebox/internal/domain/recipe"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithInitialCapacity presizes the index for an expected collection size.
func WithInitialCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithRecorder routes store metrics to r instead of the global metrics manager.
func WithRecorder(r Recorder) Option {
	return func(s *MemoryStore) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSeed creates inputs at construction time. Invalid or duplicate inputs
// are skipped; call Seed instead to see why.
func WithSeed(inputs []recipe.Input) Option {
	return func(s *MemoryStore) {
		s.seed = append(s.seed, inputs...)
	}
}
