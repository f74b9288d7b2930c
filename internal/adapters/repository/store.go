// Package repository defines the recipe store contract and its in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/recipebox/internal/domain/recipe"
)

// Store provides read/write access to the recipe collection.
// Implementations never produce transport-level responses; callers map
// the returned booleans and sentinel errors themselves.
type Store interface {
	// List returns every recipe in insertion order. Never nil.
	List(ctx context.Context) []recipe.Recipe

	// Get returns the recipe with the given id or recipe.ErrNotFound.
	Get(ctx context.Context, id string) (recipe.Recipe, error)

	// Create validates in, assigns id := name and appends the recipe.
	// Returns recipe.ErrValidation or recipe.ErrDuplicateID on rejection.
	Create(ctx context.Context, in recipe.Input) (recipe.Recipe, error)

	// Update replaces name and ingredients of an existing recipe, keeping its id.
	// Returns false with a nil error when id is unknown.
	Update(ctx context.Context, id string, p recipe.Patch) (bool, error)

	// Remove deletes the recipe if present and reports whether it did.
	Remove(ctx context.Context, id string) bool

	// Count returns the number of stored recipes.
	Count(ctx context.Context) int
}

// Recorder receives store metrics. *metrics.Manager satisfies it.
type Recorder interface {
	RecordStoreOperation(operation, outcome string)
	UpdateRecipesTotal(count int)
}
