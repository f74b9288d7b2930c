// Package recipe contains the recipe domain model and its validation rules.
package recipe

import (
	"fmt"
	"strings"
)

// Recipe is the single resource managed by the service.
// ID is assigned from Name on creation and never changes afterwards.
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
}

// Input carries the fields accepted when creating a recipe.
// A nil Ingredients slice is stored as an empty list.
type Input struct {
	Name        string
	Ingredients []string
}

// Patch carries the full replacement for a recipe's mutable fields.
type Patch struct {
	Name        string
	Ingredients []string
}

// Validate reports whether in can be stored.
func (in Input) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	return validateIngredients(in.Ingredients)
}

// Validate reports whether p can replace an existing record.
// Unlike Input, ingredients must be present (an empty list is fine).
func (p Patch) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.Ingredients == nil {
		return fmt.Errorf("%w: ingredients are required", ErrValidation)
	}
	return validateIngredients(p.Ingredients)
}

// Clone returns a deep copy so callers cannot alias stored ingredients.
func (r Recipe) Clone() Recipe {
	return Recipe{
		ID:          r.ID,
		Name:        r.Name,
		Ingredients: cloneIngredients(r.Ingredients),
	}
}

// New builds the stored form of in. The id is the submitted name, verbatim.
func New(in Input) Recipe {
	return Recipe{
		ID:          in.Name,
		Name:        in.Name,
		Ingredients: cloneIngredients(in.Ingredients),
	}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	return nil
}

func validateIngredients(ingredients []string) error {
	for i, ing := range ingredients {
		if strings.TrimSpace(ing) == "" {
			return fmt.Errorf("%w: ingredient %d must not be empty", ErrValidation, i)
		}
	}
	return nil
}

// cloneIngredients never returns nil.
func cloneIngredients(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
