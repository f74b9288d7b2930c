package recipe

import (
	"errors"
	"fmt"
)

// Sentinel kinds for recipe errors. These allow errors.Is from callers.
var (
	ErrValidation  = errors.New("invalid recipe")
	ErrDuplicateID = fmt.Errorf("%w: duplicate id", ErrValidation)
	ErrNotFound    = errors.New("recipe not found")
)
