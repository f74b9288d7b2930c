package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrIDMismatch   = errors.New("id mismatch")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// Error codes carried in the payload.
const (
	codeBadRequest    = "bad_request"
	codeBodyTooLarge  = "body_too_large"
	codeInvalidRecipe = "invalid_recipe"
	codeDuplicateID   = "duplicate_id"
	codeIDMismatch    = "id_mismatch"
	codeNotFound      = "not_found"
	codeRateLimited   = "rate_limited"
	codeInternal      = "internal_error"
)

// Wrap prefixes err with the operation name.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind prefixes err with op and marks it with kind so errors.Is
// matches both.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
