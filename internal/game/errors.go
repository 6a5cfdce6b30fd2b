// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// Failure kinds returned by every session operation. Details are wrapped with %w,
// so callers match with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input") // malformed request
	ErrUnauthorized = errors.New("unauthorized")  // missing or failed credential
	ErrForbidden    = errors.New("forbidden")     // authenticated but not entitled
	ErrNotFound     = errors.New("not found")     // referenced lobby or game is gone
	ErrConflict     = errors.New("conflict")      // state precondition violated
	ErrInvalidState = errors.New("invalid state") // wrong lifecycle phase
)

// ErrStaleWrite is a Conflict caused by a concurrent update of the same document.
// Unlike other conflicts, the caller can reload and retry.
var ErrStaleWrite = fmt.Errorf("%w: session was modified concurrently", ErrConflict)

// Retryable reports whether err came from losing an optimistic write race.
func Retryable(err error) bool {
	return errors.Is(err, ErrStaleWrite)
}
