// Package apperr holds the error taxonomy shared by the analysis pipeline,
// the statistics aggregator and the HTTP layer. Errors are sentinel values
// wrapped with fmt.Errorf("%w: ...") and classified with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrAuthorization          = errors.New("not authorized")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrScoringUnavailable covers transport failures, timeouts, retry
	// exhaustion, bad envelopes and missing configuration.
	ErrScoringUnavailable = errors.New("scoring unavailable")
	// ErrScoringMalformed means the capability replied with text that is not JSON.
	ErrScoringMalformed = errors.New("scoring output malformed")
	// ErrScoringSchema means the JSON does not satisfy the analysis contract.
	ErrScoringSchema = errors.New("scoring output violates schema")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Unauthenticated(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// IsScoring reports whether err belongs to the scoring failure family.
func IsScoring(err error) bool {
	return errors.Is(err, ErrScoringUnavailable) ||
		errors.Is(err, ErrScoringMalformed) ||
		errors.Is(err, ErrScoringSchema)
}
