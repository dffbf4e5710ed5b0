package escalation

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these
// so callers can branch with errors.Is.
var (
	// ErrValidation marks malformed or missing input. Nothing was mutated.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced case or user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an operation attempted by someone other than the owner.
	ErrForbidden = errors.New("not authorized")
	// ErrConflict marks an operation on a case whose state does not allow it,
	// such as resolving an already resolved case.
	ErrConflict = errors.New("conflict")
	// ErrDelivery marks a channel send that failed after all attempts. It is
	// recorded on the alert and reported as data, never returned from Trigger.
	ErrDelivery = errors.New("delivery failed")
	// ErrPersistence marks a storage failure. The enclosing operation is aborted.
	ErrPersistence = errors.New("persistence error")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func conflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// persistenceError wraps a storage failure. Not-found results from the store
// pass through unchanged.
func persistenceError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
