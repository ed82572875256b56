package account

import (
	"errors"
	"fmt"
)

// Terminal operation errors. Handlers translate these into HTTP statuses;
// nothing below ever reports partial success.
var (
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCodeInvalidOrUsed covers nonexistent and already-redeemed codes
	// alike.
	ErrCodeInvalidOrUsed = errors.New("code invalid or already used")

	// ErrForbidden is returned when an admin operation is attempted by a
	// non-admin identifier.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for unknown target users or codes.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input such as an empty code.
	ErrValidation = errors.New("invalid input")
)

// StorageError wraps a lower-level storage failure. The cause is kept for
// operator diagnosis (logs) but handlers expose only a generic message to
// callers, so storage behavior never becomes a trusted signal on
// security-sensitive operations.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error { return &StorageError{Op: op, Err: err} }
