package token

import (
	"errors"
	"fmt"
)

// Revert reasons surfaced verbatim by RevertError.Error.
const (
	ReasonInsufficientBalance = "Not enough tokens"
	ReasonInvalidRecipient    = "Invalid recipient"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrAlreadyExists = errors.New("token: already exists")
	ErrInvalidInput  = errors.New("token: invalid input")

	// Token errors
	ErrTokenNotFound = errors.New("token: token not found")

	// Transfer errors
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInvalidRecipient    = errors.New("token: invalid recipient")

	// Store errors
	ErrStoreNotReady     = errors.New("token: store not ready")
	ErrStoreClosed       = errors.New("token: store is closed") // returned after Ledger.Stop
	ErrTransactionFailed = errors.New("token: transaction failed")
	ErrMigrationFailed   = errors.New("token: migration failed")
)

// RevertError is a rejected ledger call. Error returns Reason unchanged so
// callers can match it exactly; Unwrap exposes the sentinel.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string { return e.Reason }

func (e *RevertError) Unwrap() error { return e.Err }

func revert(reason string, err error) *RevertError {
	return &RevertError{Reason: reason, Err: err}
}

// RevertReason returns the reason of a RevertError anywhere in err's chain.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("token: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError collects failures of a batch that keeps going past errors,
// such as a journal write that inserts records one by one.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "token: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("token: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap returns the collected errors for errors.Is / errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTokenNotFound)
}

// IsRejection returns true if the error is a normal, expected rejection of
// a transfer. State is unchanged after a rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidRecipient)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
