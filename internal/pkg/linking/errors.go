package linking

import (
	"errors"
	"fmt"
)

// Caller-visible failures surfaced as 400-equivalents.
var (
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired verification code")
	ErrIdentityAlreadyLinked = errors.New("discord account is already linked to a different user")
	ErrTooManyAttempts       = errors.New("too many verification attempts, try again later")
)

// Step names carried on storage failures so a 500 response can say how far
// the consume sequence got.
const (
	StepLookupCode        = "lookup_code"
	StepCheckExistingLink = "check_existing_link"
	StepCreateLink        = "create_link"
	StepDeleteCode        = "delete_code"
)

// StorageError wraps a persistence failure with the stage it happened in.
type StorageError struct {
	Step string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure at %s: %v", e.Step, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
