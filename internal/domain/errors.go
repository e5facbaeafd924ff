package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Not found
	ErrEventNotFound   = errors.New("event not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")

	// Validation
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidEventID   = errors.New("invalid event id")
	ErrInvalidBookingID = errors.New("invalid booking id")

	// Inventory
	ErrInsufficientInventory = errors.New("insufficient tickets available")

	// Access
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserAlreadyExists  = errors.New("user already exists")

	// Store
	ErrTransientStore = errors.New("transient store failure")
)

// InsufficientInventoryError reports how many tickets were left when a
// request asked for more
type InsufficientInventoryError struct {
	Available int
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient tickets available: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// TransientError marks a failure the caller may retry, such as a lock
// timeout, deadlock or lost connection
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient store failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransientStore
}

// InvalidArgument wraps ErrInvalidArgument with the offending field
func InvalidArgument(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, field, reason)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidBookingID)
}
