// Package service holds the business rules of the booking platform:
// admission of bookings against provider capacity, the booking state
// machine, catalog management and accounts.  Services depend only on
// the contracts in package ports and report failures with the error
// values below.
package service

import (
	"errors"
	"fmt"
)

// Error kinds.  Every error returned by a service wraps exactly one of
// them; the HTTP layer maps kinds to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	// ErrInvalidCredentials is reported by login and token refresh.  It is
	// kept apart from ErrUnauthorized, which means "authenticated but not
	// allowed".
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Specific failures.
var (
	ErrProviderNotFound        = fmt.Errorf("provider: %w", ErrNotFound)
	ErrServiceOfferingNotFound = fmt.Errorf("service offering: %w", ErrNotFound)
	ErrUserNotFound            = fmt.Errorf("user: %w", ErrNotFound)
	ErrBookingNotFound         = fmt.Errorf("booking: %w", ErrNotFound)

	ErrSlotUnavailable     = fmt.Errorf("slot unavailable: %w", ErrConflict)
	ErrProviderNameTaken   = fmt.Errorf("provider name already exists: %w", ErrConflict)
	ErrServiceNameTaken    = fmt.Errorf("service offering name already exists: %w", ErrConflict)
	ErrEmailTaken          = fmt.Errorf("email already exists: %w", ErrConflict)
	ErrProviderHasBookings = fmt.Errorf("provider has bookings: %w", ErrConflict)
	ErrServiceHasBookings  = fmt.Errorf("service offering has bookings: %w", ErrConflict)

	ErrNotAProvider    = fmt.Errorf("not a provider: %w", ErrUnauthorized)
	ErrNotBookingOwner = fmt.Errorf("booking belongs to another provider: %w", ErrUnauthorized)

	ErrCannotConfirm    = fmt.Errorf("only pending bookings can be confirmed: %w", ErrInvalidState)
	ErrBookingCompleted = fmt.Errorf("booking is completed: %w", ErrInvalidState)
)

// validationError describes a malformed input.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
