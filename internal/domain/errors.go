package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")

	// ErrValidation marks malformed input. Callers must not retry.
	ErrValidation = errors.New("domain: validation failed")

	// ErrSlotTaken marks a write-time booking conflict. Callers retry with a
	// fresh availability read, never with the same slot.
	ErrSlotTaken = errors.New("domain: slot already taken")

	// ErrStoreUnavailable marks a persistence failure (unreachable database,
	// timeout, broken connection).
	ErrStoreUnavailable = errors.New("domain: store unavailable")

	// ErrAccrualFailed marks loyalty bookkeeping that could not be persisted
	// after a reservation was completed.
	ErrAccrualFailed = errors.New("domain: loyalty accrual failed")

	// ErrAlreadyAccrued is returned when a reservation has already been
	// counted into a loyalty profile.
	ErrAlreadyAccrued = errors.New("domain: reservation already accrued")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return "validation: " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SlotConflictError reports that another active reservation already holds the slot.
type SlotConflictError struct {
	TenantID uuid.UUID
	Date     time.Time
	Time     Clock
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s %s already taken", e.Date.Format(time.DateOnly), e.Time)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotTaken }

// AccrualError reports a loyalty accrual that must be reconciled by hand.
type AccrualError struct {
	TenantID      uuid.UUID
	ClientID      uuid.UUID
	ReservationID uuid.UUID
	Err           error
}

func (e *AccrualError) Error() string {
	return fmt.Sprintf("loyalty accrual for reservation %s: %v", e.ReservationID, e.Err)
}

func (e *AccrualError) Unwrap() []error { return []error{ErrAccrualFailed, e.Err} }

// IsRetryable reports whether the caller may retry the operation after
// refreshing its view of the schedule.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrStoreUnavailable)
}
