package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("reservation: invalid state transition")

// ParseReservationStatus accepts any casing of the four known statuses.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ReservationPending, ReservationConfirmed, ReservationCompleted, ReservationCancelled:
		return st, nil
	default:
		return "", NewValidationError("status", "unknown status %q", s)
	}
}

// IsActive reports whether a reservation in this status occupies its slot.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// ValidTransition checks if a reservation state transition is allowed.
// Allowed: pending->confirmed, pending|confirmed->completed, pending|confirmed->cancelled.
func (s ReservationStatus) ValidTransition(to ReservationStatus) bool {
	switch s {
	case ReservationPending:
		return to == ReservationConfirmed || to == ReservationCompleted || to == ReservationCancelled
	case ReservationConfirmed:
		return to == ReservationCompleted || to == ReservationCancelled
	default:
		return false
	}
}

// SourcesFor returns every status that may transition to `to`.
func SourcesFor(to ReservationStatus) []ReservationStatus {
	var out []ReservationStatus
	for _, s := range []ReservationStatus{ReservationPending, ReservationConfirmed, ReservationCompleted, ReservationCancelled} {
		if s.ValidTransition(to) {
			out = append(out, s)
		}
	}
	return out
}

// ServiceKind classifies a reservation, and the discount it unlocks.
type ServiceKind string

const (
	ServiceKindIndividual ServiceKind = "INDIVIDUAL"
	ServiceKindPackage    ServiceKind = "PACKAGE"
)

const packageMarker = "forfait"

// ClassifyReservation tags a booking as PACKAGE when it carries any package
// selection or a package service slug, INDIVIDUAL otherwise.
func ClassifyReservation(services []string, packages map[string]string) ServiceKind {
	if len(packages) > 0 {
		return ServiceKindPackage
	}
	for _, s := range services {
		if strings.Contains(strings.ToLower(s), packageMarker) {
			return ServiceKindPackage
		}
	}
	return ServiceKindIndividual
}

type Reservation struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ClientID    uuid.UUID
	Date        time.Time
	Time        Clock
	Status      ReservationStatus
	Kind        ServiceKind
	Services    []string
	Packages    map[string]string
	TotalPrice  decimal.Decimal
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// SlotCheck decides, against a consistent snapshot, whether a reservation may
// be written. Returning an error aborts the write.
type SlotCheck func(snap *DaySnapshot) error

type ReservationRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Reservation, error)
	ListByDate(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*Reservation, error)
	// Book runs check against a snapshot taken under a per-slot lock and
	// inserts r in the same transaction. A concurrent active reservation on
	// the same slot yields a *SlotConflictError.
	Book(ctx context.Context, r *Reservation, check SlotCheck) error
	// Transition moves a reservation to `to` only if its current status is
	// one of `from`. Exactly one concurrent caller wins; the others get
	// ErrInvalidTransition.
	Transition(ctx context.Context, tenantID, id uuid.UUID, from []ReservationStatus, to ReservationStatus) (*Reservation, error)
}
