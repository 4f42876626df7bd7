package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
)

// AvailabilityService computes a tenant's bookable slots.
// *availability.Engine satisfies this interface.
type AvailabilityService interface {
	ComputeSlots(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Slot, error)
}

// BookingService claims slots.
// *booking.Writer satisfies this interface.
type BookingService interface {
	TryBook(ctx context.Context, req booking.Request) (*domain.Reservation, error)
}

// ReservationService applies status transitions.
// *booking.Lifecycle satisfies this interface.
type ReservationService interface {
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, to domain.ReservationStatus, actor booking.Actor) (*booking.StatusResult, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error)
}

// ReservationReader lists a tenant's reservations by calendar day.
type ReservationReader interface {
	ListByDate(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*domain.Reservation, error)
}

// EventPublisher broadcasts availability changes.
// *booking.Events satisfies this interface.
type EventPublisher interface {
	Publish(ctx context.Context, ev booking.SlotEvent)
}
