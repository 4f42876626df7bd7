package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/metrics"
)

// StatusStore reads and transitions reservations.
type StatusStore interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error)
	Transition(ctx context.Context, tenantID, id uuid.UUID, from []domain.ReservationStatus, to domain.ReservationStatus) (*domain.Reservation, error)
}

// Accruer folds a completed reservation into the client's loyalty profile.
type Accruer interface {
	OnReservationCompleted(ctx context.Context, r *domain.Reservation) error
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// Actor identifies who requested a change.
type Actor struct {
	Type string
	ID   string
}

// StatusResult carries the updated reservation. AccrualErr is set when the
// reservation was completed but loyalty bookkeeping failed; the completion
// itself stands.
type StatusResult struct {
	Reservation *domain.Reservation
	AccrualErr  error
}

// Lifecycle applies status transitions and their side effects.
type Lifecycle struct {
	store   StatusStore
	accruer Accruer
	audit   AuditRecorder
	events  *Events
}

func NewLifecycle(store StatusStore, accruer Accruer, audit AuditRecorder, events *Events) *Lifecycle {
	return &Lifecycle{store: store, accruer: accruer, audit: audit, events: events}
}

// UpdateStatus moves a reservation to `to`. Completion triggers loyalty
// accrual exactly once: only the caller whose transition succeeds accrues.
func (l *Lifecycle) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, to domain.ReservationStatus, actor Actor) (*StatusResult, error) {
	from := domain.SourcesFor(to)
	if len(from) == 0 {
		return nil, domain.NewValidationError("status", "cannot move a reservation to %q", to)
	}

	res, err := l.store.Transition(ctx, tenantID, id, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidTransition) ||
			errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("booking.Lifecycle.UpdateStatus: %w", err)
		}
		return nil, fmt.Errorf("booking.Lifecycle.UpdateStatus: %w: %w", domain.ErrStoreUnavailable, err)
	}

	metrics.IncStatusChange(string(to))
	l.record(ctx, &domain.AuditEntry{
		TenantID:   tenantID,
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     "reservation.status_changed",
		Resource:   domain.ResourceReservation,
		ResourceID: res.ID,
		Details:    map[string]any{"status": string(to)},
	})

	evType := EventStatusChanged
	if !to.IsActive() {
		evType = EventSlotReleased
	}
	l.events.Publish(ctx, SlotEvent{Type: evType, Reservation: res})

	result := &StatusResult{Reservation: res}
	if to == domain.ReservationCompleted && l.accruer != nil {
		result.AccrualErr = l.accrue(ctx, res)
	}
	return result, nil
}

// accrue runs detached from the caller's cancellation; the completion it
// credits is already committed.
func (l *Lifecycle) accrue(ctx context.Context, res *domain.Reservation) error {
	ctx = context.WithoutCancel(ctx)
	err := l.accruer.OnReservationCompleted(ctx, res)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAlreadyAccrued) {
		log.Info().Str("reservation_id", res.ID.String()).Msg("booking.Lifecycle: reservation already accrued")
		return nil
	}

	log.Error().Err(err).
		Str("tenant_id", res.TenantID.String()).
		Str("client_id", res.ClientID.String()).
		Str("reservation_id", res.ID.String()).
		Msg("booking.Lifecycle: loyalty accrual failed, reconciliation required")
	l.record(ctx, &domain.AuditEntry{
		TenantID:   res.TenantID,
		ActorType:  domain.ActorSystem,
		ActorID:    "loyalty",
		Action:     "loyalty.accrual_failed",
		Resource:   domain.ResourceReservation,
		ResourceID: res.ID,
		Details: map[string]any{
			"client_id":   res.ClientID.String(),
			"kind":        string(res.Kind),
			"total_price": res.TotalPrice.String(),
			"error":       err.Error(),
		},
	})
	return err
}

func (l *Lifecycle) record(ctx context.Context, entry *domain.AuditEntry) {
	if l.audit == nil {
		return
	}
	if err := l.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", entry.Action).Msg("booking.Lifecycle: audit record failed")
	}
}

// Get returns a reservation of the tenant.
func (l *Lifecycle) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error) {
	res, err := l.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("booking.Lifecycle.Get: %w", err)
	}
	return res, nil
}
