// Package booking owns the reservation write path: atomic slot claims and
// the status lifecycle that follows.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/gosuda/reservo/internal/availability"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/metrics"
)

// Request is a client's attempt to claim one slot.
type Request struct {
	TenantID   uuid.UUID
	ClientID   uuid.UUID
	Date       time.Time // calendar day
	Time       domain.Clock
	Services   []string
	Packages   map[string]string
	TotalPrice decimal.Decimal
	Notes      string
}

// SlotBooker performs the atomic check-and-insert.
type SlotBooker interface {
	Book(ctx context.Context, r *domain.Reservation, check domain.SlotCheck) error
}

// Clock source, swapped in tests.
type NowFunc func() time.Time

// Options configures a Writer.
type Options struct {
	InitialStatus  domain.ReservationStatus
	MaxAdvanceDays int // 0 disables the horizon check
	Now            NowFunc
}

// Writer claims slots. Exactly one of any number of concurrent callers on the
// same (tenant, date, time) succeeds; the rest get a *domain.SlotConflictError.
type Writer struct {
	engine   *availability.Engine
	booker   SlotBooker
	events   *Events
	notifier Notifier
	opts     Options
}

func NewWriter(engine *availability.Engine, booker SlotBooker, events *Events, notifier Notifier, opts Options) *Writer {
	if opts.InitialStatus == "" {
		opts.InitialStatus = domain.ReservationPending
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Writer{
		engine:   engine,
		booker:   booker,
		events:   events,
		notifier: notifier,
		opts:     opts,
	}
}

// TryBook validates req, then re-checks availability and inserts the
// reservation inside a single store transaction.
func (w *Writer) TryBook(ctx context.Context, req Request) (*domain.Reservation, error) {
	res, err := w.tryBook(ctx, req)
	switch {
	case err == nil:
		metrics.IncBookingAttempt(metrics.OutcomeBooked)
	case errors.Is(err, domain.ErrSlotTaken):
		metrics.IncBookingAttempt(metrics.OutcomeConflict)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		metrics.IncBookingAttempt(metrics.OutcomeInvalid)
	default:
		metrics.IncBookingAttempt(metrics.OutcomeUnavailable)
	}
	return res, err
}

func (w *Writer) tryBook(ctx context.Context, req Request) (*domain.Reservation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	loc, err := w.engine.Location(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("booking.Writer.TryBook: %w", err)
	}
	day := availability.NormalizeDay(req.Date, loc)
	if err := w.validateWindow(req.Time, day, loc); err != nil {
		return nil, err
	}

	res := &domain.Reservation{
		ID:         uuid.New(),
		TenantID:   req.TenantID,
		ClientID:   req.ClientID,
		Date:       day,
		Time:       req.Time,
		Status:     w.opts.InitialStatus,
		Kind:       domain.ClassifyReservation(req.Services, req.Packages),
		Services:   req.Services,
		Packages:   req.Packages,
		TotalPrice: req.TotalPrice,
		Notes:      strings.TrimSpace(req.Notes),
	}

	slotMinutes := w.engine.SlotMinutes()
	check := func(snap *domain.DaySnapshot) error {
		switch err := availability.Check(snap, req.Time, slotMinutes); {
		case err == nil:
			return nil
		case errors.Is(err, availability.ErrOccupied):
			return &domain.SlotConflictError{TenantID: req.TenantID, Date: day, Time: req.Time}
		default:
			return &domain.ValidationError{Field: "time", Reason: err.Error()}
		}
	}

	if err := w.booker.Book(ctx, res, check); err != nil {
		var conflict *domain.SlotConflictError
		var invalid *domain.ValidationError
		if errors.As(err, &conflict) || errors.As(err, &invalid) {
			return nil, err
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("booking.Writer.TryBook: %w", err)
		}
		return nil, fmt.Errorf("booking.Writer.TryBook: %w: %w", domain.ErrStoreUnavailable, err)
	}

	w.events.Publish(ctx, SlotEvent{Type: EventSlotBooked, Reservation: res})
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, BookingMessage(res)); err != nil {
			log.Warn().Err(err).Str("reservation_id", res.ID.String()).Msg("booking.Writer.TryBook: staff notification failed")
		}
	}
	return res, nil
}

func validateRequest(req Request) error {
	if req.TenantID == uuid.Nil {
		return domain.NewValidationError("tenantId", "required")
	}
	if req.ClientID == uuid.Nil {
		return domain.NewValidationError("clientId", "required")
	}
	if !req.Time.Valid() {
		return domain.NewValidationError("time", "invalid time of day")
	}
	if req.TotalPrice.IsNegative() {
		return domain.NewValidationError("totalPrice", "must not be negative")
	}
	if req.Date.IsZero() {
		return domain.NewValidationError("date", "required")
	}
	return nil
}

// validateWindow rejects slots that already started or lie beyond the
// booking horizon.
func (w *Writer) validateWindow(at domain.Clock, day time.Time, loc *time.Location) error {
	now := w.opts.Now()
	if !at.On(day, loc).After(now) {
		return domain.NewValidationError("date", "slot %s %s is in the past", day.Format(time.DateOnly), at)
	}
	if w.opts.MaxAdvanceDays > 0 {
		horizon := domain.CalendarDay(now, loc).AddDate(0, 0, w.opts.MaxAdvanceDays)
		if day.After(horizon) {
			return domain.NewValidationError("date", "bookings open at most %d days ahead", w.opts.MaxAdvanceDays)
		}
	}
	return nil
}
