// Package availability computes the bookable slots of a tenant's day.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/metrics"
)

// DefaultSlotMinutes is the slot granularity used when none is configured.
const DefaultSlotMinutes = 60

// TenantLookup resolves a tenant by id.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// SnapshotReader loads everything that decides availability for one day in a
// single consistent read.
type SnapshotReader interface {
	DaySnapshot(ctx context.Context, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error)
}

// Engine is stateless and safe for concurrent use.
type Engine struct {
	tenants     TenantLookup
	schedule    SnapshotReader
	slotMinutes int
	defaultLoc  *time.Location
}

func NewEngine(tenants TenantLookup, schedule SnapshotReader, slotMinutes int, defaultLoc *time.Location) *Engine {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Engine{
		tenants:     tenants,
		schedule:    schedule,
		slotMinutes: slotMinutes,
		defaultLoc:  defaultLoc,
	}
}

func (e *Engine) SlotMinutes() int { return e.slotMinutes }

// Location returns the tenant's timezone, or the engine default when the
// tenant has none configured. An unknown tenant is invalid input.
func (e *Engine) Location(ctx context.Context, tenantID uuid.UUID) (*time.Location, error) {
	t, err := e.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("availability.Engine.Location: %w", domain.NewValidationError("tenant", "unknown tenant %s", tenantID))
		}
		return nil, fmt.Errorf("availability.Engine.Location: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if t.Timezone == "" {
		return e.defaultLoc, nil
	}
	return t.Location(), nil
}

// NormalizeDay maps date to a calendar day of the tenant. A value at midnight
// is taken as the day it names; any other instant is converted into loc first.
func NormalizeDay(date time.Time, loc *time.Location) time.Time {
	h, m, s := date.Clock()
	if h == 0 && m == 0 && s == 0 && date.Nanosecond() == 0 {
		return domain.CalendarDay(date, nil)
	}
	return domain.CalendarDay(date, loc)
}

// ComputeSlots returns every candidate start time of the day in ascending
// order with its availability. A closed, unconfigured or fully blocked day
// yields an empty list. Store failures are returned, never masked as an
// open day.
func (e *Engine) ComputeSlots(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	defer metrics.ObserveAvailability(time.Now())

	loc, err := e.Location(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	day := NormalizeDay(date, loc)

	snap, err := e.schedule.DaySnapshot(ctx, tenantID, day)
	if err != nil {
		return nil, fmt.Errorf("availability.Engine.ComputeSlots: %w", asUnavailable(err))
	}
	return Slots(snap, e.slotMinutes), nil
}

// Slots evaluates a snapshot into the ordered slot list.
func Slots(snap *domain.DaySnapshot, slotMinutes int) []domain.Slot {
	candidates := Candidates(snap, slotMinutes)
	if len(candidates) == 0 {
		return []domain.Slot{}
	}
	slots := make([]domain.Slot, 0, len(candidates))
	for _, c := range candidates {
		slots = append(slots, domain.Slot{Time: c, Available: checkCandidate(snap, c) == nil})
	}
	return slots
}

// Candidates lists the start times generated by the day's working hours,
// before blocks and reservations are applied. It is empty for a closed,
// unconfigured or all-day-blocked day.
func Candidates(snap *domain.DaySnapshot, slotMinutes int) []domain.Clock {
	if dayBlocked(snap) {
		return nil
	}
	wh := snap.WorkingHours
	if wh == nil || !wh.IsOpen {
		return nil
	}
	var out []domain.Clock
	for cursor := wh.StartTime; cursor+domain.Clock(slotMinutes) <= wh.EndTime; cursor += domain.Clock(slotMinutes) {
		out = append(out, cursor)
	}
	return out
}

func dayBlocked(snap *domain.DaySnapshot) bool {
	for _, b := range snap.BlockedSlots {
		if b.AllDay {
			return true
		}
	}
	for _, rb := range snap.RecurringBlocks {
		if rb.AllDay && rb.Matches(snap.Date) {
			return true
		}
	}
	return false
}

func asUnavailable(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
