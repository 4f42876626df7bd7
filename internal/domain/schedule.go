package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkingHours is the opening window for one weekday. At most one row exists
// per (tenant, weekday).
type WorkingHours struct {
	TenantID  uuid.UUID
	DayOfWeek time.Weekday
	IsOpen    bool
	StartTime Clock
	EndTime   Clock
	UpdatedAt time.Time
}

func (w *WorkingHours) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return NewValidationError("dayOfWeek", "must be between 0 and 6")
	}
	if !w.IsOpen {
		return nil
	}
	if !w.StartTime.Valid() || !w.EndTime.Valid() {
		return NewValidationError("startTime", "invalid time of day")
	}
	// start == end is an open day without slots.
	if w.StartTime > w.EndTime {
		return NewValidationError("endTime", "must not be before startTime")
	}
	return nil
}

// BlockedSlot is a one-off closure, either the whole day or a single slot time.
type BlockedSlot struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Date      time.Time
	AllDay    bool
	Time      *Clock
	Reason    string
	CreatedAt time.Time
}

func (b *BlockedSlot) Validate() error {
	if b.Date.IsZero() {
		return NewValidationError("date", "required")
	}
	if b.AllDay {
		return nil
	}
	if b.Time == nil {
		return NewValidationError("time", "required unless allDay is set")
	}
	if !b.Time.Valid() {
		return NewValidationError("time", "invalid time of day")
	}
	return nil
}

// Covers reports whether the block removes slot t.
func (b *BlockedSlot) Covers(t Clock) bool {
	return b.AllDay || (b.Time != nil && *b.Time == t)
}

type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
)

// RecurringBlock is a repeating closure evaluated lazily against each date.
// Weekly blocks match on DayOfWeek (0=Sunday), monthly blocks on DayOfMonth.
// A monthly block on day 31 never matches a shorter month.
type RecurringBlock struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Type       RecurrenceType
	DayOfWeek  *int
	DayOfMonth *int
	AllDay     bool
	StartTime  *Clock
	EndTime    *Clock
	Reason     string
	CreatedAt  time.Time
}

func (r *RecurringBlock) Validate() error {
	switch r.Type {
	case RecurrenceWeekly:
		if r.DayOfWeek == nil || *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return NewValidationError("dayOfWeek", "weekly blocks need a day between 0 and 6")
		}
	case RecurrenceMonthly:
		if r.DayOfMonth == nil || *r.DayOfMonth < 1 || *r.DayOfMonth > 31 {
			return NewValidationError("dayOfMonth", "monthly blocks need a day between 1 and 31")
		}
	default:
		return NewValidationError("type", "must be WEEKLY or MONTHLY")
	}
	if r.AllDay {
		return nil
	}
	if r.StartTime == nil || r.EndTime == nil {
		return NewValidationError("startTime", "startTime and endTime are required unless allDay is set")
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() || *r.StartTime >= *r.EndTime {
		return NewValidationError("endTime", "must be after startTime")
	}
	return nil
}

// Matches reports whether the block applies to the calendar day.
func (r *RecurringBlock) Matches(day time.Time) bool {
	switch r.Type {
	case RecurrenceWeekly:
		return r.DayOfWeek != nil && int(day.Weekday()) == *r.DayOfWeek
	case RecurrenceMonthly:
		return r.DayOfMonth != nil && day.Day() == *r.DayOfMonth
	default:
		return false
	}
}

// Covers reports whether slot t falls in the half-open window [start, end).
func (r *RecurringBlock) Covers(t Clock) bool {
	if r.AllDay {
		return true
	}
	if r.StartTime == nil || r.EndTime == nil {
		return false
	}
	return t >= *r.StartTime && t < *r.EndTime
}

// DaySnapshot is a consistent read of everything that decides availability
// for one tenant and calendar day.
type DaySnapshot struct {
	TenantID        uuid.UUID
	Date            time.Time
	WorkingHours    *WorkingHours // nil when the weekday is not configured
	BlockedSlots    []*BlockedSlot
	RecurringBlocks []*RecurringBlock
	Reservations    []*Reservation // active reservations only
}

type ScheduleRepository interface {
	GetWorkingHours(ctx context.Context, tenantID uuid.UUID, day time.Weekday) (*WorkingHours, error)
	ListWorkingHours(ctx context.Context, tenantID uuid.UUID) ([]*WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh *WorkingHours) error

	ListBlockedSlots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, b *BlockedSlot) error
	DeleteBlockedSlot(ctx context.Context, tenantID, id uuid.UUID) error

	ListRecurringBlocks(ctx context.Context, tenantID uuid.UUID) ([]*RecurringBlock, error)
	CreateRecurringBlock(ctx context.Context, b *RecurringBlock) error
	DeleteRecurringBlock(ctx context.Context, tenantID, id uuid.UUID) error

	DaySnapshot(ctx context.Context, tenantID uuid.UUID, day time.Time) (*DaySnapshot, error)
}

// Slot is one bookable start time and whether it can currently be booked.
type Slot struct {
	Time      Clock
	Available bool
}
