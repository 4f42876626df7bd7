package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/reservo/internal/domain"
)

func intPtr(v int) *int { return &v }

func clockPtr(h, m int) *domain.Clock {
	c := domain.MustClock(h, m)
	return &c
}

// ---------------------------------------------------------------------------
// 1. ReservationStatus.ValidTransition: full 4x4 state-machine matrix.
// ---------------------------------------------------------------------------

func TestReservationStatus_ValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from domain.ReservationStatus
		to   domain.ReservationStatus
		want bool
	}{
		// From pending.
		{domain.ReservationPending, domain.ReservationConfirmed, true},
		{domain.ReservationPending, domain.ReservationCompleted, true},
		{domain.ReservationPending, domain.ReservationCancelled, true},
		{domain.ReservationPending, domain.ReservationPending, false},

		// From confirmed.
		{domain.ReservationConfirmed, domain.ReservationCompleted, true},
		{domain.ReservationConfirmed, domain.ReservationCancelled, true},
		{domain.ReservationConfirmed, domain.ReservationPending, false},
		{domain.ReservationConfirmed, domain.ReservationConfirmed, false},

		// Terminal states.
		{domain.ReservationCompleted, domain.ReservationPending, false},
		{domain.ReservationCompleted, domain.ReservationConfirmed, false},
		{domain.ReservationCompleted, domain.ReservationCancelled, false},
		{domain.ReservationCompleted, domain.ReservationCompleted, false},
		{domain.ReservationCancelled, domain.ReservationPending, false},
		{domain.ReservationCancelled, domain.ReservationConfirmed, false},
		{domain.ReservationCancelled, domain.ReservationCompleted, false},
		{domain.ReservationCancelled, domain.ReservationCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.from.ValidTransition(tt.to))
		})
	}
}

func TestSourcesFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed},
		domain.SourcesFor(domain.ReservationCompleted))
	assert.Equal(t,
		[]domain.ReservationStatus{domain.ReservationPending},
		domain.SourcesFor(domain.ReservationConfirmed))
	assert.Empty(t, domain.SourcesFor(domain.ReservationPending))
}

func TestParseReservationStatus(t *testing.T) {
	t.Parallel()

	st, err := domain.ParseReservationStatus(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCompleted, st)

	_, err = domain.ParseReservationStatus("archived")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationStatus_IsActive(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.ReservationPending.IsActive())
	assert.True(t, domain.ReservationConfirmed.IsActive())
	assert.False(t, domain.ReservationCompleted.IsActive())
	assert.False(t, domain.ReservationCancelled.IsActive())
}

// ---------------------------------------------------------------------------
// 2. Classification.
// ---------------------------------------------------------------------------

func TestClassifyReservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services []string
		packages map[string]string
		want     domain.ServiceKind
	}{
		{"plain services", []string{"coupe", "brushing"}, nil, domain.ServiceKindIndividual},
		{"no services", nil, nil, domain.ServiceKindIndividual},
		{"package selection", []string{"coupe"}, map[string]string{"p1": "Spa"}, domain.ServiceKindPackage},
		{"forfait slug", []string{"Forfait-Mariage"}, nil, domain.ServiceKindPackage},
		{"empty package map", []string{"coupe"}, map[string]string{}, domain.ServiceKindIndividual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, domain.ClassifyReservation(tt.services, tt.packages))
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Clock parsing and formatting.
// ---------------------------------------------------------------------------

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.Clock
		wantErr bool
	}{
		{"09:00", 540, false},
		{"9:30", 570, false},
		{"23:59", 1439, false},
		{"00:00", 0, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParseClock(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClock_TextRoundTrip(t *testing.T) {
	t.Parallel()

	c := domain.MustClock(7, 5)
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "07:05", string(b))

	var back domain.Clock
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, c, back)
}

func TestCalendarDay(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// 23:30 UTC on March 1st is already March 2nd in Paris.
	instant := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	day := domain.CalendarDay(instant, paris)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, time.Monday, day.Weekday())
}

// ---------------------------------------------------------------------------
// 4. Schedule invariants.
// ---------------------------------------------------------------------------

func TestWorkingHours_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wh      domain.WorkingHours
		wantErr bool
	}{
		{"open window", domain.WorkingHours{DayOfWeek: time.Monday, IsOpen: true, StartTime: 540, EndTime: 720}, false},
		{"closed ignores times", domain.WorkingHours{DayOfWeek: time.Sunday, IsOpen: false, StartTime: 720, EndTime: 540}, false},
		{"empty open window", domain.WorkingHours{DayOfWeek: time.Monday, IsOpen: true, StartTime: 540, EndTime: 540}, false},
		{"inverted window", domain.WorkingHours{DayOfWeek: time.Monday, IsOpen: true, StartTime: 720, EndTime: 540}, true},
		{"bad weekday", domain.WorkingHours{DayOfWeek: 7, IsOpen: false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.wh.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBlockedSlot_ValidateAndCovers(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	timed := &domain.BlockedSlot{Date: day, Time: clockPtr(10, 0)}
	require.NoError(t, timed.Validate())
	assert.True(t, timed.Covers(domain.MustClock(10, 0)))
	assert.False(t, timed.Covers(domain.MustClock(11, 0)))

	allDay := &domain.BlockedSlot{Date: day, AllDay: true}
	require.NoError(t, allDay.Validate())
	assert.True(t, allDay.Covers(domain.MustClock(23, 0)))

	missing := &domain.BlockedSlot{Date: day}
	assert.ErrorIs(t, missing.Validate(), domain.ErrValidation)
}

func TestRecurringBlock_Matches(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	feb28 := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	weekly := &domain.RecurringBlock{Type: domain.RecurrenceWeekly, DayOfWeek: intPtr(1), AllDay: true}
	assert.True(t, weekly.Matches(monday))
	assert.False(t, weekly.Matches(monday.AddDate(0, 0, 1)))

	monthly := &domain.RecurringBlock{Type: domain.RecurrenceMonthly, DayOfMonth: intPtr(31), AllDay: true}
	assert.False(t, monthly.Matches(feb28))
	assert.True(t, monthly.Matches(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestRecurringBlock_CoversHalfOpen(t *testing.T) {
	t.Parallel()

	rb := &domain.RecurringBlock{
		Type:      domain.RecurrenceWeekly,
		DayOfWeek: intPtr(1),
		StartTime: clockPtr(12, 0),
		EndTime:   clockPtr(14, 0),
	}
	require.NoError(t, rb.Validate())

	assert.False(t, rb.Covers(domain.MustClock(11, 0)))
	assert.True(t, rb.Covers(domain.MustClock(12, 0)))
	assert.True(t, rb.Covers(domain.MustClock(13, 0)))
	assert.False(t, rb.Covers(domain.MustClock(14, 0)))
}

func TestRecurringBlock_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rb   domain.RecurringBlock
	}{
		{"unknown type", domain.RecurringBlock{Type: "DAILY", AllDay: true}},
		{"weekly without day", domain.RecurringBlock{Type: domain.RecurrenceWeekly, AllDay: true}},
		{"monthly day zero", domain.RecurringBlock{Type: domain.RecurrenceMonthly, DayOfMonth: intPtr(0), AllDay: true}},
		{"timed without window", domain.RecurringBlock{Type: domain.RecurrenceWeekly, DayOfWeek: intPtr(2)}},
		{"inverted window", domain.RecurringBlock{
			Type: domain.RecurrenceWeekly, DayOfWeek: intPtr(2),
			StartTime: clockPtr(14, 0), EndTime: clockPtr(12, 0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, tt.rb.Validate(), domain.ErrValidation)
		})
	}
}

// ---------------------------------------------------------------------------
// 5. Structured errors.
// ---------------------------------------------------------------------------

func TestStructuredErrors(t *testing.T) {
	t.Parallel()

	conflict := &domain.SlotConflictError{
		TenantID: uuid.New(),
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Time:     domain.MustClock(10, 0),
	}
	assert.ErrorIs(t, conflict, domain.ErrSlotTaken)
	assert.Equal(t, "slot 2026-03-02 10:00 already taken", conflict.Error())
	assert.True(t, domain.IsRetryable(conflict))

	cause := errors.New("connection reset")
	accrual := &domain.AccrualError{ReservationID: uuid.New(), Err: cause}
	assert.ErrorIs(t, accrual, domain.ErrAccrualFailed)
	assert.ErrorIs(t, accrual, cause)

	var ve *domain.ValidationError
	require.ErrorAs(t, domain.NewValidationError("time", "bad %s", "value"), &ve)
	assert.Equal(t, "validation: time: bad value", ve.Error())
	assert.False(t, domain.IsRetryable(ve))
}

func TestTenant_Location(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "America/New_York", (&domain.Tenant{Timezone: "America/New_York"}).Location().String())
	assert.Equal(t, domain.DefaultTimezone, (&domain.Tenant{Timezone: "Not/AZone"}).Location().String())
	assert.Equal(t, domain.DefaultTimezone, (&domain.Tenant{}).Location().String())
}
