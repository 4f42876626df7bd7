package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/reservo/internal/api/v1"
	"github.com/gosuda/reservo/internal/auth"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
)

func TestPutWorkingHours(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("open_day", func(t *testing.T) {
		t.Parallel()

		var saved *domain.WorkingHours
		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			upsertWorkingHoursFunc: func(_ context.Context, wh *domain.WorkingHours) error {
				saved = wh
				return nil
			},
		}, pub)

		resp := api.PutCtx(staffCtx(tenantID), "/schedule/working-hours/1", map[string]any{
			"isOpen": true, "startTime": "09:00", "endTime": "12:00",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, saved)
		assert.Equal(t, tenantID, saved.TenantID)
		assert.Equal(t, time.Monday, saved.DayOfWeek)
		assert.Equal(t, domain.MustClock(9, 0), saved.StartTime)
		assert.Equal(t, domain.MustClock(12, 0), saved.EndTime)

		var body v1.WorkingHoursDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, v1.WorkingHoursDTO{DayOfWeek: 1, IsOpen: true, StartTime: "09:00", EndTime: "12:00"}, body)

		events := pub.Events()
		require.Len(t, events, 1)
		assert.Equal(t, booking.EventScheduleChanged, events[0].Type)
		assert.Equal(t, tenantID, events[0].TenantID)
	})

	t.Run("end_before_start", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{}, pub)

		resp := api.PutCtx(staffCtx(tenantID), "/schedule/working-hours/1", map[string]any{
			"isOpen": true, "startTime": "12:00", "endTime": "09:00",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Empty(t, pub.Events())
	})

	t.Run("closed_day_ignores_times", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			upsertWorkingHoursFunc: func(_ context.Context, wh *domain.WorkingHours) error {
				assert.False(t, wh.IsOpen)
				return nil
			},
		}, &recordingPublisher{})

		resp := api.PutCtx(staffCtx(tenantID), "/schedule/working-hours/0", map[string]any{"isOpen": false})
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestBlockedSlots(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("create_single_slot", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			createBlockedSlotFunc: func(_ context.Context, b *domain.BlockedSlot) error {
				assert.Equal(t, tenantID, b.TenantID)
				assert.False(t, b.AllDay)
				require.NotNil(t, b.Time)
				assert.Equal(t, domain.MustClock(10, 0), *b.Time)
				b.CreatedAt = time.Now()
				return nil
			},
		}, pub)

		resp := api.PostCtx(staffCtx(tenantID), "/schedule/blocked-slots", map[string]any{
			"date": "2026-03-02", "time": "10:00", "reason": "training",
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		var body v1.BlockedSlotDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "2026-03-02", body.Date)
		assert.Equal(t, "10:00", body.Time)

		events := pub.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "2026-03-02", events[0].Date.Format(time.DateOnly))
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			createBlockedSlotFunc: func(context.Context, *domain.BlockedSlot) error { return domain.ErrConflict },
		}, &recordingPublisher{})

		resp := api.PostCtx(staffCtx(tenantID), "/schedule/blocked-slots", map[string]any{
			"date": "2026-03-02", "allDay": true,
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("time_required_unless_all_day", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{}, &recordingPublisher{})

		resp := api.PostCtx(staffCtx(tenantID), "/schedule/blocked-slots", map[string]any{"date": "2026-03-02"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("list_range", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			listBlockedSlotsFunc: func(_ context.Context, _ uuid.UUID, from, to time.Time) ([]*domain.BlockedSlot, error) {
				assert.Equal(t, "2026-03-01", from.Format(time.DateOnly))
				assert.Equal(t, "2026-03-31", to.Format(time.DateOnly))
				return []*domain.BlockedSlot{{ID: uuid.New(), TenantID: tenantID, Date: from, AllDay: true}}, nil
			},
		}, &recordingPublisher{})

		resp := api.GetCtx(staffCtx(tenantID), "/schedule/blocked-slots?from=2026-03-01&to=2026-03-31")
		require.Equal(t, http.StatusOK, resp.Code)
		var body []v1.BlockedSlotDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.True(t, body[0].AllDay)
		assert.Empty(t, body[0].Time)
	})

	t.Run("delete_missing", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			deleteBlockedSlotFunc: func(context.Context, uuid.UUID, uuid.UUID) error { return domain.ErrNotFound },
		}, pub)

		resp := api.DeleteCtx(staffCtx(tenantID), "/schedule/blocked-slots/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Empty(t, pub.Events())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			deleteBlockedSlotFunc: func(context.Context, uuid.UUID, uuid.UUID) error { return nil },
		}, pub)

		resp := api.DeleteCtx(staffCtx(tenantID), "/schedule/blocked-slots/"+uuid.NewString())
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Len(t, pub.Events(), 1)
	})
}

func TestRecurringBlocks(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("weekly_window", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{
			createRecurringBlockFunc: func(_ context.Context, b *domain.RecurringBlock) error {
				assert.Equal(t, domain.RecurrenceWeekly, b.Type)
				require.NotNil(t, b.DayOfWeek)
				assert.Equal(t, 1, *b.DayOfWeek)
				assert.Equal(t, domain.MustClock(12, 0), *b.StartTime)
				assert.Equal(t, domain.MustClock(14, 0), *b.EndTime)
				return nil
			},
		}, &recordingPublisher{})

		resp := api.PostCtx(staffCtx(tenantID), "/schedule/recurring-blocks", map[string]any{
			"type": "weekly", "dayOfWeek": 1, "startTime": "12:00", "endTime": "14:00", "reason": "lunch",
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		var body v1.RecurringBlockDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "WEEKLY", body.Type)
		assert.Equal(t, "12:00", body.StartTime)
	})

	invalid := []struct {
		name string
		body map[string]any
	}{
		{"unknown_type", map[string]any{"type": "DAILY", "allDay": true}},
		{"weekly_without_day", map[string]any{"type": "WEEKLY", "allDay": true}},
		{"monthly_day_32", map[string]any{"type": "MONTHLY", "dayOfMonth": 32, "allDay": true}},
		{"empty_window", map[string]any{"type": "WEEKLY", "dayOfWeek": 2, "startTime": "14:00", "endTime": "14:00"}},
		{"missing_window", map[string]any{"type": "WEEKLY", "dayOfWeek": 2}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterScheduleRoutes(api, &mockSchedule{}, &recordingPublisher{})

			resp := api.PostCtx(staffCtx(tenantID), "/schedule/recurring-blocks", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}

	t.Run("anonymous_unauthorized", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{}, &recordingPublisher{})

		resp := api.GetCtx(tenantCtx(tenantID), "/schedule/recurring-blocks")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("client_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterScheduleRoutes(api, &mockSchedule{}, &recordingPublisher{})

		resp := api.GetCtx(userCtx(tenantID, uuid.New(), auth.RoleClient), "/schedule/recurring-blocks")
		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Contains(t, resp.Body.String(), "staff role required")
	})
}
