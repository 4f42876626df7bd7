package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/reservo/internal/api/v1"
	"github.com/gosuda/reservo/internal/domain"
)

func TestGetAvailability(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAvailabilityRoutes(api, &mockAvailability{
			computeSlotsFunc: func(_ context.Context, tid uuid.UUID, date time.Time) ([]domain.Slot, error) {
				assert.Equal(t, tenantID, tid)
				assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), date)
				return []domain.Slot{
					{Time: domain.MustClock(9, 0), Available: true},
					{Time: domain.MustClock(10, 0), Available: false},
					{Time: domain.MustClock(11, 0), Available: true},
				}, nil
			},
		})

		resp := api.GetCtx(tenantCtx(tenantID), "/availability?date=2026-03-02")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []v1.SlotDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, []v1.SlotDTO{
			{Time: "09:00", Available: true},
			{Time: "10:00", Available: false},
			{Time: "11:00", Available: true},
		}, body)
	})

	t.Run("closed_day_is_empty_list", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAvailabilityRoutes(api, &mockAvailability{
			computeSlotsFunc: func(context.Context, uuid.UUID, time.Time) ([]domain.Slot, error) {
				return []domain.Slot{}, nil
			},
		})

		resp := api.GetCtx(tenantCtx(tenantID), "/availability?date=2026-03-01")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, "[]", resp.Body.String())
	})

	t.Run("missing_tenant", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAvailabilityRoutes(api, &mockAvailability{})

		resp := api.Get("/availability?date=2026-03-02")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	for _, date := range []string{"", "02/03/2026", "2026-13-01"} {
		t.Run("bad_date_"+date, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterAvailabilityRoutes(api, &mockAvailability{
				computeSlotsFunc: func(context.Context, uuid.UUID, time.Time) ([]domain.Slot, error) {
					t.Fatal("engine must not be called")
					return nil, nil
				},
			})

			resp := api.GetCtx(tenantCtx(tenantID), "/availability?date="+date)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}

	t.Run("store_unavailable", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAvailabilityRoutes(api, &mockAvailability{
			computeSlotsFunc: func(context.Context, uuid.UUID, time.Time) ([]domain.Slot, error) {
				return nil, fmt.Errorf("scheduleRepo.DaySnapshot: %w", domain.ErrStoreUnavailable)
			},
		})

		resp := api.GetCtx(tenantCtx(tenantID), "/availability?date=2026-03-02")
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})
}
