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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/reservo/internal/api/v1"
	"github.com/gosuda/reservo/internal/auth"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
)

func sampleReservation(tenantID uuid.UUID, status domain.ReservationStatus) *domain.Reservation {
	return &domain.Reservation{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ClientID:   uuid.New(),
		Date:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Time:       domain.MustClock(10, 0),
		Status:     status,
		Kind:       domain.ServiceKindIndividual,
		Services:   []string{"coupe"},
		TotalPrice: decimal.NewFromInt(80),
	}
}

func TestUpdateReservation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		res := sampleReservation(tenantID, domain.ReservationCompleted)
		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{
			updateStatusFunc: func(_ context.Context, tid, id uuid.UUID, to domain.ReservationStatus, actor booking.Actor) (*booking.StatusResult, error) {
				assert.Equal(t, tenantID, tid)
				assert.Equal(t, res.ID, id)
				assert.Equal(t, domain.ReservationCompleted, to)
				assert.Equal(t, domain.ActorStaff, actor.Type)
				assert.NotEmpty(t, actor.ID)
				return &booking.StatusResult{Reservation: res}, nil
			},
		})

		resp := api.PatchCtx(staffCtx(tenantID), "/reservations/"+res.ID.String(), map[string]any{"status": "COMPLETED"})
		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.ReservationDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, res.ID, body.ID)
		assert.Equal(t, "completed", body.Status)
		assert.Equal(t, "80.00", body.TotalPrice)
		assert.Equal(t, "10:00", body.Time)
		assert.False(t, body.AccrualFailed)
	})

	t.Run("accrual_failure_still_succeeds", func(t *testing.T) {
		t.Parallel()

		res := sampleReservation(tenantID, domain.ReservationCompleted)
		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{
			updateStatusFunc: func(context.Context, uuid.UUID, uuid.UUID, domain.ReservationStatus, booking.Actor) (*booking.StatusResult, error) {
				return &booking.StatusResult{
					Reservation: res,
					AccrualErr:  &domain.AccrualError{Err: fmt.Errorf("loyaltyRepo.Accrue: %w", domain.ErrStoreUnavailable)},
				}, nil
			},
		})

		resp := api.PatchCtx(staffCtx(tenantID), "/reservations/"+res.ID.String(), map[string]any{"status": "completed"})
		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.ReservationDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "completed", body.Status)
		assert.True(t, body.AccrualFailed)
	})

	errCases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid_transition", fmt.Errorf("repo: %w", domain.ErrInvalidTransition), http.StatusConflict},
		{"not_found", fmt.Errorf("repo: %w", domain.ErrNotFound), http.StatusNotFound},
		{"slot_retaken", fmt.Errorf("repo: %w", domain.ErrSlotTaken), http.StatusConflict},
		{"unavailable", fmt.Errorf("repo: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{
				updateStatusFunc: func(context.Context, uuid.UUID, uuid.UUID, domain.ReservationStatus, booking.Actor) (*booking.StatusResult, error) {
					return nil, tc.err
				},
			})

			resp := api.PatchCtx(staffCtx(tenantID), "/reservations/"+uuid.NewString(), map[string]any{"status": "cancelled"})
			assert.Equal(t, tc.want, resp.Code)
		})
	}

	t.Run("unknown_status", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{})

		resp := api.PatchCtx(staffCtx(tenantID), "/reservations/"+uuid.NewString(), map[string]any{"status": "archived"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("client_role_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{})

		ctx := userCtx(tenantID, uuid.New(), auth.RoleClient)
		resp := api.PatchCtx(ctx, "/reservations/"+uuid.NewString(), map[string]any{"status": "cancelled"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestListReservations(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{
			listByDateFunc: func(_ context.Context, tid uuid.UUID, day time.Time) ([]*domain.Reservation, error) {
				assert.Equal(t, tenantID, tid)
				assert.Equal(t, "2026-03-02", day.Format(time.DateOnly))
				return []*domain.Reservation{
					sampleReservation(tenantID, domain.ReservationPending),
					sampleReservation(tenantID, domain.ReservationCancelled),
				}, nil
			},
		}, &mockReservations{})

		resp := api.GetCtx(staffCtx(tenantID), "/reservations?date=2026-03-02")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []v1.ReservationDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 2)
		assert.Equal(t, "pending", body[0].Status)
		assert.Equal(t, []string{"coupe"}, body[0].Services)
		assert.NotNil(t, body[0].Packages)
	})

	t.Run("missing_date", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{})

		resp := api.GetCtx(staffCtx(tenantID), "/reservations")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestGetReservation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	res := sampleReservation(tenantID, domain.ReservationConfirmed)

	_, api := humatest.New(t)
	v1.RegisterReservationRoutes(api, &mockReservations{}, &mockReservations{
		getFunc: func(_ context.Context, tid, id uuid.UUID) (*domain.Reservation, error) {
			if tid != tenantID || id != res.ID {
				return nil, domain.ErrNotFound
			}
			return res, nil
		},
	})

	resp := api.GetCtx(staffCtx(tenantID), "/reservations/"+res.ID.String())
	require.Equal(t, http.StatusOK, resp.Code)
	var body v1.ReservationDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "confirmed", body.Status)

	resp = api.GetCtx(staffCtx(uuid.New()), "/reservations/"+res.ID.String())
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
