package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gosuda/reservo/internal/auth"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/server/middleware"
)

type CreateBookingInput struct {
	Body struct {
		ClientID   string            `json:"clientId,omitempty" doc:"Client ID. Defaults to the authenticated client."`
		Date       string            `json:"date,omitempty" doc:"Calendar day, YYYY-MM-DD"`
		Time       string            `json:"time,omitempty" doc:"Slot start, HH:MM"`
		Services   []string          `json:"services,omitempty" doc:"Service slugs"`
		Packages   map[string]string `json:"packages,omitempty" doc:"Package selections"`
		TotalPrice float64           `json:"totalPrice,omitempty" doc:"Total price in EUR"`
		Notes      string            `json:"notes,omitempty" maxLength:"2000"`
	}
}

type BookingDTO struct {
	ReservationID uuid.UUID `json:"reservationId"`
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Kind          string    `json:"kind"`
}

type CreateBookingOutput struct {
	Body BookingDTO
}

func RegisterBookingRoutes(api huma.API, svc BookingService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-booking",
		Method:        http.MethodPost,
		Path:          "/bookings",
		Summary:       "Book a slot",
		Tags:          []string{"Bookings"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBookingInput) (*CreateBookingOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, err
		}

		clientID, err := bookingClient(ctx, input.Body.ClientID)
		if err != nil {
			return nil, err
		}
		day, err := parseDate("date", input.Body.Date)
		if err != nil {
			return nil, toHTTPError("create-booking", err)
		}
		at, err := parseClock("time", input.Body.Time)
		if err != nil {
			return nil, toHTTPError("create-booking", err)
		}

		res, err := svc.TryBook(ctx, booking.Request{
			TenantID:   tenantID,
			ClientID:   clientID,
			Date:       day,
			Time:       at,
			Services:   input.Body.Services,
			Packages:   input.Body.Packages,
			TotalPrice: decimal.NewFromFloat(input.Body.TotalPrice).Round(2),
			Notes:      input.Body.Notes,
		})
		if err != nil {
			return nil, toHTTPError("create-booking", err)
		}

		return &CreateBookingOutput{Body: BookingDTO{
			ReservationID: res.ID,
			Status:        string(res.Status),
			Date:          res.Date.Format(time.DateOnly),
			Time:          res.Time.String(),
			Kind:          string(res.Kind),
		}}, nil
	})
}

// bookingClient resolves who the booking is for. Authenticated clients book
// for themselves; staff and anonymous callers must name the client.
func bookingClient(ctx context.Context, raw string) (uuid.UUID, error) {
	role, _ := middleware.RoleFromContext(ctx)
	userID, authed := middleware.UserIDFromContext(ctx)

	if role == auth.RoleClient && authed {
		if raw == "" {
			return userID, nil
		}
		id, err := parseUUID("clientId", raw)
		if err != nil {
			return uuid.Nil, toHTTPError("create-booking", err)
		}
		if id != userID {
			return uuid.Nil, toHTTPError("create-booking", deny(domain.ErrForbidden, "clients may only book for themselves"))
		}
		return id, nil
	}

	if raw == "" {
		return uuid.Nil, toHTTPError("create-booking", domain.NewValidationError("clientId", "required"))
	}
	id, err := parseUUID("clientId", raw)
	if err != nil {
		return uuid.Nil, toHTTPError("create-booking", err)
	}
	return id, nil
}
