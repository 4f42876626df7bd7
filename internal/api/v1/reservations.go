package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/domain"
)

type ListReservationsInput struct {
	Date string `query:"date" doc:"Calendar day, YYYY-MM-DD"`
}

type ListReservationsOutput struct {
	Body []ReservationDTO
}

type GetReservationInput struct {
	ID uuid.UUID `path:"id" doc:"Reservation ID"`
}

type GetReservationOutput struct {
	Body ReservationDTO
}

type UpdateReservationInput struct {
	ID   uuid.UUID `path:"id" doc:"Reservation ID"`
	Body struct {
		Status string `json:"status" doc:"Target status: confirmed, completed or cancelled"`
	}
}

type UpdateReservationOutput struct {
	Body ReservationDTO
}

func RegisterReservationRoutes(api huma.API, reader ReservationReader, svc ReservationService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-reservations",
		Method:      http.MethodGet,
		Path:        "/reservations",
		Summary:     "List the reservations of a day",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *ListReservationsInput) (*ListReservationsOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		day, err := parseDate("date", input.Date)
		if err != nil {
			return nil, toHTTPError("list-reservations", err)
		}

		list, err := reader.ListByDate(ctx, tenantID, day)
		if err != nil {
			return nil, toHTTPError("list-reservations", err)
		}
		out := make([]ReservationDTO, 0, len(list))
		for _, r := range list {
			out = append(out, reservationDTO(r))
		}
		return &ListReservationsOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-reservation",
		Method:      http.MethodGet,
		Path:        "/reservations/{id}",
		Summary:     "Get a reservation",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *GetReservationInput) (*GetReservationOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		res, err := svc.Get(ctx, tenantID, input.ID)
		if err != nil {
			return nil, toHTTPError("get-reservation", err)
		}
		return &GetReservationOutput{Body: reservationDTO(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-reservation",
		Method:      http.MethodPatch,
		Path:        "/reservations/{id}",
		Summary:     "Change the status of a reservation",
		Description: "Completing a reservation credits the client's loyalty profile before responding. " +
			"A failed credit does not fail the request; accrualFailed is set instead.",
		Tags: []string{"Reservations"},
	}, func(ctx context.Context, input *UpdateReservationInput) (*UpdateReservationOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		to, err := domain.ParseReservationStatus(input.Body.Status)
		if err != nil {
			return nil, toHTTPError("update-reservation", err)
		}

		result, err := svc.UpdateStatus(ctx, tenantID, input.ID, to, actorFrom(ctx))
		if err != nil {
			return nil, toHTTPError("update-reservation", err)
		}
		if result.AccrualErr != nil {
			log.Warn().Err(result.AccrualErr).
				Str("reservation_id", input.ID.String()).
				Msg("reservation completed without loyalty credit")
		}
		dto := reservationDTO(result.Reservation)
		dto.AccrualFailed = result.AccrualErr != nil
		return &UpdateReservationOutput{Body: dto}, nil
	})
}
