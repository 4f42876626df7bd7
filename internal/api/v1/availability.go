package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type GetAvailabilityInput struct {
	Date string `query:"date" doc:"Calendar day, YYYY-MM-DD"`
}

type SlotDTO struct {
	Time      string `json:"time" doc:"Slot start, HH:MM"`
	Available bool   `json:"available"`
}

type GetAvailabilityOutput struct {
	Body []SlotDTO
}

func RegisterAvailabilityRoutes(api huma.API, svc AvailabilityService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-availability",
		Method:      http.MethodGet,
		Path:        "/availability",
		Summary:     "List the slots of a day and whether each can be booked",
		Tags:        []string{"Availability"},
	}, func(ctx context.Context, input *GetAvailabilityInput) (*GetAvailabilityOutput, error) {
		tenantID, err := tenantFrom(ctx)
		if err != nil {
			return nil, err
		}
		day, err := parseDate("date", input.Date)
		if err != nil {
			return nil, toHTTPError("get-availability", err)
		}

		slots, err := svc.ComputeSlots(ctx, tenantID, day)
		if err != nil {
			return nil, toHTTPError("get-availability", err)
		}

		out := make([]SlotDTO, 0, len(slots))
		for _, s := range slots {
			out = append(out, SlotDTO{Time: s.Time.String(), Available: s.Available})
		}
		return &GetAvailabilityOutput{Body: out}, nil
	})
}
