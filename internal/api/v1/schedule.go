package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
)

type WorkingHoursDTO struct {
	DayOfWeek int    `json:"dayOfWeek" doc:"0=Sunday through 6=Saturday"`
	IsOpen    bool   `json:"isOpen"`
	StartTime string `json:"startTime,omitempty" doc:"HH:MM"`
	EndTime   string `json:"endTime,omitempty" doc:"HH:MM"`
}

func workingHoursDTO(wh *domain.WorkingHours) WorkingHoursDTO {
	dto := WorkingHoursDTO{DayOfWeek: int(wh.DayOfWeek), IsOpen: wh.IsOpen}
	if wh.IsOpen {
		dto.StartTime = wh.StartTime.String()
		dto.EndTime = wh.EndTime.String()
	}
	return dto
}

type ListWorkingHoursOutput struct {
	Body []WorkingHoursDTO
}

type PutWorkingHoursInput struct {
	Day  int `path:"day" minimum:"0" maximum:"6" doc:"0=Sunday through 6=Saturday"`
	Body struct {
		IsOpen    bool   `json:"isOpen"`
		StartTime string `json:"startTime,omitempty" doc:"HH:MM"`
		EndTime   string `json:"endTime,omitempty" doc:"HH:MM"`
	}
}

type PutWorkingHoursOutput struct {
	Body WorkingHoursDTO
}

type BlockedSlotDTO struct {
	ID        uuid.UUID `json:"id"`
	Date      string    `json:"date"`
	AllDay    bool      `json:"allDay"`
	Time      string    `json:"time,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func blockedSlotDTO(b *domain.BlockedSlot) BlockedSlotDTO {
	return BlockedSlotDTO{
		ID:        b.ID,
		Date:      b.Date.Format(time.DateOnly),
		AllDay:    b.AllDay,
		Time:      clockString(b.Time),
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}

type ListBlockedSlotsInput struct {
	From string `query:"from" doc:"First day, YYYY-MM-DD"`
	To   string `query:"to" doc:"Last day, YYYY-MM-DD. Defaults to from."`
}

type ListBlockedSlotsOutput struct {
	Body []BlockedSlotDTO
}

type CreateBlockedSlotInput struct {
	Body struct {
		Date   string `json:"date,omitempty" doc:"YYYY-MM-DD"`
		AllDay bool   `json:"allDay,omitempty"`
		Time   string `json:"time,omitempty" doc:"HH:MM, required unless allDay"`
		Reason string `json:"reason,omitempty" maxLength:"500"`
	}
}

type CreateBlockedSlotOutput struct {
	Body BlockedSlotDTO
}

type DeleteScheduleItemInput struct {
	ID uuid.UUID `path:"id"`
}

type RecurringBlockDTO struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type" enum:"WEEKLY,MONTHLY"`
	DayOfWeek  *int      `json:"dayOfWeek,omitempty"`
	DayOfMonth *int      `json:"dayOfMonth,omitempty"`
	AllDay     bool      `json:"allDay"`
	StartTime  string    `json:"startTime,omitempty"`
	EndTime    string    `json:"endTime,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func recurringBlockDTO(b *domain.RecurringBlock) RecurringBlockDTO {
	return RecurringBlockDTO{
		ID:         b.ID,
		Type:       string(b.Type),
		DayOfWeek:  b.DayOfWeek,
		DayOfMonth: b.DayOfMonth,
		AllDay:     b.AllDay,
		StartTime:  clockString(b.StartTime),
		EndTime:    clockString(b.EndTime),
		Reason:     b.Reason,
		CreatedAt:  b.CreatedAt,
	}
}

type ListRecurringBlocksOutput struct {
	Body []RecurringBlockDTO
}

type CreateRecurringBlockInput struct {
	Body struct {
		Type       string `json:"type,omitempty" doc:"WEEKLY or MONTHLY"`
		DayOfWeek  *int   `json:"dayOfWeek,omitempty" doc:"0=Sunday, weekly blocks only"`
		DayOfMonth *int   `json:"dayOfMonth,omitempty" doc:"1-31, monthly blocks only"`
		AllDay     bool   `json:"allDay,omitempty"`
		StartTime  string `json:"startTime,omitempty" doc:"HH:MM"`
		EndTime    string `json:"endTime,omitempty" doc:"HH:MM, exclusive"`
		Reason     string `json:"reason,omitempty" maxLength:"500"`
	}
}

type CreateRecurringBlockOutput struct {
	Body RecurringBlockDTO
}

// RegisterScheduleRoutes exposes working hours and closures to staff. Every
// write publishes a schedule change so open availability views refresh.
func RegisterScheduleRoutes(api huma.API, schedule domain.ScheduleRepository, events EventPublisher) {
	changed := func(ctx context.Context, tenantID uuid.UUID, day time.Time) {
		events.Publish(ctx, booking.SlotEvent{Type: booking.EventScheduleChanged, TenantID: tenantID, Date: day})
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-working-hours",
		Method:      http.MethodGet,
		Path:        "/schedule/working-hours",
		Summary:     "List the weekly opening hours",
		Tags:        []string{"Schedule"},
	}, func(ctx context.Context, _ *struct{}) (*ListWorkingHoursOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		list, err := schedule.ListWorkingHours(ctx, tenantID)
		if err != nil {
			return nil, toHTTPError("list-working-hours", err)
		}
		out := make([]WorkingHoursDTO, 0, len(list))
		for _, wh := range list {
			out = append(out, workingHoursDTO(wh))
		}
		return &ListWorkingHoursOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-working-hours",
		Method:      http.MethodPut,
		Path:        "/schedule/working-hours/{day}",
		Summary:     "Set the opening hours of a weekday",
		Tags:        []string{"Schedule"},
	}, func(ctx context.Context, input *PutWorkingHoursInput) (*PutWorkingHoursOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}

		wh := &domain.WorkingHours{
			TenantID:  tenantID,
			DayOfWeek: time.Weekday(input.Day),
			IsOpen:    input.Body.IsOpen,
		}
		if wh.IsOpen {
			if wh.StartTime, err = parseClock("startTime", input.Body.StartTime); err != nil {
				return nil, toHTTPError("put-working-hours", err)
			}
			if wh.EndTime, err = parseClock("endTime", input.Body.EndTime); err != nil {
				return nil, toHTTPError("put-working-hours", err)
			}
		}
		if err := wh.Validate(); err != nil {
			return nil, toHTTPError("put-working-hours", err)
		}

		if err := schedule.UpsertWorkingHours(ctx, wh); err != nil {
			return nil, toHTTPError("put-working-hours", err)
		}
		changed(ctx, tenantID, time.Time{})
		return &PutWorkingHoursOutput{Body: workingHoursDTO(wh)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-blocked-slots",
		Method:      http.MethodGet,
		Path:        "/schedule/blocked-slots",
		Summary:     "List one-off closures in a date range",
		Tags:        []string{"Schedule"},
	}, func(ctx context.Context, input *ListBlockedSlotsInput) (*ListBlockedSlotsOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		from, err := parseDate("from", input.From)
		if err != nil {
			return nil, toHTTPError("list-blocked-slots", err)
		}
		to := from
		if input.To != "" {
			if to, err = parseDate("to", input.To); err != nil {
				return nil, toHTTPError("list-blocked-slots", err)
			}
		}
		if to.Before(from) {
			return nil, toHTTPError("list-blocked-slots", domain.NewValidationError("to", "must not be before from"))
		}

		list, err := schedule.ListBlockedSlots(ctx, tenantID, from, to)
		if err != nil {
			return nil, toHTTPError("list-blocked-slots", err)
		}
		out := make([]BlockedSlotDTO, 0, len(list))
		for _, b := range list {
			out = append(out, blockedSlotDTO(b))
		}
		return &ListBlockedSlotsOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-blocked-slot",
		Method:        http.MethodPost,
		Path:          "/schedule/blocked-slots",
		Summary:       "Close a whole day or a single slot",
		Tags:          []string{"Schedule"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBlockedSlotInput) (*CreateBlockedSlotOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		day, err := parseDate("date", input.Body.Date)
		if err != nil {
			return nil, toHTTPError("create-blocked-slot", err)
		}
		b := &domain.BlockedSlot{
			ID:       uuid.New(),
			TenantID: tenantID,
			Date:     day,
			AllDay:   input.Body.AllDay,
			Reason:   input.Body.Reason,
		}
		if !b.AllDay {
			if b.Time, err = parseOptionalClock("time", input.Body.Time); err != nil {
				return nil, toHTTPError("create-blocked-slot", err)
			}
		}
		if err := b.Validate(); err != nil {
			return nil, toHTTPError("create-blocked-slot", err)
		}

		if err := schedule.CreateBlockedSlot(ctx, b); err != nil {
			return nil, toHTTPError("create-blocked-slot", err)
		}
		changed(ctx, tenantID, b.Date)
		return &CreateBlockedSlotOutput{Body: blockedSlotDTO(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-blocked-slot",
		Method:        http.MethodDelete,
		Path:          "/schedule/blocked-slots/{id}",
		Summary:       "Reopen a blocked slot or day",
		Tags:          []string{"Schedule"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteScheduleItemInput) (*struct{}, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		if err := schedule.DeleteBlockedSlot(ctx, tenantID, input.ID); err != nil {
			return nil, toHTTPError("delete-blocked-slot", err)
		}
		changed(ctx, tenantID, time.Time{})
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-recurring-blocks",
		Method:      http.MethodGet,
		Path:        "/schedule/recurring-blocks",
		Summary:     "List weekly and monthly closures",
		Tags:        []string{"Schedule"},
	}, func(ctx context.Context, _ *struct{}) (*ListRecurringBlocksOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		list, err := schedule.ListRecurringBlocks(ctx, tenantID)
		if err != nil {
			return nil, toHTTPError("list-recurring-blocks", err)
		}
		out := make([]RecurringBlockDTO, 0, len(list))
		for _, b := range list {
			out = append(out, recurringBlockDTO(b))
		}
		return &ListRecurringBlocksOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-recurring-block",
		Method:        http.MethodPost,
		Path:          "/schedule/recurring-blocks",
		Summary:       "Add a weekly or monthly closure",
		Tags:          []string{"Schedule"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateRecurringBlockInput) (*CreateRecurringBlockOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		b := &domain.RecurringBlock{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Type:       domain.RecurrenceType(strings.ToUpper(strings.TrimSpace(input.Body.Type))),
			DayOfWeek:  input.Body.DayOfWeek,
			DayOfMonth: input.Body.DayOfMonth,
			AllDay:     input.Body.AllDay,
			Reason:     input.Body.Reason,
		}
		if !b.AllDay {
			if b.StartTime, err = parseOptionalClock("startTime", input.Body.StartTime); err != nil {
				return nil, toHTTPError("create-recurring-block", err)
			}
			if b.EndTime, err = parseOptionalClock("endTime", input.Body.EndTime); err != nil {
				return nil, toHTTPError("create-recurring-block", err)
			}
		}
		if err := b.Validate(); err != nil {
			return nil, toHTTPError("create-recurring-block", err)
		}

		if err := schedule.CreateRecurringBlock(ctx, b); err != nil {
			return nil, toHTTPError("create-recurring-block", err)
		}
		changed(ctx, tenantID, time.Time{})
		return &CreateRecurringBlockOutput{Body: recurringBlockDTO(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-recurring-block",
		Method:        http.MethodDelete,
		Path:          "/schedule/recurring-blocks/{id}",
		Summary:       "Remove a recurring closure",
		Tags:          []string{"Schedule"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteScheduleItemInput) (*struct{}, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		if err := schedule.DeleteRecurringBlock(ctx, tenantID, input.ID); err != nil {
			return nil, toHTTPError("delete-recurring-block", err)
		}
		changed(ctx, tenantID, time.Time{})
		return nil, nil
	})
}
