package v1

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/domain"
)

// ReservationDTO is the wire form of a reservation. Prices are decimal
// strings with two digits.
type ReservationDTO struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenantId"`
	ClientID    uuid.UUID         `json:"clientId"`
	Date        string            `json:"date" doc:"Calendar day, YYYY-MM-DD"`
	Time        string            `json:"time" doc:"Slot start, HH:MM"`
	Status      string            `json:"status"`
	Kind        string            `json:"kind" enum:"INDIVIDUAL,PACKAGE"`
	Services    []string          `json:"services"`
	Packages    map[string]string `json:"packages"`
	TotalPrice  string            `json:"totalPrice"`
	Notes       string            `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`

	// AccrualFailed is only set by a status change whose loyalty credit
	// must be reconciled by hand.
	AccrualFailed bool `json:"accrualFailed,omitempty"`
}

func reservationDTO(r *domain.Reservation) ReservationDTO {
	services := r.Services
	if services == nil {
		services = []string{}
	}
	packages := r.Packages
	if packages == nil {
		packages = map[string]string{}
	}
	return ReservationDTO{
		ID:          r.ID,
		TenantID:    r.TenantID,
		ClientID:    r.ClientID,
		Date:        r.Date.Format(time.DateOnly),
		Time:        r.Time.String(),
		Status:      string(r.Status),
		Kind:        string(r.Kind),
		Services:    services,
		Packages:    packages,
		TotalPrice:  r.TotalPrice.StringFixed(2),
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// parseClock parses an HH:MM field into a validation error on failure.
func parseClock(field, s string) (domain.Clock, error) {
	c, err := domain.ParseClock(s)
	if err != nil {
		return 0, domain.NewValidationError(field, "expected HH:MM, got %q", s)
	}
	return c, nil
}

func parseOptionalClock(field, s string) (*domain.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	c, err := parseClock(field, s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func parseDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, domain.NewValidationError(field, "required")
	}
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "expected YYYY-MM-DD, got %q", s)
	}
	return day, nil
}

func parseUUID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(field, "invalid id %q", s)
	}
	return id, nil
}

func clockString(c *domain.Clock) string {
	if c == nil {
		return ""
	}
	return c.String()
}
