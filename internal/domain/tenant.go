package domain

import (
	"context"
	"time"
	_ "time/tzdata" // tenant zones must resolve on minimal images

	"github.com/google/uuid"
)

// DefaultTimezone is used when a tenant has no usable timezone configured.
const DefaultTimezone = "Europe/Paris"

type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location resolves the tenant's timezone, falling back to DefaultTimezone
// and finally UTC.
func (t *Tenant) Location() *time.Location {
	for _, name := range []string{t.Timezone, DefaultTimezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
}
