package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ActorStaff  = "staff"
	ActorClient = "client"
	ActorSystem = "system"

	ResourceReservation = "reservation"
	ResourceLoyalty     = "loyalty_profile"
	ResourceSchedule    = "schedule"
)

type AuditEntry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorType  string // "staff", "client", "system"
	ActorID    string
	Action     string
	Resource   string // "reservation", "loyalty_profile", "schedule"
	ResourceID uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByResource(ctx context.Context, tenantID uuid.UUID, resource string, resourceID uuid.UUID) ([]*AuditEntry, error)
}
