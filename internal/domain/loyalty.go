package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Discount is a reward unlocked by crossing a loyalty threshold.
type Discount struct {
	Kind   ServiceKind     `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// LoyaltyProfile is created lazily on a client's first completed reservation.
type LoyaltyProfile struct {
	TenantID                uuid.UUID
	ClientID                uuid.UUID
	IndividualServicesCount int
	PackagesCount           int
	TotalSpent              decimal.Decimal
	AvailableDiscounts      []Discount
	LastVisit               *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Count returns the counter matching kind.
func (p *LoyaltyProfile) Count(kind ServiceKind) int {
	if kind == ServiceKindPackage {
		return p.PackagesCount
	}
	return p.IndividualServicesCount
}

const (
	LoyaltyServiceCompleted = "SERVICE_COMPLETED"
	LoyaltyPackageCompleted = "PACKAGE_COMPLETED"
)

// LoyaltyEntry is the append-only record of one accrual.
type LoyaltyEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ClientID      uuid.UUID
	ReservationID uuid.UUID
	Action        string
	Kind          ServiceKind
	Amount        decimal.Decimal
	Unlocked      int
	Description   string
	CreatedAt     time.Time
}

// AccrueFunc mutates a locked profile in place.
type AccrueFunc func(p *LoyaltyProfile) error

type LoyaltyRepository interface {
	Get(ctx context.Context, tenantID, clientID uuid.UUID) (*LoyaltyProfile, error)
	// Accrue records entry and applies fn to the client's profile, creating it
	// if needed, inside one transaction holding the profile row lock. A second
	// entry for the same reservation returns ErrAlreadyAccrued and changes nothing.
	Accrue(ctx context.Context, entry *LoyaltyEntry, fn AccrueFunc) (*LoyaltyProfile, error)
	// ConsumeDiscount removes the oldest discount of kind and resets the
	// matching counter to zero.
	ConsumeDiscount(ctx context.Context, tenantID, clientID uuid.UUID, kind ServiceKind) (*Discount, error)
	ListHistory(ctx context.Context, tenantID, clientID uuid.UUID) ([]*LoyaltyEntry, error)
}
