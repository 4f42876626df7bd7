// Package loyalty turns completed reservations into loyalty counters and
// threshold discounts.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/metrics"
)

// Rules holds the tenant-wide thresholds and discount amounts.
type Rules struct {
	IndividualThreshold int
	PackageThreshold    int
	IndividualAmount    decimal.Decimal
	PackageAmount       decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		IndividualThreshold: 5,
		PackageThreshold:    3,
		IndividualAmount:    decimal.NewFromInt(20),
		PackageAmount:       decimal.NewFromInt(40),
	}
}

func (r Rules) threshold(kind domain.ServiceKind) (int, decimal.Decimal) {
	if kind == domain.ServiceKindPackage {
		return r.PackageThreshold, r.PackageAmount
	}
	return r.IndividualThreshold, r.IndividualAmount
}

// Validate rejects thresholds that would divide by zero or negative rewards.
func (r Rules) Validate() error {
	if r.IndividualThreshold < 1 || r.PackageThreshold < 1 {
		return errors.New("loyalty.Rules: thresholds must be positive")
	}
	if r.IndividualAmount.IsNegative() || r.PackageAmount.IsNegative() {
		return errors.New("loyalty.Rules: discount amounts must not be negative")
	}
	return nil
}

// Unlocked returns how many thresholds of size n are crossed going from old
// to updated. It counts every multiple of n in (old, updated].
func Unlocked(old, updated, n int) int {
	if n <= 0 || updated <= old {
		return 0
	}
	return updated/n - old/n
}

// Apply folds one completed reservation into p and returns the number of
// discounts it unlocked. Counters only grow; LastVisit moves to the
// reservation's day only when that day is later.
func Apply(p *domain.LoyaltyProfile, r *domain.Reservation, rules Rules) int {
	kind := KindOf(r)
	old := p.Count(kind)
	updated := old + 1
	if kind == domain.ServiceKindPackage {
		p.PackagesCount = updated
	} else {
		p.IndividualServicesCount = updated
	}

	p.TotalSpent = p.TotalSpent.Add(r.TotalPrice)
	if p.LastVisit == nil || r.Date.After(*p.LastVisit) {
		visit := r.Date
		p.LastVisit = &visit
	}

	n, amount := rules.threshold(kind)
	unlocked := Unlocked(old, updated, n)
	for range unlocked {
		p.AvailableDiscounts = append(p.AvailableDiscounts, domain.Discount{
			Kind:   kind,
			Amount: amount,
			Reason: reason(kind, n),
		})
	}
	return unlocked
}

// KindOf returns the stored classification, deriving it when absent.
func KindOf(r *domain.Reservation) domain.ServiceKind {
	if r.Kind != "" {
		return r.Kind
	}
	return domain.ClassifyReservation(r.Services, r.Packages)
}

func reason(kind domain.ServiceKind, n int) string {
	if kind == domain.ServiceKindPackage {
		return fmt.Sprintf("%d packages completed", n)
	}
	return fmt.Sprintf("%d individual services completed", n)
}

// Store is the transactional persistence the engine needs.
type Store interface {
	Accrue(ctx context.Context, entry *domain.LoyaltyEntry, fn domain.AccrueFunc) (*domain.LoyaltyProfile, error)
}

// Engine is safe for concurrent use; per-client serialization is the
// store's row lock.
type Engine struct {
	store Store
	rules Rules
}

func NewEngine(store Store, rules Rules) *Engine {
	return &Engine{store: store, rules: rules}
}

// OnReservationCompleted accrues a completed reservation. Failures come back
// as *domain.AccrualError; a reservation that was already counted returns
// domain.ErrAlreadyAccrued and leaves the profile untouched.
func (e *Engine) OnReservationCompleted(ctx context.Context, r *domain.Reservation) error {
	if r.Status != domain.ReservationCompleted {
		return e.fail(r, fmt.Errorf("reservation is %s, not completed", r.Status))
	}

	kind := KindOf(r)
	action := domain.LoyaltyServiceCompleted
	if kind == domain.ServiceKindPackage {
		action = domain.LoyaltyPackageCompleted
	}
	entry := &domain.LoyaltyEntry{
		ID:            uuid.New(),
		TenantID:      r.TenantID,
		ClientID:      r.ClientID,
		ReservationID: r.ID,
		Action:        action,
		Kind:          kind,
		Amount:        r.TotalPrice,
		Description:   describe(r, kind),
	}
	_, err := e.store.Accrue(ctx, entry, func(p *domain.LoyaltyProfile) error {
		entry.Unlocked = Apply(p, r, e.rules)
		return nil
	})
	switch {
	case err == nil:
		metrics.IncAccrual(metrics.AccrualApplied)
		metrics.AddDiscountsUnlocked(string(kind), entry.Unlocked)
		return nil
	case errors.Is(err, domain.ErrAlreadyAccrued):
		metrics.IncAccrual(metrics.AccrualDuplicate)
		return fmt.Errorf("loyalty.Engine.OnReservationCompleted: %w", err)
	default:
		return e.fail(r, err)
	}
}

func (e *Engine) fail(r *domain.Reservation, err error) error {
	metrics.IncAccrual(metrics.AccrualFailed)
	return &domain.AccrualError{
		TenantID:      r.TenantID,
		ClientID:      r.ClientID,
		ReservationID: r.ID,
		Err:           err,
	}
}

func describe(r *domain.Reservation, kind domain.ServiceKind) string {
	if kind == domain.ServiceKindPackage && len(r.Packages) > 0 {
		return "Package completed (" + strings.Join(slices.Sorted(maps.Keys(r.Packages)), ", ") + ")"
	}
	if len(r.Services) > 0 {
		return "Service completed (" + strings.Join(r.Services, ", ") + ")"
	}
	return "Service completed"
}
