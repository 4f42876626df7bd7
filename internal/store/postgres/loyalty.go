package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/reservo/internal/domain"
)

const loyaltyHistoryConstraint = "loyalty_history_reservation_uq"

const profileColumns = `tenant_id, client_id, individual_services_count, packages_count, total_spent,
	available_discounts, last_visit, created_at, updated_at`

type LoyaltyRepo struct {
	pool *pgxpool.Pool
}

func NewLoyaltyRepo(pool *pgxpool.Pool) *LoyaltyRepo {
	return &LoyaltyRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*domain.LoyaltyProfile, error) {
	var (
		p         domain.LoyaltyProfile
		discounts []byte
	)
	if err := row.Scan(
		&p.TenantID, &p.ClientID, &p.IndividualServicesCount, &p.PackagesCount, &p.TotalSpent,
		&discounts, &p.LastVisit, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(discounts, &p.AvailableDiscounts); err != nil {
		return nil, fmt.Errorf("unmarshal discounts: %w", err)
	}
	return &p, nil
}

func (r *LoyaltyRepo) Get(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.LoyaltyProfile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM loyalty_profiles WHERE tenant_id = $1 AND client_id = $2`,
		tenantID, clientID,
	))
	if err != nil {
		return nil, wrapErr("loyaltyRepo.Get", err)
	}
	return p, nil
}

// Accrue runs in one transaction: the profile row is created if missing and
// locked, fn mutates it, then the history row and the profile are written.
// The unique constraint on loyalty_history.reservation_id guarantees a
// reservation is credited at most once even across replicas.
func (r *LoyaltyRepo) Accrue(ctx context.Context, entry *domain.LoyaltyEntry, fn domain.AccrueFunc) (*domain.LoyaltyProfile, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: begin", err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO loyalty_profiles (tenant_id, client_id) VALUES ($1, $2)
		 ON CONFLICT (tenant_id, client_id) DO NOTHING`,
		entry.TenantID, entry.ClientID,
	); err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: ensure profile", err)
	}

	p, err := scanProfile(tx.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM loyalty_profiles
		 WHERE tenant_id = $1 AND client_id = $2 FOR UPDATE`,
		entry.TenantID, entry.ClientID,
	))
	if err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: lock profile", err)
	}

	var seen bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM loyalty_history WHERE reservation_id = $1)`,
		entry.ReservationID,
	).Scan(&seen); err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: history", err)
	}
	if seen {
		return nil, domain.ErrAlreadyAccrued
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	p.UpdatedAt = now

	_, err = tx.Exec(ctx,
		`INSERT INTO loyalty_history (id, tenant_id, client_id, reservation_id, action, kind, amount,
		                              unlocked, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.TenantID, entry.ClientID, entry.ReservationID, entry.Action, string(entry.Kind),
		entry.Amount, entry.Unlocked, entry.Description, entry.CreatedAt,
	)
	if isUniqueViolation(err, loyaltyHistoryConstraint) {
		return nil, domain.ErrAlreadyAccrued
	}
	if err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: insert history", err)
	}

	if err := updateProfile(ctx, tx, p); err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: update profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("loyaltyRepo.Accrue: commit", err)
	}
	return p, nil
}

func (r *LoyaltyRepo) ConsumeDiscount(ctx context.Context, tenantID, clientID uuid.UUID, kind domain.ServiceKind) (*domain.Discount, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapErr("loyaltyRepo.ConsumeDiscount: begin", err)
	}
	defer rollback(ctx, tx)

	p, err := scanProfile(tx.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM loyalty_profiles
		 WHERE tenant_id = $1 AND client_id = $2 FOR UPDATE`,
		tenantID, clientID,
	))
	if err != nil {
		return nil, wrapErr("loyaltyRepo.ConsumeDiscount", err)
	}

	idx := slices.IndexFunc(p.AvailableDiscounts, func(d domain.Discount) bool { return d.Kind == kind })
	if idx < 0 {
		return nil, fmt.Errorf("loyaltyRepo.ConsumeDiscount: no %s discount: %w", kind, domain.ErrNotFound)
	}
	d := p.AvailableDiscounts[idx]
	p.AvailableDiscounts = slices.Delete(p.AvailableDiscounts, idx, idx+1)
	if kind == domain.ServiceKindPackage {
		p.PackagesCount = 0
	} else {
		p.IndividualServicesCount = 0
	}
	p.UpdatedAt = time.Now()

	if err := updateProfile(ctx, tx, p); err != nil {
		return nil, wrapErr("loyaltyRepo.ConsumeDiscount: update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("loyaltyRepo.ConsumeDiscount: commit", err)
	}
	return &d, nil
}

func (r *LoyaltyRepo) ListHistory(ctx context.Context, tenantID, clientID uuid.UUID) ([]*domain.LoyaltyEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, client_id, reservation_id, action, kind, amount, unlocked, description, created_at
		 FROM loyalty_history WHERE tenant_id = $1 AND client_id = $2
		 ORDER BY created_at`,
		tenantID, clientID,
	)
	if err != nil {
		return nil, wrapErr("loyaltyRepo.ListHistory", err)
	}
	defer rows.Close()

	var out []*domain.LoyaltyEntry
	for rows.Next() {
		var (
			e    domain.LoyaltyEntry
			kind string
		)
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.ClientID, &e.ReservationID, &e.Action, &kind,
			&e.Amount, &e.Unlocked, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("loyaltyRepo.ListHistory: scan: %w", err)
		}
		e.Kind = domain.ServiceKind(kind)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("loyaltyRepo.ListHistory: rows", err)
	}
	return out, nil
}

func updateProfile(ctx context.Context, tx pgx.Tx, p *domain.LoyaltyProfile) error {
	discounts := p.AvailableDiscounts
	if discounts == nil {
		discounts = []domain.Discount{}
	}
	raw, err := json.Marshal(discounts)
	if err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE loyalty_profiles
		 SET individual_services_count = $3, packages_count = $4, total_spent = $5,
		     available_discounts = $6, last_visit = $7, updated_at = $8
		 WHERE tenant_id = $1 AND client_id = $2`,
		p.TenantID, p.ClientID, p.IndividualServicesCount, p.PackagesCount, p.TotalSpent,
		raw, p.LastVisit, p.UpdatedAt,
	)
	return err
}
