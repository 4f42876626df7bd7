package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/reservo/internal/domain"
)

const activeSlotConstraint = "reservations_active_slot_uq"

const reservationColumns = `id, tenant_id, client_id, date, slot_minute, status, kind, services, packages,
	total_price, notes, created_at, updated_at, completed_at`

type ReservationRepo struct {
	pool *pgxpool.Pool
}

func NewReservationRepo(pool *pgxpool.Pool) *ReservationRepo {
	return &ReservationRepo{pool: pool}
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		r                  domain.Reservation
		minute             int16
		status, kind       string
		services, packages []byte
	)
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.ClientID, &r.Date, &minute, &status, &kind, &services, &packages,
		&r.TotalPrice, &r.Notes, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
	); err != nil {
		return nil, err
	}
	r.Time = domain.Clock(minute)
	r.Status = domain.ReservationStatus(status)
	r.Kind = domain.ServiceKind(kind)
	if err := json.Unmarshal(services, &r.Services); err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}
	if err := json.Unmarshal(packages, &r.Packages); err != nil {
		return nil, fmt.Errorf("unmarshal packages: %w", err)
	}
	return &r, nil
}

func scanReservations(rows pgx.Rows, caller string) ([]*domain.Reservation, error) {
	var out []*domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(caller+": rows", err)
	}
	return out, nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if err != nil {
		return nil, wrapErr("reservationRepo.GetByID", err)
	}
	return res, nil
}

func (r *ReservationRepo) ListByDate(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*domain.Reservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = $1 AND date = $2
		 ORDER BY slot_minute, created_at`,
		tenantID, day,
	)
	if err != nil {
		return nil, wrapErr("reservationRepo.ListByDate", err)
	}
	defer rows.Close()
	return scanReservations(rows, "reservationRepo.ListByDate")
}

// slotLockKey names the advisory lock serializing writers of one slot.
func slotLockKey(tenantID uuid.UUID, day time.Time, at domain.Clock) string {
	return fmt.Sprintf("reservo:slot:%s:%s:%d", tenantID, day.Format(time.DateOnly), int(at))
}

// Book takes a transaction-scoped advisory lock on the slot, runs check
// against a fresh snapshot and inserts. The partial unique index
// reservations_active_slot_uq backs the lock: a violation is a conflict.
func (r *ReservationRepo) Book(ctx context.Context, res *domain.Reservation, check domain.SlotCheck) error {
	services, err := json.Marshal(nonNilSlice(res.Services))
	if err != nil {
		return fmt.Errorf("reservationRepo.Book: marshal services: %w", err)
	}
	packages, err := json.Marshal(nonNilMap(res.Packages))
	if err != nil {
		return fmt.Errorf("reservationRepo.Book: marshal packages: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrapErr("reservationRepo.Book: begin", err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		slotLockKey(res.TenantID, res.Date, res.Time)); err != nil {
		return wrapErr("reservationRepo.Book: lock", err)
	}

	if check != nil {
		snap, err := loadSnapshot(ctx, tx, res.TenantID, res.Date)
		if err != nil {
			return fmt.Errorf("reservationRepo.Book: snapshot: %w", err)
		}
		if err := check(snap); err != nil {
			return err
		}
	}

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now()
	res.CreatedAt, res.UpdatedAt = now, now

	_, err = tx.Exec(ctx,
		`INSERT INTO reservations (id, tenant_id, client_id, date, slot_minute, status, kind, services, packages,
		                           total_price, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		res.ID, res.TenantID, res.ClientID, res.Date, int16(res.Time), string(res.Status), string(res.Kind),
		services, packages, res.TotalPrice, res.Notes, res.CreatedAt, res.UpdatedAt,
	)
	if isUniqueViolation(err, activeSlotConstraint) {
		return &domain.SlotConflictError{TenantID: res.TenantID, Date: res.Date, Time: res.Time}
	}
	if err != nil {
		return wrapErr("reservationRepo.Book: insert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr("reservationRepo.Book: commit", err)
	}
	return nil
}

// Transition is a single conditional UPDATE, so concurrent callers racing on
// the same reservation see exactly one winner.
func (r *ReservationRepo) Transition(ctx context.Context, tenantID, id uuid.UUID, from []domain.ReservationStatus, to domain.ReservationStatus) (*domain.Reservation, error) {
	sources := make([]string, 0, len(from))
	for _, s := range from {
		sources = append(sources, string(s))
	}

	res, err := scanReservation(r.pool.QueryRow(ctx,
		`UPDATE reservations
		 SET status = $4::text,
		     updated_at = now(),
		     completed_at = CASE WHEN $4::text = 'completed' THEN now() ELSE completed_at END
		 WHERE tenant_id = $1 AND id = $2 AND status = ANY($3)
		 RETURNING `+reservationColumns,
		tenantID, id, sources, string(to),
	))
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err, activeSlotConstraint) {
			return nil, fmt.Errorf("reservationRepo.Transition: %w", domain.ErrSlotTaken)
		}
		return nil, wrapErr("reservationRepo.Transition", err)
	}

	// Nothing updated: either the reservation is missing or its status does
	// not allow the move.
	var current string
	err = r.pool.QueryRow(ctx,
		`SELECT status FROM reservations WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&current)
	if err != nil {
		return nil, wrapErr("reservationRepo.Transition", err)
	}
	return nil, fmt.Errorf("reservationRepo.Transition: %s -> %s: %w", current, to, domain.ErrInvalidTransition)
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
