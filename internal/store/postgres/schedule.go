package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/reservo/internal/domain"
)

type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// ---------------------------------------------------------------------------
// Working hours
// ---------------------------------------------------------------------------

const workingHoursColumns = `tenant_id, day_of_week, is_open, start_minute, end_minute, updated_at`

func scanWorkingHours(row pgx.Row) (*domain.WorkingHours, error) {
	var (
		wh         domain.WorkingHours
		day        int16
		start, end int16
	)
	if err := row.Scan(&wh.TenantID, &day, &wh.IsOpen, &start, &end, &wh.UpdatedAt); err != nil {
		return nil, err
	}
	wh.DayOfWeek = time.Weekday(day)
	wh.StartTime = domain.Clock(start)
	wh.EndTime = domain.Clock(end)
	return &wh, nil
}

func (r *ScheduleRepo) GetWorkingHours(ctx context.Context, tenantID uuid.UUID, day time.Weekday) (*domain.WorkingHours, error) {
	wh, err := getWorkingHours(ctx, r.pool, tenantID, day)
	if err != nil {
		return nil, wrapErr("scheduleRepo.GetWorkingHours", err)
	}
	return wh, nil
}

func getWorkingHours(ctx context.Context, q querier, tenantID uuid.UUID, day time.Weekday) (*domain.WorkingHours, error) {
	return scanWorkingHours(q.QueryRow(ctx,
		`SELECT `+workingHoursColumns+` FROM working_hours
		 WHERE tenant_id = $1 AND day_of_week = $2`,
		tenantID, int16(day),
	))
}

func (r *ScheduleRepo) ListWorkingHours(ctx context.Context, tenantID uuid.UUID) ([]*domain.WorkingHours, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+workingHoursColumns+` FROM working_hours
		 WHERE tenant_id = $1 ORDER BY day_of_week`,
		tenantID,
	)
	if err != nil {
		return nil, wrapErr("scheduleRepo.ListWorkingHours", err)
	}
	defer rows.Close()

	var out []*domain.WorkingHours
	for rows.Next() {
		wh, err := scanWorkingHours(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduleRepo.ListWorkingHours: scan: %w", err)
		}
		out = append(out, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("scheduleRepo.ListWorkingHours: rows", err)
	}
	return out, nil
}

func (r *ScheduleRepo) UpsertWorkingHours(ctx context.Context, wh *domain.WorkingHours) error {
	wh.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO working_hours (tenant_id, day_of_week, is_open, start_minute, end_minute, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id, day_of_week) DO UPDATE
		 SET is_open = EXCLUDED.is_open, start_minute = EXCLUDED.start_minute,
		     end_minute = EXCLUDED.end_minute, updated_at = EXCLUDED.updated_at`,
		wh.TenantID, int16(wh.DayOfWeek), wh.IsOpen, int16(wh.StartTime), int16(wh.EndTime), wh.UpdatedAt,
	)
	return wrapErr("scheduleRepo.UpsertWorkingHours", err)
}

// ---------------------------------------------------------------------------
// Blocked slots
// ---------------------------------------------------------------------------

const blockedSlotColumns = `id, tenant_id, date, all_day, slot_minute, reason, created_at`

func scanBlockedSlots(rows pgx.Rows, caller string) ([]*domain.BlockedSlot, error) {
	var out []*domain.BlockedSlot
	for rows.Next() {
		var (
			b      domain.BlockedSlot
			minute *int16
		)
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Date, &b.AllDay, &minute, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		b.Time = clockFromNullable(minute)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(caller+": rows", err)
	}
	return out, nil
}

func (r *ScheduleRepo) ListBlockedSlots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*domain.BlockedSlot, error) {
	return listBlockedSlots(ctx, r.pool, tenantID, from, to, "scheduleRepo.ListBlockedSlots")
}

func listBlockedSlots(ctx context.Context, q querier, tenantID uuid.UUID, from, to time.Time, caller string) ([]*domain.BlockedSlot, error) {
	rows, err := q.Query(ctx,
		`SELECT `+blockedSlotColumns+` FROM blocked_slots
		 WHERE tenant_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date, all_day DESC, slot_minute`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, wrapErr(caller, err)
	}
	defer rows.Close()
	return scanBlockedSlots(rows, caller)
}

func (r *ScheduleRepo) CreateBlockedSlot(ctx context.Context, b *domain.BlockedSlot) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO blocked_slots (`+blockedSlotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.TenantID, b.Date, b.AllDay, nullableMinute(b.Time, b.AllDay), b.Reason, b.CreatedAt,
	)
	return wrapErr("scheduleRepo.CreateBlockedSlot", err)
}

func (r *ScheduleRepo) DeleteBlockedSlot(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM blocked_slots WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return wrapErr("scheduleRepo.DeleteBlockedSlot", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheduleRepo.DeleteBlockedSlot: %w", domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Recurring blocks
// ---------------------------------------------------------------------------

const recurringBlockColumns = `id, tenant_id, type, day_of_week, day_of_month, all_day, start_minute, end_minute, reason, created_at`

func (r *ScheduleRepo) ListRecurringBlocks(ctx context.Context, tenantID uuid.UUID) ([]*domain.RecurringBlock, error) {
	return listRecurringBlocks(ctx, r.pool, tenantID, "scheduleRepo.ListRecurringBlocks")
}

func listRecurringBlocks(ctx context.Context, q querier, tenantID uuid.UUID, caller string) ([]*domain.RecurringBlock, error) {
	rows, err := q.Query(ctx,
		`SELECT `+recurringBlockColumns+` FROM recurring_blocks
		 WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, wrapErr(caller, err)
	}
	defer rows.Close()

	var out []*domain.RecurringBlock
	for rows.Next() {
		var (
			rb               domain.RecurringBlock
			typ              string
			dow, dom         *int16
			startMin, endMin *int16
		)
		if err := rows.Scan(&rb.ID, &rb.TenantID, &typ, &dow, &dom, &rb.AllDay, &startMin, &endMin, &rb.Reason, &rb.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		rb.Type = domain.RecurrenceType(typ)
		rb.DayOfWeek = intFromNullable(dow)
		rb.DayOfMonth = intFromNullable(dom)
		rb.StartTime = clockFromNullable(startMin)
		rb.EndTime = clockFromNullable(endMin)
		out = append(out, &rb)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(caller+": rows", err)
	}
	return out, nil
}

func (r *ScheduleRepo) CreateRecurringBlock(ctx context.Context, b *domain.RecurringBlock) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recurring_blocks (`+recurringBlockColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.TenantID, string(b.Type), nullableInt(b.DayOfWeek), nullableInt(b.DayOfMonth), b.AllDay,
		nullableMinute(b.StartTime, b.AllDay), nullableMinute(b.EndTime, b.AllDay), b.Reason, b.CreatedAt,
	)
	return wrapErr("scheduleRepo.CreateRecurringBlock", err)
}

func (r *ScheduleRepo) DeleteRecurringBlock(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM recurring_blocks WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return wrapErr("scheduleRepo.DeleteRecurringBlock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheduleRepo.DeleteRecurringBlock: %w", domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Day snapshot
// ---------------------------------------------------------------------------

// DaySnapshot reads working hours, blocks and active reservations inside one
// repeatable-read, read-only transaction.
func (r *ScheduleRepo) DaySnapshot(ctx context.Context, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, wrapErr("scheduleRepo.DaySnapshot: begin", err)
	}
	defer rollback(ctx, tx)

	snap, err := loadSnapshot(ctx, tx, tenantID, day)
	if err != nil {
		return nil, fmt.Errorf("scheduleRepo.DaySnapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("scheduleRepo.DaySnapshot: commit", err)
	}
	return snap, nil
}

func loadSnapshot(ctx context.Context, q querier, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error) {
	snap := &domain.DaySnapshot{TenantID: tenantID, Date: day}

	wh, err := getWorkingHours(ctx, q, tenantID, day.Weekday())
	switch {
	case err == nil:
		snap.WorkingHours = wh
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, wrapErr("working hours", err)
	}

	if snap.BlockedSlots, err = listBlockedSlots(ctx, q, tenantID, day, day, "blocked slots"); err != nil {
		return nil, err
	}
	if snap.RecurringBlocks, err = listRecurringBlocks(ctx, q, tenantID, "recurring blocks"); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = $1 AND date = $2 AND status IN ('pending', 'confirmed')
		 ORDER BY slot_minute`,
		tenantID, day,
	)
	if err != nil {
		return nil, wrapErr("reservations", err)
	}
	defer rows.Close()
	if snap.Reservations, err = scanReservations(rows, "reservations"); err != nil {
		return nil, err
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Nullable helpers
// ---------------------------------------------------------------------------

func clockFromNullable(v *int16) *domain.Clock {
	if v == nil {
		return nil
	}
	c := domain.Clock(*v)
	return &c
}

func intFromNullable(v *int16) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func nullableMinute(c *domain.Clock, allDay bool) *int16 {
	if c == nil || allDay {
		return nil
	}
	v := int16(*c)
	return &v
}

func nullableInt(v *int) *int16 {
	if v == nil {
		return nil
	}
	i := int16(*v)
	return &i
}
