package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/reservo/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool         *pgxpool.Pool
	tenants      *TenantRepo
	schedule     *ScheduleRepo
	reservations *ReservationRepo
	loyalty      *LoyaltyRepo
	audit        *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:         pool,
		tenants:      NewTenantRepo(pool),
		schedule:     NewScheduleRepo(pool),
		reservations: NewReservationRepo(pool),
		loyalty:      NewLoyaltyRepo(pool),
		audit:        NewAuditRepo(pool),
	}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return wrapErr("postgres.Ping", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tenants() domain.TenantRepository           { return s.tenants }
func (s *Store) Schedule() domain.ScheduleRepository        { return s.schedule }
func (s *Store) Reservations() domain.ReservationRepository { return s.reservations }
func (s *Store) Loyalty() domain.LoyaltyRepository          { return s.loyalty }
func (s *Store) Audit() domain.AuditRepository              { return s.audit }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
