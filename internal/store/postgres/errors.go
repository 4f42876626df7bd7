package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/reservo/internal/domain"
)

const (
	sqlStateUniqueViolation = "23505"
	sqlStateCheckViolation  = "23514"
	sqlStateFKViolation     = "23503"
)

// wrapErr maps driver errors onto domain sentinels and prefixes caller.
func wrapErr(caller string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateUniqueViolation:
			return fmt.Errorf("%s: %w: %s", caller, domain.ErrConflict, pgErr.ConstraintName)
		case pgErr.Code == sqlStateCheckViolation, pgErr.Code == sqlStateFKViolation:
			return fmt.Errorf("%s: %w", caller, &domain.ValidationError{Reason: pgErr.Message})
		case unavailableState(pgErr.Code):
			return fmt.Errorf("%s: %w: %w", caller, domain.ErrStoreUnavailable, err)
		default:
			return fmt.Errorf("%s: %w", caller, err)
		}
	}

	// Anything that never reached the server: dial failures, closed pool,
	// timeouts, cancelled contexts.
	return fmt.Errorf("%s: %w: %w", caller, domain.ErrStoreUnavailable, err)
}

// unavailableState reports SQLSTATE classes that mean "try again later":
// connection exceptions, insufficient resources, operator intervention and
// serialization failures.
func unavailableState(code string) bool {
	for _, prefix := range []string{"08", "53", "57", "40"} {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

// rollback is deferred after BeginTx. Rolling back a committed tx is a no-op.
func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(context.WithoutCancel(ctx))
}
