package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/auth"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/server/middleware"
)

// toHTTPError maps domain errors onto API statuses. Unknown errors are
// logged and reported as 500 without leaking details.
func toHTTPError(op string, err error) error {
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &invalid):
		return huma.Error400BadRequest(invalid.Error())
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest("invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized(denialReason(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(denialReason(err, domain.ErrForbidden))
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrSlotTaken):
		return huma.Error409Conflict("slot already taken")
	case errors.Is(err, domain.ErrInvalidTransition):
		return huma.Error409Conflict("status change not allowed")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("already exists")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Str("op", op).Msg("store unavailable")
		return huma.Error503ServiceUnavailable("service temporarily unavailable")
	default:
		log.Error().Err(err).Str("op", op).Msg("unexpected error")
		return huma.Error500InternalServerError("internal error")
	}
}

// deny wraps an access sentinel with the reason shown to the caller.
func deny(sentinel error, reason string) error {
	return fmt.Errorf("%w: %s", sentinel, reason)
}

func denialReason(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func tenantFrom(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := middleware.TenantIDFromContext(ctx)
	if !ok {
		return uuid.Nil, toHTTPError("tenant", deny(domain.ErrForbidden, "missing tenant context"))
	}
	return tenantID, nil
}

// staffTenant returns the tenant of a staff or admin caller. A caller with
// no role at all is unauthenticated.
func staffTenant(ctx context.Context) (uuid.UUID, error) {
	tenantID, err := tenantFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	role, ok := middleware.RoleFromContext(ctx)
	switch {
	case !ok || role == "":
		return uuid.Nil, toHTTPError("staff", deny(domain.ErrUnauthorized, "authentication required"))
	case role != auth.RoleStaff && role != auth.RoleAdmin:
		return uuid.Nil, toHTTPError("staff", deny(domain.ErrForbidden, "staff role required"))
	}
	return tenantID, nil
}

func actorFrom(ctx context.Context) booking.Actor {
	actor := booking.Actor{Type: domain.ActorStaff}
	if role, ok := middleware.RoleFromContext(ctx); ok && role == auth.RoleClient {
		actor.Type = domain.ActorClient
	}
	if uid, ok := middleware.UserIDFromContext(ctx); ok {
		actor.ID = uid.String()
	}
	return actor
}
