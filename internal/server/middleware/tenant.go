package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/domain"
)

// TenantHeader carries the tenant slug on anonymous requests. Browsers
// cannot set headers on a websocket upgrade, so the tenant query parameter
// is accepted as well.
const (
	TenantHeader = "X-Tenant"
	TenantQuery  = "tenant"
)

// TenantResolver maps a public slug to its tenant.
type TenantResolver interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid, ok := TenantIDFromContext(r.Context())
			if !ok || tid == uuid.Nil {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid tenant required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveTenant fills the tenant from the X-Tenant header when the request
// carries no token. An authenticated request naming another tenant in the
// header is refused.
func ResolveTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(r.Header.Get(TenantHeader))
			if slug == "" {
				slug = strings.TrimSpace(r.URL.Query().Get(TenantQuery))
			}
			if slug == "" {
				next.ServeHTTP(w, r)
				return
			}

			t, err := resolver.GetBySlug(r.Context(), slug)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, `{"title":"Not Found","status":404,"detail":"unknown tenant"}`, http.StatusNotFound)
				return
			case err != nil:
				log.Error().Err(err).Str("slug", slug).Msg("middleware.ResolveTenant: lookup failed")
				http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"tenant lookup failed"}`, http.StatusServiceUnavailable)
				return
			}

			if tid, ok := TenantIDFromContext(r.Context()); ok {
				if tid != t.ID {
					http.Error(w, `{"title":"Forbidden","status":403,"detail":"tenant mismatch"}`, http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTenantID, t.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
