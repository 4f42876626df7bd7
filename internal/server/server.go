package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/reservo/internal/api/v1"
	"github.com/gosuda/reservo/internal/api/ws"
	"github.com/gosuda/reservo/internal/config"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/server/middleware"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP routes.
type Deps struct {
	Tenants      middleware.TenantResolver
	Availability v1.AvailabilityService
	Bookings     v1.BookingService
	Reservations v1.ReservationService
	Reader       v1.ReservationReader
	Schedule     domain.ScheduleRepository
	Loyalty      domain.LoyaltyRepository
	Events       v1.EventPublisher
	// Subscriber feeds /ws/availability; nil disables the route.
	Subscriber ws.Subscriber
	// Ready is checked by /readyz, keyed by component name.
	Ready map[string]Pinger
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TenantHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	rps, burst := cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Public booking routes, tenant from token or X-Tenant.
	// 2. Staff routes, authenticated and role-checked.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT.Secret))
			r.Use(middleware.ResolveTenant(deps.Tenants))
			r.Use(middleware.RequireTenant())
			r.Use(middleware.RateLimitByIP(ctx, rps, burst))

			publicConfig := huma.DefaultConfig("Reservo Booking API", "1.0.0")
			publicConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			publicAPI := humachi.New(r, publicConfig)
			registerPublicRoutes(publicAPI, deps)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.ResolveTenant(deps.Tenants))
			r.Use(middleware.RequireTenant())
			r.Use(middleware.RequireStaff())
			r.Use(middleware.RateLimit(ctx, rps, burst))

			staffConfig := huma.DefaultConfig("Reservo Staff API", "1.0.0")
			staffConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			staffConfig.OpenAPIPath = "/staff/openapi"
			staffConfig.DocsPath = "/staff/docs"
			staffConfig.SchemasPath = "/staff/schemas"
			staffAPI := humachi.New(r, staffConfig)
			registerStaffRoutes(staffAPI, deps)
		})
	})

	if deps.Subscriber != nil {
		router.Route("/ws", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT.Secret))
			r.Use(middleware.ResolveTenant(deps.Tenants))
			r.Use(middleware.RequireTenant())
			registerWSRoutes(r, ws.NewHub(deps.Subscriber))
		})
	}

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Get("/readyz", readyHandler(deps.Ready))
	router.Handle("/metrics", promhttp.Handler())

	return s
}

// readyHandler pings every dependency and reports 503 when any is down.
func readyHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("component", name).Msg("server.readyz: ping failed")
				report[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
