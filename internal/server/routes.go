package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/reservo/internal/api/v1"
	"github.com/gosuda/reservo/internal/api/ws"
)

func registerPublicRoutes(api huma.API, deps Deps) {
	v1.RegisterAvailabilityRoutes(api, deps.Availability)
	v1.RegisterBookingRoutes(api, deps.Bookings)
}

func registerStaffRoutes(api huma.API, deps Deps) {
	v1.RegisterReservationRoutes(api, deps.Reader, deps.Reservations)
	v1.RegisterScheduleRoutes(api, deps.Schedule, deps.Events)
	v1.RegisterLoyaltyRoutes(api, deps.Loyalty)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/availability", hub.ServeAvailability)
}
