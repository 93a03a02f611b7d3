/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/promoters/*      Roster management, dashboards, history
  /api/bookings/*       Table request lifecycle
  /api/reports/*        Attribution report
  /api/payments/*       Commission payouts
  /api/signups/*        Promoter-proposed signups
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Promoter routes
		r.Route("/promoters", func(r chi.Router) {
			r.Get("/", h.ListPromoters)
			r.Post("/", h.CreatePromoter)
			r.Get("/{id}", h.GetPromoter)
			r.Put("/{id}", h.UpdatePromoter)
			r.Delete("/{id}", h.DeactivatePromoter)
			r.Get("/{id}/dashboard", h.GetDashboard)
			r.Get("/{id}/stats", h.GetMonthlyStats)
			r.Get("/{id}/rollups", h.GetMonthlyRollups)
			r.Get("/{id}/history", h.GetHistory)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.SubmitBooking)
			r.Get("/pending", h.ListPendingBookings)
			r.Put("/{id}", h.EditBooking)
			r.Post("/{id}/approve", h.ApproveBooking)
			r.Post("/{id}/reject", h.RejectBooking)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/attribution", h.GetAttributionReport)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.RecordPayment)
			r.Get("/outstanding/{id}", h.GetOutstanding)
			r.Get("/history/{id}", h.ListPayments)
		})

		// Signup routes
		r.Route("/signups", func(r chi.Router) {
			r.Post("/", h.SubmitSignup)
			r.Get("/pending", h.ListPendingSignups)
			r.Post("/{id}/approve", h.ApproveSignup)
			r.Post("/{id}/reject", h.RejectSignup)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
