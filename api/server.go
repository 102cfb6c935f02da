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
  4. CORS:       Cross-origin requests for admin frontends

ROUTE GROUPS:
  /api/owners/*         Owner directory and eligibility
  /api/apartments/*     Apartment directory and charge views
  /api/contracts/*      Contract lifecycle
  /api/charges/*        Charges, payments, write-offs
  /api/admin/*          Ownership and charge generation
  /api/scenarios/*      Demo scenarios (dev only)

SECURITY NOTE:
  Principals arrive via headers and are trusted as-is. Authentication
  belongs to the gateway in front of this service.

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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Principal-ID", "X-Principal-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Owner routes
		r.Route("/owners", func(r chi.Router) {
			r.Get("/", h.ListOwners)
			r.Post("/", h.CreateOwner)
			r.Get("/{id}", h.GetOwner)
			r.Get("/{id}/apartments", h.GetOwnerApartments)
			r.Get("/{id}/eligibility", h.GetOwnerEligibility)
		})

		// Apartment routes
		r.Route("/apartments", func(r chi.Router) {
			r.Get("/", h.ListApartments)
			r.Post("/", h.CreateApartment)
			r.Get("/{id}/charges", h.GetApartmentCharges)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Post("/{id}/terminate", h.TerminateContract)
		})

		// Charge and payment routes
		r.Route("/charges", func(r chi.Router) {
			r.Get("/", h.ListCharges)
			r.Get("/{id}", h.GetCharge)
			r.Get("/{id}/payments", h.GetChargePayments)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/writeoff", h.WriteOffCharge)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/ownerships", h.AssignOwnership)
			r.Post("/transfers", h.TransferOwnership)
			r.Post("/generate", h.GenerateCharges)
		})

		// Scenario routes (dev/demo)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
