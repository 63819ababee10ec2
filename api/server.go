/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin console frontend

ROUTE GROUPS:
  /api/players/*   Player search, balance, top-up
  /api/products    Active catalog
  /api/events/*    Tournament add-ons
  /api/tabs/*      Tab lifecycle
  /api/admin/*     Admin-gated operations

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
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Player routes
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.SearchPlayers)
			r.Get("/{id}", h.GetPlayer)
			r.Get("/{id}/balance", h.GetBalance)
		})

		// Catalog routes
		r.Get("/products", h.ListProducts)
		r.Get("/events/{id}/addons", h.ListAddOns)

		// Tab routes
		r.Route("/tabs", func(r chi.Router) {
			r.Get("/", h.ListTabs)
			r.Post("/", h.OpenTab)
			r.Get("/open", h.FindOpenTab)
			r.Get("/{id}", h.GetTab)
			r.Post("/{id}/items", h.AddItem)
			r.Post("/{id}/close", h.CloseTab)
			r.Post("/{id}/reopen", h.ReopenTab)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Put("/tabs/{id}/total", h.AdjustTotal)
			r.Post("/players/{id}/topup", h.TopUp)
		})
	})

	return r
}
