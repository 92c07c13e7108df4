package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes builds the router for the whole API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(h.logger))        // structured access log
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(metrics.Middleware)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	// Requester
	r.Route("/users/{userId}/requests", func(r chi.Router) {
		r.Post("/", h.CreateRequest)
		r.Get("/", h.ListOwnRequests)
		r.Patch("/{requestId}/cancel", h.CancelRequest)
	})

	// Initiator
	r.Route("/users/{userId}/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListInitiatorEvents)
		r.Get("/{eventId}", h.GetInitiatorEvent)
		r.Patch("/{eventId}", h.UpdateEventByInitiator)
		r.Get("/{eventId}/requests", h.ListEventRequests)
		r.Patch("/{eventId}/requests", h.UpdateRequestStatus)
	})

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Post("/users", h.CreateUser)
		r.Get("/users", h.ListUsers)
		r.Delete("/users/{userId}", h.DeleteUser)

		r.Post("/categories", h.CreateCategory)

		r.Get("/events", h.ListEventsForAdmin)
		r.Patch("/events/{eventId}", h.UpdateEventByAdmin)
		r.Get("/events/{eventId}/reconcile", h.ReconcileEvent)
	})

	// Public
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{catId}", h.GetCategory)
	r.Get("/events", h.ListPublishedEvents)
	r.Get("/events/{eventId}", h.GetPublishedEvent)

	return r
}
