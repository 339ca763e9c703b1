package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/stockhold/platform/health/http"
	platformobservability "github.com/shestoi/stockhold/platform/observability"
)

// NewRouter создаёт и настраивает HTTP роутер для Reservation Service.
// checks - проверки зависимостей для /health (postgres, redis); при сбое любой /health отдаёт 503.
func NewRouter(handler *Handler, logger *zap.Logger, checks ...platformhealth.Check) chi.Router {
	router := chi.NewRouter()

	// trace context + span на каждый запрос, logger с trace_id в контексте
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("reservation", logger))
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", handler.ListReservations)
			r.Post("/", handler.CreateReservation)
			r.Get("/expired", handler.ListExpired)
			r.Post("/from-order", handler.CreateFromOrder)
			r.Post("/sweep", handler.Sweep)
			r.Get("/{id}", handler.GetReservation)
			r.Put("/{id}", handler.UpdateReservation)
			r.Delete("/{id}", handler.DeleteReservation)
		})
		r.Route("/states", func(r chi.Router) {
			r.Get("/", handler.ListStates)
			r.Post("/", handler.CreateState)
			r.Get("/{id}", handler.GetState)
		})
	})

	router.Get("/health", platformhealth.Handler(checks...))

	return router
}
