package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/stockhold/platform/health/http"
	platformobservability "github.com/shestoi/stockhold/platform/observability"
)

// NewRouter создаёт HTTP роутер Inventory Service
func NewRouter(handler *Handler, logger *zap.Logger, checks ...platformhealth.Check) chi.Router {
	router := chi.NewRouter()

	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("inventory", logger))
	}

	router.Route("/api/stock", func(r chi.Router) {
		r.Get("/", handler.ListStock)
		r.Post("/", handler.CreateStock)
		r.Get("/{id}", handler.GetStock)
		r.Put("/{id}", handler.SetStock)
		r.Post("/{id}/reserve", handler.ReserveStock)
		r.Post("/{id}/release", handler.ReleaseStock)
	})

	router.Get("/health", platformhealth.Handler(checks...))

	return router
}
