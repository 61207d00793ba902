package proximity

import (
	"net/http"

	"github.com/ConectaAbrigos/abrigos-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	return NewRouter(service, middleware.AdminMiddleware(middleware.AdminVerifierFromEnv()))
}

// NewRouter mounts the proximity endpoints. Mutating endpoints sit behind admin.
func NewRouter(s *Service, admin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/rankings", s.RankingsHandler)
	r.Get("/users/{user_id}/top", s.TopForUserHandler)
	r.Get("/dashboard", s.DashboardHandler)
	r.Get("/reports", s.ReportsHandler)
	r.Get("/coordinates", s.ListCoordinatesHandler)

	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post("/recompute", s.RecomputeHandler)
		r.Put("/coordinates/{kind}/{reference_id}", s.UpdateCoordinateHandler)
		r.Delete("/coordinates/{kind}/{reference_id}", s.DisableCoordinateHandler)
	})

	return r
}
