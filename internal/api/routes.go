package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Get("/achievements", h.Registry)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Use(UserMiddleware)
				r.Get("/profile", h.GetProfile)
				r.Post("/profile/xp", h.ApplyXP)
				r.Post("/profile/hp", h.ApplyHP)
				r.Post("/open", h.OpenApp)
				r.Get("/habits", h.ListHabits)
				r.Post("/habits", h.CreateHabit)
				r.Delete("/habits/{habitID}", h.ArchiveHabit)
				r.Put("/habits/{habitID}/logs/{date}", h.SetHabitStatus)
				r.Get("/achievements", h.ListAchievements)
				r.Get("/events", h.ListEvents)
			})
		})
	})

	return r
}
