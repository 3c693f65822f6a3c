package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/tagwatch/internal/api/alarms"
	"github.com/good-yellow-bee/tagwatch/internal/api/auth"
	"github.com/good-yellow-bee/tagwatch/internal/api/middleware"
	"github.com/good-yellow-bee/tagwatch/internal/api/sensors"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	clientLimiter := middleware.NewRateLimiter(s.config.RateLimitPerClient)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	sensorHandler := sensors.NewHandler(s.storage, s.checker)
	alarmHandler := alarms.NewHandler(s.storage, s.checker)
	authHandler := auth.NewHandler(s.config.APIKey, jwtService)

	r.Route("/api/v1", func(r chi.Router) {
		// Token exchange (public, IP rate limited)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ipLimiter))
			r.Post("/auth/token", authHandler.Token)
		})

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByClient(clientLimiter))

			r.Route("/sensors", func(r chi.Router) {
				r.Get("/", sensorHandler.List)
				r.Post("/", sensorHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sensorHandler.GetByID)
					r.Put("/", sensorHandler.Update)
					r.Delete("/", sensorHandler.Delete)
					r.Get("/status", sensorHandler.Status)
					r.Get("/readings", sensorHandler.Readings)
					r.Get("/events", sensorHandler.Events)
					r.Get("/alarms", alarmHandler.ListBySensor)
					r.Post("/alarms", alarmHandler.Create)
				})
			})

			r.Route("/alarms/{id}", func(r chi.Router) {
				r.Get("/", alarmHandler.GetByID)
				r.Put("/", alarmHandler.Update)
				r.Delete("/", alarmHandler.Delete)
				r.Post("/enable", alarmHandler.SetEnabled(true))
				r.Post("/disable", alarmHandler.SetEnabled(false))
				r.Post("/mute", alarmHandler.Mute)
				r.Post("/unmute", alarmHandler.Unmute)
				r.Get("/cloud-payload", alarmHandler.CloudPayload)
			})

			r.Get("/events", sensorHandler.ListEvents)
			r.Delete("/notifications/{id}", alarmHandler.CancelNotification)
		})
	})

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})

	return r
}
