package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/licensegate/backend/internal/metrics"
	"github.com/licensegate/backend/internal/middleware"
)

type RouterConfig struct {
	License        *LicenseHandler
	Admin          *AdminHandler
	Verifier       middleware.TokenVerifier
	Limiter        *middleware.IPRateLimiter
	Metrics        *metrics.Recorder
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(cfg.Metrics))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/license", func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(cfg.Limiter.Handler)
			}
			r.Post("/verify", cfg.License.Verify)
			r.Post("/activate", cfg.License.Activate)
			r.Post("/increment", cfg.License.IncrementMessageCount)
			r.Post("/warnings/{warningId}/read", cfg.License.AcknowledgeWarning)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/verify", cfg.Admin.VerifyAdmin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(cfg.Verifier))

				r.Post("/users/{uid}/admin", cfg.Admin.GrantAdmin)
				r.Delete("/users/{uid}/admin", cfg.Admin.RevokeAdmin)
				r.Post("/users/ban", cfg.Admin.BanUser)
				r.Post("/users/unban", cfg.Admin.UnbanUser)
				r.Post("/users/suspend", cfg.Admin.SuspendUser)
				r.Post("/users/unsuspend", cfg.Admin.UnsuspendUser)
				r.Post("/users/warnings", cfg.Admin.CreateWarning)
				r.Post("/license-keys", cfg.Admin.CreateLicenseKey)
				r.Put("/maintenance", cfg.Admin.SetMaintenance)
			})
		})
	})

	return r
}
