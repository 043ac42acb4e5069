package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts every route. gatherer backs /metrics.
func NewRouter(auth AuthService, log logging.Logger, mx *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandler(auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, mx))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)
			r.Get("/email/{email}", h.checkEmail)

			r.Group(func(r chi.Router) {
				r.Use(requireAccessToken(auth))
				r.Post("/revoke", h.revoke)
				r.Post("/logout", h.logout)
				r.Post("/password", h.changePassword)
			})
		})

		r.With(requireAccessToken(auth)).Get("/users/me", h.me)
	})

	return r
}
