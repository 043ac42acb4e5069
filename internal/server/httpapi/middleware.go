package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// userIDFromContext returns the principal placed by requireAccessToken.
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// requireAccessToken verifies the bearer access token and stores its
// principal in the request context.
func requireAccessToken(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeaderName)
			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, common.ErrorUnauthorized)
				return
			}

			userID, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs one line per request and feeds the HTTP metrics.
func requestLogger(log logging.Logger, mx *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)

			mx.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			mx.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			log.Info(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
