package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"chainlead/internal/platform/config"
	"chainlead/internal/platform/metrics"
	"chainlead/pkg/platform/httputil"
	authmw "chainlead/pkg/platform/middleware/auth"
	"chainlead/pkg/platform/middleware/recovery"
	"chainlead/pkg/platform/middleware/requestid"
	"chainlead/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a feature's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// RouterDeps are the pieces NewRouter mounts. Auth and Health are optional.
type RouterDeps struct {
	Server  config.Server
	Chains  RouteRegistrar
	Metrics *metrics.Metrics
	Auth    authmw.JWTValidator
	Health  func(ctx context.Context) error
	Logger  *slog.Logger
}

// NewRouter builds the HTTP surface: CORS, request IDs, metrics, /healthz,
// /metrics and the detection API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(recovery.Recoverer(deps.Logger))
	r.Use(requesttime.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestid.Header},
		ExposedHeaders: []string{requestid.Header},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req.Context()); err != nil {
				deps.Logger.WarnContext(req.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(authmw.RequireAuth(deps.Auth, deps.Logger))
		}
		deps.Chains.Register(r)
	})
	return r
}
