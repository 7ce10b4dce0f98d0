/*
Package handler provides the HTTP handlers and routing setup for the token service.

This file defines the main Router, applying request ids, CORS, request logging,
panic recovery and per-IP rate limiting before delegating to the token handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"liveshop/internal/pkg/auth/jwt"
	"liveshop/internal/pkg/errs"
	"liveshop/internal/pkg/logx"
	"liveshop/internal/pkg/req"
	"liveshop/internal/pkg/resp"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "LiveShop Token Server"

// Router sets up the HTTP routing table for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !deps.Config.IsDevelopment(),
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": ServiceName,
		})
	})

	r.Route("/api/token", func(api chi.Router) {
		api.Use(middleware.RequestSize(req.MaxBodySize))
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.HostJWTSecret))
		if deps.TokenLimiter != nil {
			api.Use(deps.TokenLimiter.Middleware)
		}

		api.Post("/", HandleIssueToken(deps))
		api.Post("/privileges", HandleIssuePrivilegeToken(deps))
		api.Post("/inspect", HandleInspectToken(deps))
	})

	return r
}
