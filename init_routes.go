// Package main, HTTP route registration.
//
// initRoutes, endpoint'leri mux'a bağlar. Middleware chain helper'ları:
//   - auth: access token zorunlu
//   - optional: access token varsa doğrulanır
//   - ownerOrAdmin: auth + {id} sahibi veya ADMIN
//   - admin: auth + ADMIN rolü
package main

import (
	"database/sql"
	"net/http"

	"github.com/akinalp/authgate/middleware"
	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/metrics"
	"github.com/akinalp/authgate/repository"
	"github.com/sirupsen/logrus"
)

func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	tokens middleware.AccessVerifier,
	userRepo repository.UserRepository,
	db *sql.DB,
	sink audit.Sink,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(tokens, userRepo, sink, logger)
	roleMw := middleware.NewRoleMiddleware(sink)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	optional := func(handler http.HandlerFunc) http.Handler {
		return authMw.Optional(handler)
	}
	ownerOrAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(roleMw.RequireOwnerOrRole(middleware.PathOwner("id"), models.RoleAdmin)(handler))
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(roleMw.RequireRole(models.RoleAdmin)(handler))
	}

	// ─── Health & Metrics ───
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			pkg.Error(w, pkg.Internal("database unreachable", err))
			return
		}
		pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "authgate"})
	})
	mux.Handle("GET /metrics", m.Handler())

	// ─── Auth (public) ───
	mux.HandleFunc("POST /auth/register", h.Auth.Register)
	mux.HandleFunc("POST /auth/login", h.Auth.Login)
	mux.HandleFunc("POST /auth/refresh-token", h.Auth.Refresh)

	// ─── Auth (token) ───
	mux.Handle("POST /auth/logout", auth(h.Auth.Logout))
	mux.Handle("GET /auth/me", auth(h.Auth.Me))
	mux.Handle("GET /auth/session", optional(h.Auth.Session))

	// ─── Users ───
	mux.Handle("PUT /users/change-password", auth(h.User.ChangePassword))
	mux.Handle("GET /users/{id}/sessions", ownerOrAdmin(h.User.ListSessions))
	mux.Handle("DELETE /users/{id}/sessions", ownerOrAdmin(h.User.RevokeSessions))

	// ─── Admin ───
	mux.Handle("POST /admin/users/{id}/logout", admin(h.User.AdminLogout))
}
