package handlers

import (
	"net/http"

	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/clientinfo"
	"github.com/akinalp/authgate/services"
)

// UserHandler, /users/* ve /admin/users/* endpoint'leri.
// Sahiplik ve rol kontrolü route tanımında middleware ile yapılır.
type UserHandler struct {
	authService services.AuthService
}

// NewUserHandler, constructor.
func NewUserHandler(authService services.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// ChangePassword godoc
// PUT /users/change-password
// Body: { "currentPassword": "...", "newPassword": "..." }
//
// Başarılı olursa kullanıcının tüm refresh token'ları iptal edilir.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, &req, clientinfo.FromRequest(r)); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// ListSessions godoc
// GET /users/{id}/sessions
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.authService.ListSessions(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// RevokeSessions godoc
// DELETE /users/{id}/sessions
func (h *UserHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	h.revoke(w, r)
}

// AdminLogout godoc
// POST /admin/users/{id}/logout
//
// RevokeSessions ile aynı işlem; route sadece ADMIN'e açıktır.
func (h *UserHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.revoke(w, r)
}

func (h *UserHandler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := UserFromContext(r.Context())
	if !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	revoked, err := h.authService.RevokeSessions(r.Context(), actor.ID, r.PathValue("id"), clientinfo.FromRequest(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]int64{"revoked": revoked})
}
