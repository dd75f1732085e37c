// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler "ince" olmalı:
//  1. Request body'yi parse et (JSON → struct)
//  2. Service katmanını çağır
//  3. Sonucu HTTP response olarak döndür
//
// İş mantığı service'te, DB erişimi repository'de. Handler sadece köprü.
//
// Tüm yanıtlar pkg.APIResponse zarfındadır. Başarılı yanıt:
//
//	{"success": true, "data": {...}}
//
// Register ve Login'de data {"user", "token", "refreshToken"}, Refresh'te
// {"token", "refreshToken"} taşır. Hata yanıtı:
//
//	{"success": false, "error": "access token expired", "code": "token_expired"}
//
// code pkg.Reason değeridir (yoksa Kind adı); 500'lerde code yoktur ve
// error her zaman "internal server error" olur.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/clientinfo"
	"github.com/akinalp/authgate/services"
)

// maxBodyBytes, auth endpoint'lerinin kabul ettiği en büyük body.
const maxBodyBytes = 16 << 10

// AuthHandler, /auth/* endpoint'lerini yönetir.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler, constructor.
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register godoc
// POST /auth/register
// Body: { "name": "...", "email": "...", "password": "..." }
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	result, err := h.authService.Register(r.Context(), &req, clientinfo.FromRequest(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}

// Login godoc
// POST /auth/login
// Body: { "email": "...", "password": "..." }
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), &req, clientinfo.FromRequest(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Refresh godoc
// POST /auth/refresh-token
// Body: { "refreshToken": "..." }
//
// Eski refresh token tüketilir; aynı token ile ikinci istek 401 alır.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken, clientinfo.FromRequest(r))
	if err != nil {
		pkg.Error(w, publicRefreshError(err))
		return
	}

	pkg.JSON(w, http.StatusOK, pair)
}

// Logout godoc
// POST /auth/logout
// Body (opsiyonel): { "refreshToken": "..." }
//
// Body yoksa sadece başarı döner; access token'lar stateless'tır.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	var req models.RefreshTokenRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.authService.Logout(r.Context(), user.ID, req.RefreshToken, clientinfo.FromRequest(r)); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me godoc
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"user": user})
}

// Session godoc
// GET /auth/session
//
// Optional gate arkasında çalışır; anonim istek de 200 alır.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.JSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// publicRefreshError, kaydı bulunamayan, tekrar kullanılan ve sahibi
// silinmiş token'ları client'a imzası bozuk token ile aynı gösterir.
// Ayrıntılı neden audit kaydında kalır.
func publicRefreshError(err error) error {
	switch pkg.ReasonOf(err) {
	case pkg.ReasonTokenUnknownOrReused, pkg.ReasonPrincipalNotFound:
		return pkg.Unauthenticated(pkg.ReasonTokenInvalid, "invalid refresh token")
	default:
		return err
	}
}

// decodeJSON, body'yi dst'ye parse eder. Bilinmeyen alanlar reddedilmez;
// bozuk veya aşırı büyük body Validation hatasıdır.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, false)
}

// decodeOptionalJSON, boş body'yi hata saymaz.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return nil
		}
		return pkg.Validation("request body required")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkg.Validation("request body too large")
	}
	return pkg.Validation("invalid request body")
}
