// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Her middleware func(next http.Handler) http.Handler biçimindedir.
// Zincir: Auth → Role/Owner → Handler. Bir middleware hata yazarsa
// next çağrılmaz, istek orada biter.
package middleware

import (
	"net/http"
	"strings"

	"github.com/akinalp/authgate/handlers"
	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/clientinfo"
	"github.com/akinalp/authgate/pkg/token"
	"github.com/akinalp/authgate/repository"
	"github.com/sirupsen/logrus"
)

// AccessVerifier, access token doğrulayıcı (pkg/token.Codec).
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*models.TokenClaims, error)
}

// AuthMiddleware, Bearer token ile kimlik doğrulama.
//
// Kullanıcı her istekte DB'den yeniden yüklenir; pasif hale getirilen
// veya silinen hesap bir sonraki istekte reddedilir. Rol de token'dan
// değil DB'den okunur.
type AuthMiddleware struct {
	tokens AccessVerifier
	users  repository.UserRepository
	audit  audit.Sink
	log    logrus.FieldLogger
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(tokens AccessVerifier, users repository.UserRepository, sink audit.Sink, logger logrus.FieldLogger) *AuthMiddleware {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
		audit:  sink,
		log:    logger.WithField("component", "auth_middleware"),
	}
}

// Require, geçerli bir access token zorunlu kılar. Başarısızlıkta 401 döner.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return m.gate(next, false)
}

// Optional, Require ile aynı doğrulamayı yapar; başarısız olursa isteği
// kullanıcısız olarak devam ettirir.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return m.gate(next, true)
}

func (m *AuthMiddleware) gate(next http.Handler, soft bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		// Require ve Optional aynı audit kaydını üretir; fark sadece sonuçta.
		m.record(r, user, err)

		if err != nil {
			if soft {
				if pkg.KindOf(err) == pkg.KindInternal {
					m.log.WithError(err).Error("[auth] optional authentication failed")
				}
				next.ServeHTTP(w, r)
				return
			}
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
	})
}

// authenticate, Require ve Optional'ın ortak yolu:
//
//  1. Authorization: Bearer <token>
//  2. Access token doğrulaması
//  3. Kullanıcıyı subject ile yükle
//  4. Aktif mi
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, pkg.Unauthenticated(pkg.ReasonMissingToken, "authorization header required, use: Bearer <token>")
	}

	claims, err := m.tokens.VerifyAccess(raw)
	if err != nil {
		if token.KindOf(err) == token.Expired {
			return nil, pkg.Unauthenticated(pkg.ReasonTokenExpired, "access token expired")
		}
		return nil, pkg.Unauthenticated(pkg.ReasonTokenInvalid, "invalid access token")
	}

	user, err := m.users.GetByID(r.Context(), claims.UserID())
	if err != nil {
		if pkg.KindOf(err) == pkg.KindNotFound {
			return nil, pkg.Unauthenticated(pkg.ReasonPrincipalNotFound, "user not found")
		}
		return nil, pkg.Internal("failed to load user", err)
	}

	if !user.IsActive {
		return nil, pkg.Unauthenticated(pkg.ReasonPrincipalInactive, "account is disabled")
	}

	return user.Sanitized(), nil
}

func (m *AuthMiddleware) record(r *http.Request, user *models.User, err error) {
	client := clientinfo.FromRequest(r)
	e := audit.Event{
		Type:      audit.EventAuthenticate,
		Success:   err == nil,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		URL:       r.URL.RequestURI(),
		Timestamp: nowFunc(),
	}
	if user != nil {
		e.UserID = user.ID
		e.Role = string(user.Role)
	}
	if err != nil {
		e.Reason = string(pkg.ReasonOf(err))
		if e.Reason == "" {
			e.Reason = pkg.KindOf(err).String()
		}
	}
	m.audit.Record(r.Context(), e)
}

// bearerToken, "Bearer <token>" header'ından token'ı çıkarır.
// Şema adı büyük/küçük harfe duyarsızdır.
func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
