package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/akinalp/authgate/handlers"
	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/clientinfo"
)

// nowFunc, audit zaman damgaları için; testler değiştirebilir.
var nowFunc = time.Now

// OwnerFunc, istenen kaynağın sahibinin kullanıcı ID'sini döner.
type OwnerFunc func(r *http.Request) (string, error)

// PathOwner, sahibi doğrudan path parametresi olan kaynaklar içindir
// (ör: /users/{id}/sessions → "id").
func PathOwner(param string) OwnerFunc {
	return func(r *http.Request) (string, error) {
		id := r.PathValue(param)
		if id == "" {
			return "", pkg.Validation(param + " is required")
		}
		return id, nil
	}
}

// RoleMiddleware, rol ve sahiplik kontrolü. AuthMiddleware.Require'dan
// SONRA çalışır; context'te kullanıcı yoksa 401 döner.
type RoleMiddleware struct {
	audit audit.Sink
}

// NewRoleMiddleware, constructor.
func NewRoleMiddleware(sink audit.Sink) *RoleMiddleware {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &RoleMiddleware{audit: sink}
}

// RequireRole, kullanıcının rolü roles içinde değilse 403 döner.
//
// Kullanım:
//
//	authMw.Require(roleMw.RequireRole(models.RoleAdmin)(handler))
func (m *RoleMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	for _, role := range roles {
		if !role.Valid() {
			panic("middleware: RequireRole with unknown role " + string(role))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := handlers.UserFromContext(r.Context())
			if !ok {
				pkg.Error(w, pkg.Unauthenticated(pkg.ReasonMissingToken, "authentication required"))
				return
			}

			if !hasRole(user.Role, roles) {
				err := pkg.Forbidden(pkg.ReasonInsufficientRole, "insufficient role")
				m.record(r, user, err)
				pkg.Error(w, err)
				return
			}

			m.record(r, user, nil)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOrRole, kullanıcı kaynağın sahibiyse veya rolü role ise
// geçirir, aksi halde 403 döner.
func (m *RoleMiddleware) RequireOwnerOrRole(owner OwnerFunc, role models.Role) func(http.Handler) http.Handler {
	if !role.Valid() {
		panic("middleware: RequireOwnerOrRole with unknown role " + string(role))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := handlers.UserFromContext(r.Context())
			if !ok {
				pkg.Error(w, pkg.Unauthenticated(pkg.ReasonMissingToken, "authentication required"))
				return
			}

			if hasRole(user.Role, []models.Role{role}) {
				m.record(r, user, nil)
				next.ServeHTTP(w, r)
				return
			}

			ownerID, err := owner(r)
			if err != nil {
				pkg.Error(w, err)
				return
			}

			if ownerID != user.ID {
				err := pkg.Forbidden(pkg.ReasonNotOwner, "you can only access your own resources")
				m.record(r, user, err)
				pkg.Error(w, err)
				return
			}

			m.record(r, user, nil)
			next.ServeHTTP(w, r)
		})
	}
}

// hasRole, rol kümesi kapalıdır: tanımsız bir rol hiçbir listeyle eşleşmez.
func hasRole(role models.Role, allowed []models.Role) bool {
	switch role {
	case models.RoleAdmin, models.RoleEditor, models.RoleUser:
		return slices.Contains(allowed, role)
	default:
		return false
	}
}

func (m *RoleMiddleware) record(r *http.Request, user *models.User, err error) {
	client := clientinfo.FromRequest(r)
	e := audit.Event{
		Type:      audit.EventAuthorize,
		UserID:    user.ID,
		Role:      string(user.Role),
		Success:   err == nil,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		URL:       r.URL.RequestURI(),
		Timestamp: nowFunc(),
	}
	if err != nil {
		e.Reason = string(pkg.ReasonOf(err))
	}
	m.audit.Record(r.Context(), e)
}
