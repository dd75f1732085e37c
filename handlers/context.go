package handlers

import (
	"context"

	"github.com/akinalp/authgate/models"
)

// contextKey, context.WithValue için özel tip.
// Düz string key başka paketlerin key'leriyle çakışabilir.
type contextKey string

// UserContextKey, AuthMiddleware'in doğrulanmış kullanıcıyı koyduğu key.
const UserContextKey contextKey = "user"

// WithUser, kullanıcıyı context'e ekler.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext, context'teki kullanıcıyı döner.
// Optional route'larda kullanıcı yoksa ok=false'tur.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}
