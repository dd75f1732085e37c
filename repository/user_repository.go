// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service katmanı SQL yazmaz, buradaki interface'ler üzerinden çalışır.
// Testlerde bu interface'lerin in-memory sahteleri kullanılır; eşzamanlılık
// ve hata senaryoları DB olmadan simüle edilebilir.
package repository

import (
	"context"

	"github.com/akinalp/authgate/models"
)

// UserRepository, principal (kullanıcı) deposu.
//
// Bu çekirdek sadece okuma, kayıt ve şifre hash güncellemesi yapar;
// kullanıcı silme/düzenleme dışarıdaki user servisine aittir.
type UserRepository interface {
	// Create, kullanıcıyı ekler. ID boşsa uuid atanır.
	// E-posta zaten varsa pkg.KindConflict döner.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail, e-postayı normalize edilmiş halde bekler.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdatePassword, şifre hash'ini değiştirir ve kullanıcının tüm refresh
	// token kayıtlarını siler; ikisi tek transaction'dır. revoked silinen
	// kayıt sayısıdır. Kullanıcı yoksa pkg.ErrNotFound ve hiçbir şey değişmez.
	UpdatePassword(ctx context.Context, userID string, newPasswordHash string) (revoked int64, err error)
}
