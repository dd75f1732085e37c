package repository

import (
	"context"

	"github.com/akinalp/authgate/models"
)

// RefreshTokenRepository, tek kullanımlık refresh token kayıtlarının deposu.
//
// Kayıtlar token'ın kendisiyle değil SHA-256 özetiyle aranır
// (bkz. pkg/crypto.HashToken).
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindActive, hash ve sahibi eşleşen, süresi dolmamış kaydı döner.
	// Yoksa pkg.ErrNotFound.
	FindActive(ctx context.Context, tokenHash, userID string) (*models.RefreshToken, error)

	// Rotate, oldID'yi siler ve next'i ekler; ikisi tek transaction'dır.
	// oldID artık yoksa (tüketilmiş / iptal edilmiş) hiçbir şey eklenmez ve
	// pkg.ErrNotFound döner.
	Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error

	// DeleteByTokenHash, tek oturumu kapatır. Kayıt yoksa 0 döner, hata değil.
	DeleteByTokenHash(ctx context.Context, tokenHash, userID string) (int64, error)

	// DeleteByUserID, kullanıcının tüm oturumlarını kapatır.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// ListByUserID, kullanıcının aktif oturumlarını en yeniden eskiye döner.
	ListByUserID(ctx context.Context, userID string) ([]models.RefreshToken, error)

	// DeleteExpired, süresi dolmuş kayıtları temizler.
	DeleteExpired(ctx context.Context) (int64, error)
}
