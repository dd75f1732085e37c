// Package crypto, refresh token'ların veritabanında saklanma biçimi.
//
// Refresh token DB'ye ASLA düz metin olarak yazılmaz; SHA-256 özeti
// (hex) saklanır. Token yüksek entropili rastgele bir JWT olduğu için
// bcrypt gibi yavaş bir hash'e gerek yoktur: lookup için deterministik
// bir özet yeterlidir.
//
// Kullanım:
//
//	hash := crypto.HashToken(refreshToken)
//	rec, err := repo.FindActive(ctx, hash, userID)
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken, token'ın SHA-256 özetini hex string olarak döner (64 karakter).
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
