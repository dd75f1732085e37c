package models

import "time"

// RefreshToken, DB'de saklanan refresh token kaydıdır (bir oturum).
//
// Token'ın kendisi saklanmaz, sadece SHA-256 özeti (TokenHash) tutulur.
// Kayıt tek kullanımlıktır: başarılı bir refresh eski kaydı siler ve yenisini
// aynı transaction içinde ekler. Bir kullanıcının birden fazla canlı kaydı
// olabilir (çoklu cihaz).
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // API'ye gönderilmez
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired, kaydın verilen anda süresinin dolup dolmadığını döner.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ClientInfo, oturumu açan istemcinin bilgisi (audit ve oturum listesi için).
type ClientInfo struct {
	IP        string
	UserAgent string
}
