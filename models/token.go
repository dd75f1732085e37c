package models

import "github.com/golang-jwt/jwt/v5"

// TokenType, token'ın hangi sınıfa ait olduğunu belirtir.
//
// Access ve refresh token'lar farklı secret'larla imzalanır; "typ" claim'i
// ek bir kontroldür: refresh token access olarak (veya tersi) kabul edilmez.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims, JWT token'ın içindeki veriler (payload).
//
// Subject (sub) kullanıcı ID'sidir. ID (jti) her token için benzersizdir;
// aynı saniyede aynı kullanıcıya üretilen iki refresh token bile farklı olur.
type TokenClaims struct {
	Email string    `json:"email"`
	Role  Role      `json:"role"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID, Subject claim'i için okunabilir erişimci.
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// TokenPair, register/login/refresh sonrası client'a dönen token çifti.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
