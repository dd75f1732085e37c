// Package token, access ve refresh JWT'lerinin imzalanması ve doğrulanması.
//
// İki token sınıfı vardır ve her biri kendi secret'ıyla imzalanır:
//
//	access  → ACCESS_TOKEN_SECRET,  kısa ömürlü (varsayılan 15dk)
//	refresh → REFRESH_TOKEN_SECRET, uzun ömürlü (varsayılan 7 gün)
//
// Bir sınıf için imzalanmış token, diğer sınıfın secret'ıyla doğrulanamaz.
// Ek olarak "typ" claim'i de kontrol edilir.
//
// Doğrulama saf hesaplamadır: I/O yok, bloklamaz.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/authgate/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrorKind, doğrulama hatasının sınıfı.
type ErrorKind int

const (
	Malformed ErrorKind = iota + 1
	SignatureInvalid
	Expired
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case SignatureInvalid:
		return "signature_invalid"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerifyError, Verify'ın döndüğü typed error.
type VerifyError struct {
	Kind ErrorKind
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// KindOf, err bir *VerifyError ise Kind'ını döner, değilse 0.
func KindOf(err error) ErrorKind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

// Config, Codec ayarları.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Issued, üretilen token ve claim'leri.
type Issued struct {
	Token     string
	Claims    *models.TokenClaims
	ExpiresAt time.Time
}

// Codec, TokenCodec (Issuer + Verifier) implementasyonu.
type Codec struct {
	cfg Config
	now func() time.Time
}

// Option, Codec için opsiyonel ayar.
type Option func(*Codec)

// WithClock, zamanı enjekte eder (testlerde sahte saat için).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec, Codec oluşturur. Secret'lar boşsa veya birbirine eşitse,
// TTL'ler pozitif değilse hata döner.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	c := &Codec{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccessTTL, access token ömrü.
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL, refresh token ömrü.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssueAccess, kullanıcı için access token üretir.
func (c *Codec) IssueAccess(user *models.User) (*Issued, error) {
	return c.issue(user, models.TokenTypeAccess)
}

// IssueRefresh, kullanıcı için refresh token üretir.
func (c *Codec) IssueRefresh(user *models.User) (*Issued, error) {
	return c.issue(user, models.TokenTypeRefresh)
}

// VerifyAccess, token'ı access sınıfı olarak doğrular.
func (c *Codec) VerifyAccess(tokenString string) (*models.TokenClaims, error) {
	return c.Verify(tokenString, models.TokenTypeAccess)
}

// VerifyRefresh, token'ı refresh sınıfı olarak doğrular.
func (c *Codec) VerifyRefresh(tokenString string) (*models.TokenClaims, error) {
	return c.Verify(tokenString, models.TokenTypeRefresh)
}

// Verify, token'ı verilen sınıfın secret'ıyla doğrular.
//
// Hata sınıfları:
//   - Malformed: parse edilemeyen token, eksik subject
//   - SignatureInvalid: yanlış secret, yanlış algoritma, yanlış typ/issuer
//   - Expired: exp geçmiş (imza geçerli olsa bile)
func (c *Codec) Verify(tokenString string, class models.TokenType) (*models.TokenClaims, error) {
	secret, err := c.secretFor(class)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	claims := &models.TokenClaims{}
	_, err = parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Type != class {
		return nil, &VerifyError{Kind: SignatureInvalid, Err: fmt.Errorf("token class %q, want %q", claims.Type, class)}
	}
	if c.cfg.Issuer != "" && claims.Issuer != c.cfg.Issuer {
		return nil, &VerifyError{Kind: SignatureInvalid, Err: fmt.Errorf("unexpected issuer %q", claims.Issuer)}
	}
	if claims.Subject == "" {
		return nil, &VerifyError{Kind: Malformed, Err: errors.New("missing subject")}
	}

	return claims, nil
}

func (c *Codec) issue(user *models.User, class models.TokenType) (*Issued, error) {
	secret, err := c.secretFor(class)
	if err != nil {
		return nil, err
	}

	ttl := c.cfg.AccessTTL
	if class == models.TokenTypeRefresh {
		ttl = c.cfg.RefreshTTL
	}

	now := c.now()
	expiresAt := now.Add(ttl)
	claims := &models.TokenClaims{
		Email: user.Email,
		Role:  user.Role,
		Type:  class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    c.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s token: %w", class, err)
	}

	return &Issued{
		Token:     signed,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) secretFor(class models.TokenType) ([]byte, error) {
	switch class {
	case models.TokenTypeAccess:
		return c.cfg.AccessSecret, nil
	case models.TokenTypeRefresh:
		return c.cfg.RefreshSecret, nil
	default:
		return nil, fmt.Errorf("unknown token class %q", class)
	}
}

// classify, jwt kütüphanesinin hatalarını üç sınıfa indirger.
// jwt/v5 hataları errors.Is ile eşleştirilebilir sentinel'lar taşır.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		// İmza doğrulandıktan sonra exp kontrolü yapılır; imza
		// bozuksa jwt önce ErrTokenSignatureInvalid döner.
		return &VerifyError{Kind: Expired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return &VerifyError{Kind: SignatureInvalid, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return &VerifyError{Kind: Malformed, Err: err}
	default:
		return &VerifyError{Kind: SignatureInvalid, Err: err}
	}
}
