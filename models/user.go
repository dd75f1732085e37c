// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Role, kullanıcının yetki seviyesidir.
//
// Kapalı bir küme: sadece aşağıdaki üç değer geçerlidir. DB'den veya
// token'dan gelen string'ler ParseRole ile doğrulanmadan Role'e çevrilmez.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleUser   Role = "USER"
)

// Valid, Role'ün tanımlı değerlerden biri olup olmadığını kontrol eder.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleUser:
		return true
	default:
		return false
	}
}

// ParseRole, string'i Role'e çevirir; bilinmeyen değerler hata döner.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User, bir kullanıcıyı (principal) temsil eder.
// JSON tag'leri API response'larında kullanılır.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // json:"-" → API response'a DAHİL ETME
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sanitized, PasswordHash'i temizlenmiş bir kopya döner.
// Context'e veya response'a giden her User bu kopyadır.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}

// emailRegex, basit e-posta format kontrolü: local@domain.tld
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// EmailRegex, paylaşılan e-posta regex'ini döner.
func EmailRegex() *regexp.Regexp {
	return emailRegex
}

// NormalizeEmail, karşılaştırma ve saklama için e-postayı normalize eder.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Şifre politikası sınırları.
// Üst sınır bcrypt'in 72 byte limitidir.
const (
	PasswordMinLength = 8
	PasswordMaxBytes  = 72
	NameMaxLength     = 64
)

// ValidatePassword, şifre politikasını uygular:
//   - en az 8 karakter, en fazla 72 byte
//   - en az bir büyük harf, bir küçük harf, bir rakam ve bir sembol
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLength)
	}
	if len(password) > PasswordMaxBytes {
		return fmt.Errorf("password must be at most %d bytes", PasswordMaxBytes)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSymbol = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return fmt.Errorf("password must contain an uppercase letter, a lowercase letter, a digit and a symbol")
	}
	return nil
}

// CreateUserRequest, kayıt olurken frontend'den gelen veri.
// PasswordHash yerine Password alırız: hash'leme service katmanında yapılır.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate, CreateUserRequest'i normalize eder ve doğrular.
func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 || nameLen > NameMaxLength {
		return fmt.Errorf("name must be between 1 and %d characters", NameMaxLength)
	}

	r.Email = NormalizeEmail(r.Email)
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("invalid email format")
	}

	return ValidatePassword(r.Password)
}

// LoginRequest, giriş yaparken frontend'den gelen veri.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
// Şifre politikası burada UYGULANMAZ: eski politikayla oluşturulmuş
// hesaplar da giriş yapabilmeli.
func (r *LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ChangePasswordRequest, şifre değiştirme isteği.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate, zorunlu alanları ve yeni şifrenin politikasını kontrol eder.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || r.NewPassword == "" {
		return fmt.Errorf("currentPassword and newPassword are required")
	}
	if r.CurrentPassword == r.NewPassword {
		return fmt.Errorf("new password must be different from current password")
	}
	return ValidatePassword(r.NewPassword)
}

// RefreshTokenRequest, /auth/refresh-token ve /auth/logout body'si.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}
