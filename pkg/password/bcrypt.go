// Package password, tek yönlü şifre hash'leme ve doğrulama.
//
// bcrypt adaptive bir algoritmadır: cost parametresi her artışta
// hesaplama süresini ikiye katlar. Varsayılan cost 12'dir.
//
// Hasher saf CPU işidir, I/O yapmaz. Her HTTP request zaten kendi
// goroutine'inde çalıştığı için ayrıca bir worker pool'a taşınmaz.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost, PASSWORD_HASH_COST verilmediğinde kullanılan bcrypt cost'u.
const DefaultCost = 12

// MaxPasswordBytes, bcrypt'in işleyebildiği maksimum girdi uzunluğu.
// Daha uzun girdiler bcrypt.ErrPasswordTooLong ile reddedilir.
const MaxPasswordBytes = 72

// Hasher, CredentialService'in bcrypt implementasyonu.
type Hasher struct {
	cost int
}

// NewHasher, verilen cost ile Hasher oluşturur.
// cost bcrypt.MinCost..bcrypt.MaxCost aralığı dışındaysa hata döner.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password hash cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost, Hasher'ın kullandığı bcrypt cost değerini döner.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash, düz metin şifreden bcrypt hash üretir.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify, düz metin şifreyi hash ile karşılaştırır.
//
// Eşleşmeme durumu bir hata DEĞİLDİR: (false, nil) döner.
// Error sadece hash bozuksa (format/cost okunamıyorsa) döner: bu
// durum internal bir hatadır.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
}
