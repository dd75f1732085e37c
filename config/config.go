// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Struct field'larındaki `env:"..."` tag'leri caarlos0/env tarafından okunur:
// değişken adı, varsayılan değer (envDefault) ve zorunluluk (required,notEmpty).
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct: her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Password PasswordConfig
	Log      LogConfig
	Audit    AuditConfig
	CORS     CORSConfig
	Sweep    SweepConfig
}

// ServerConfig, HTTP server ayarları.
//
// TrustedProxies, X-Forwarded-For / X-Real-IP'ye güvenilecek reverse
// proxy adresleri (CIDR veya IP). Boşsa header'lar yoksayılır.
type ServerConfig struct {
	Host           string   `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int      `env:"SERVER_PORT" envDefault:"9090"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string `env:"DATABASE_PATH" envDefault:"./data/authgate.db"` // SQLite dosya yolu
}

// JWTConfig, token ayarları.
// İki secret de zorunludur ve birbirinden farklı olmalıdır.
type JWTConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	Issuer        string        `env:"TOKEN_ISSUER" envDefault:"authgate"`
}

// PasswordConfig, bcrypt ayarları.
type PasswordConfig struct {
	HashCost int `env:"PASSWORD_HASH_COST" envDefault:"12"`
}

// LogConfig, logrus ayarları.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json | text
}

// AuditConfig, audit kayıtlarının nereye yazılacağı.
type AuditConfig struct {
	Store string `env:"AUDIT_STORE" envDefault:"log"` // log | db | both
}

// CORSConfig, izin verilen origin listesi.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// SweepConfig, süresi dolmuş refresh token temizliği.
type SweepConfig struct {
	Schedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"` // cron ifadesi
}

// Load, .env dosyasını (varsa) yükler ve environment'tan Config oluşturur.
func Load() (*Config, error) {
	// .env dosyasını yükle: dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	return Parse()
}

// Parse, sadece process environment'ından Config oluşturur ve doğrular.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate, tag'lerle ifade edilemeyen kuralları kontrol eder.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("invalid ACCESS_TOKEN_TTL: %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("invalid REFRESH_TOKEN_TTL: %s", c.JWT.RefreshTTL)
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if c.Password.HashCost < bcrypt.MinCost || c.Password.HashCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid PASSWORD_HASH_COST: must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}

	for _, p := range c.Server.TrustedProxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q: want CIDR or IP", p)
		}
	}

	switch strings.ToLower(c.Audit.Store) {
	case "log", "db", "both":
	default:
		return fmt.Errorf("invalid AUDIT_STORE %q: want log, db or both", c.Audit.Store)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.Log.Format)
	}

	return nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
