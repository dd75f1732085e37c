// Package main, Service katmanı başlatma.
//
// initServices, credential ve token bileşenlerini config'ten kurar,
// ardından AuthService ve Sweeper'ı oluşturur.
package main

import (
	"fmt"

	"github.com/akinalp/authgate/config"
	"github.com/akinalp/authgate/pkg/audit"
	"github.com/akinalp/authgate/pkg/metrics"
	"github.com/akinalp/authgate/pkg/password"
	"github.com/akinalp/authgate/pkg/token"
	"github.com/akinalp/authgate/services"
	"github.com/sirupsen/logrus"
)

// Services, service instance'larını tutan container struct.
// Tokens, middleware'in access token doğrulaması için de kullanılır.
type Services struct {
	Auth    services.AuthService
	Sweeper *services.Sweeper
	Tokens  *token.Codec
}

func initServices(
	cfg *config.Config,
	repos *Repositories,
	sink audit.Sink,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
) (*Services, error) {
	hasher, err := password.NewHasher(cfg.Password.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	authService := services.NewAuthService(repos.User, repos.RefreshToken, hasher, codec, sink, logger)

	sweeper, err := services.NewSweeper(authService, cfg.Sweep.Schedule, m, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:    authService,
		Sweeper: sweeper,
		Tokens:  codec,
	}, nil
}
