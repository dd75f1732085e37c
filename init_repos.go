// Package main, Repository katmanı başlatma.
//
// initRepositories, repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB bağlantısını paylaşır ve interface döner.
package main

import (
	"database/sql"

	"github.com/akinalp/authgate/repository"
)

// Repositories, repository instance'larını tutan container struct.
type Repositories struct {
	User         repository.UserRepository
	RefreshToken repository.RefreshTokenRepository
}

func initRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(db),
		RefreshToken: repository.NewSQLiteRefreshTokenRepo(db),
	}
}
