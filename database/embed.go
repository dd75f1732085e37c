package database

import (
	"embed"
	"io/fs"
)

// EmbeddedMigrations, migrations/*.sql dosyalarını binary'ye gömer.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

// MustSubMigrations, EmbeddedMigrations'ın migrations/ alt dizinini döner.
// Dizin derleme zamanında gömüldüğü için hata olamaz.
func MustSubMigrations() fs.FS {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
