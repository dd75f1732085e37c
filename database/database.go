// Package database, SQLite bağlantısını ve migration sistemini yönetir.
//
// SQLite driver (modernc.org/sqlite) blank import ile kayıt olur;
// sql.Open("sqlite", ...) çağrısı bu kayda dayanır.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver: CGO gerekmez
)

// DB, veritabanı bağlantısını saran struct.
// *sql.DB thread-safe bir connection pool'dur.
type DB struct {
	Conn *sql.DB
	log  logrus.FieldLogger
}

// New, yeni bir SQLite bağlantısı oluşturur ve migration'ları çalıştırır.
//
// dbPath: SQLite dosya yolu (ör: "./data/authgate.db")
// migrationsFS: Migration SQL dosyalarını içeren fs.FS (embed.FS veya os.DirFS)
func New(dbPath string, migrationsFS fs.FS, logger logrus.FieldLogger) (*DB, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "database")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, log: logger}

	if err := db.Migrate(context.Background(), migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("[database] connected and migrations applied")
	return db, nil
}

// DSN, modernc.org/sqlite bağlantı string'ini üretir.
//
//   - foreign_keys(1): FK constraint'leri aktif (SQLite'ta varsayılan kapalı!)
//   - journal_mode(WAL): eşzamanlı okuma + tek yazar
//   - busy_timeout(5000): kilitli DB'de 5sn bekle, hemen SQLITE_BUSY dönme
//   - _txlock=immediate: BEGIN IMMEDIATE: transaction yazma kilidini
//     baştan alır. İki eşzamanlı Rotate aynı satırı sırayla görür; ikincisi
//     DELETE'te 0 satır bulur.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// Migrate, migrationsFS'teki .sql dosyalarını isim sırasıyla (001_, 002_, ...)
// çalıştırır. schema_migrations tablosu uygulanmış dosyaları tutar.
//
// Her dosya, schema_migrations kaydıyla birlikte TEK transaction içinde
// uygulanır: ya dosyanın tamamı + kaydı yazılır ya hiçbiri.
func (db *DB) Migrate(ctx context.Context, migrationsFS fs.FS) error {
	if _, err := db.Conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return err
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			for i, stmt := range splitStatements(string(content)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute migration %s (statement %d): %w", file, i+1, err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (filename) VALUES (?)", file,
			); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", file, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		db.log.Infof("[database] migration applied: %s", file)
	}

	return nil
}

func migrationFiles(migrationsFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.Conn.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migration rows: %w", err)
	}
	return applied, nil
}

// splitStatements, SQL metnini statement'lara böler.
// '...' string literal'leri içindeki ';' ve "--" satır yorumları yoksayılır.
func splitStatements(src string) []string {
	var (
		statements []string
		current    strings.Builder
		inString   bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]

		switch {
		case inString:
			current.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(src) && src[i+1] == '\'' {
					current.WriteByte('\'')
					i++
					continue
				}
				inString = false
			}
		case ch == '\'':
			inString = true
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return statements
}
