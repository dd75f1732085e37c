package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/authgate/database"
	"github.com/akinalp/authgate/models"
	"github.com/akinalp/authgate/pkg"
	"github.com/google/uuid"
)

const refreshTokenColumns = `id, user_id, token_hash, user_agent, ip, issued_at, expires_at`

// sqliteRefreshTokenRepo, RefreshTokenRepository'nin SQLite implementasyonu.
//
// Rotate kendi transaction'ını açtığı için TxQuerier değil *sql.DB alır.
type sqliteRefreshTokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

// RefreshTokenRepoOption, sqliteRefreshTokenRepo ayarı.
type RefreshTokenRepoOption func(*sqliteRefreshTokenRepo)

// WithRefreshTokenClock, "aktif" ve "süresi dolmuş" kararlarında kullanılan saati değiştirir.
func WithRefreshTokenClock(now func() time.Time) RefreshTokenRepoOption {
	return func(r *sqliteRefreshTokenRepo) {
		if now != nil {
			r.now = now
		}
	}
}

// NewSQLiteRefreshTokenRepo, constructor.
func NewSQLiteRefreshTokenRepo(db *sql.DB, opts ...RefreshTokenRepoOption) RefreshTokenRepository {
	r := &sqliteRefreshTokenRepo{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *sqliteRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return insertRefreshToken(ctx, r.db, token)
}

func (r *sqliteRefreshTokenRepo) FindActive(ctx context.Context, tokenHash, userID string) (*models.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE token_hash = ? AND user_id = ? AND expires_at > ?`,
		tokenHash, userID, r.now().Unix(),
	)

	token, err := scanRefreshToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return token, nil
}

func (r *sqliteRefreshTokenRepo) Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ?`, oldID)
		if err != nil {
			return fmt.Errorf("failed to delete rotated refresh token: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return pkg.ErrNotFound
		}

		return insertRefreshToken(ctx, tx, next)
	})
}

func (r *sqliteRefreshTokenRepo) DeleteByTokenHash(ctx context.Context, tokenHash, userID string) (int64, error) {
	return r.deleteWhere(ctx, "token_hash = ? AND user_id = ?", tokenHash, userID)
}

func (r *sqliteRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	return r.deleteWhere(ctx, "user_id = ?", userID)
}

func (r *sqliteRefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return r.deleteWhere(ctx, "expires_at <= ?", r.now().Unix())
}

func (r *sqliteRefreshTokenRepo) ListByUserID(ctx context.Context, userID string) ([]models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE user_id = ? AND expires_at > ?
		ORDER BY issued_at DESC, id`,
		userID, r.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := []models.RefreshToken{}
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refresh tokens: %w", err)
	}
	return tokens, nil
}

func (r *sqliteRefreshTokenRepo) deleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected, nil
}

func insertRefreshToken(ctx context.Context, q database.TxQuerier, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.UserAgent,
		token.IP,
		token.IssuedAt.Unix(),
		token.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

func scanRefreshToken(row rowScanner) (*models.RefreshToken, error) {
	var (
		token               models.RefreshToken
		issuedAt, expiresAt int64
	)
	if err := row.Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.UserAgent, &token.IP, &issuedAt, &expiresAt,
	); err != nil {
		return nil, err
	}
	token.IssuedAt = time.Unix(issuedAt, 0).UTC()
	token.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &token, nil
}
