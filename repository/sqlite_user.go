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

const userColumns = `id, name, email, password_hash, role, is_active, created_at`

// sqliteUserRepo, UserRepository'nin SQLite implementasyonu.
type sqliteUserRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteUserRepo, constructor.
func NewSQLiteUserRepo(db *sql.DB) UserRepository {
	return &sqliteUserRepo{db: db, now: time.Now}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if !user.Role.Valid() {
		return fmt.Errorf("failed to create user: unknown role %q", user.Role)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC().Truncate(time.Second)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		user.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkg.Conflict("email already in use")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) UpdatePassword(ctx context.Context, userID string, newPasswordHash string) (revoked int64, err error) {
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE id = ?`,
			newPasswordHash, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return pkg.ErrNotFound
		}

		result, err = tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		revoked, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser, userColumns sırasıyla bir satırı okur. DB'deki role string'i
// ParseRole'den geçmeden models.Role'e çevrilmez.
func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		role      string
		createdAt int64
	)
	if err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&role, &user.IsActive, &createdAt,
	); err != nil {
		return nil, err
	}

	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	user.Role = parsed
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &user, nil
}
