package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/akinalp/authgate/database"
	"github.com/akinalp/authgate/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// newTestDB, gömülü migration'larla geçici bir SQLite dosyası açar.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger, _ := test.NewNullLogger()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), database.MustSubMigrations(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, repo UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		Role:         models.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }
