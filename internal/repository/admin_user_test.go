package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"promptdoumi/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAdminUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdminUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "admin_users" WHERE email = $1 ORDER BY "admin_users"."id" LIMIT $2`)).
		WithArgs("admin@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password"}).AddRow(1, "admin@example.com", "hash"))

	user, err := repo.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUserRepository_SQLiteFlow(t *testing.T) {
	db := setupSQLite(t)
	repo := NewAdminUserRepository(db)
	ctx := context.Background()

	user := &models.AdminUser{Email: "admin@example.com", Password: "hash-1"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Error(t, repo.Create(ctx, &models.AdminUser{Email: "admin@example.com", Password: "x"}), "email is unique")

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "hash-2"))
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLogin(ctx, user.ID, now))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.Password)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(now))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, 404, "x"), gorm.ErrRecordNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
