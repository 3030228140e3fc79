package bootstrap

import (
	"context"
	"testing"

	"promptdoumi/internal/config"
	"promptdoumi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.AdminUser{}))
	return db
}

func TestEnsureDevAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled outside development", func(t *testing.T) {
		db := setupSQLite(t)
		cfg := &config.Config{Env: "production", DevBootstrapAdmin: true, DevAdminPassword: "x"}
		require.NoError(t, EnsureDevAdmin(ctx, cfg, db))

		var n int64
		db.Model(&models.AdminUser{}).Count(&n)
		assert.Zero(t, n)
	})

	t.Run("requires a password", func(t *testing.T) {
		db := setupSQLite(t)
		cfg := &config.Config{Env: "development", DevBootstrapAdmin: true}
		assert.Error(t, EnsureDevAdmin(ctx, cfg, db))
	})

	t.Run("creates once", func(t *testing.T) {
		db := setupSQLite(t)
		cfg := &config.Config{
			Env:               "development",
			DevBootstrapAdmin: true,
			DevAdminEmail:     " Admin@Local.Test ",
			DevAdminPassword:  "Dev-Passw0rd!!",
		}
		require.NoError(t, EnsureDevAdmin(ctx, cfg, db))
		require.NoError(t, EnsureDevAdmin(ctx, cfg, db))

		var admins []models.AdminUser
		require.NoError(t, db.Find(&admins).Error)
		require.Len(t, admins, 1)
		assert.Equal(t, "admin@local.test", admins[0].Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].Password), []byte("Dev-Passw0rd!!")))
	})
}
