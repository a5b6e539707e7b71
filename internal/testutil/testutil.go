// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/franciscosanchezn/gin-user-manager/internal/database"
	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenTestDB opens a migrated in-memory SQLite database private to the test.
// A uniquely named shared-cache database keeps every pooled connection on the same data.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.New().String() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser stores a user with a hashed password and returns it
func CreateUser(t *testing.T, db *gorm.DB, name, email, password string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, Password: password, Role: role}
	require.NoError(t, user.HashPassword())
	require.NoError(t, db.Create(user).Error)
	return user
}
