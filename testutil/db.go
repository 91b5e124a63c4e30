// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neurowell/neurowell/models"
)

// NewDB opens a migrated in-memory SQLite database that lives for the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would get its own empty :memory: database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser inserts a profile with the given streak state.
func CreateUser(t testing.TB, db *gorm.DB, email string, streaks int, last *time.Time) models.User {
	t.Helper()
	u := models.User{Email: email, Provider: "local", Streaks: streaks, LastCheckIn: last}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// FixedClock returns a clock frozen at *now; tests move time by assigning to it.
func FixedClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}
