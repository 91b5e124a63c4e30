package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DatabaseDriver)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, time.Hour, c.SweepInterval)
	assert.False(t, c.SweepEnabled)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"port": "9090", "jwt_secret": "from-file-secret-123", "allowed_origins": ["https://a.example", "https://b.example"]},
		"database": {"driver": "postgres", "name": "wellness"},
		"ai": {"base_url": "http://ai.local:5000/", "timeout": "3s"},
		"sweep": {"enabled": true, "interval": "30m"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("APP_PORT", "7070")
	t.Setenv("DATABASE_DRIVER", "SQLite")

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", c.AppPort)
	assert.Equal(t, "from-file-secret-123", c.JWTSecret)
	assert.Equal(t, "sqlite", c.DatabaseDriver)
	assert.Equal(t, "wellness", c.DBName)
	assert.Equal(t, "http://ai.local:5000", c.AIBaseURL)
	assert.Equal(t, 3*time.Second, c.AITimeout)
	assert.True(t, c.SweepEnabled)
	assert.Equal(t, 30*time.Minute, c.SweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, AppConfig{}.Validate())
	assert.Error(t, AppConfig{JWTSecret: "short"}.Validate())
	assert.NoError(t, AppConfig{JWTSecret: "a-long-enough-secret"}.Validate())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{}.Location())
	assert.Equal(t, time.UTC, AppConfig{DefaultTimezone: "Not/AZone"}.Location())
	assert.Equal(t, "Asia/Kolkata", AppConfig{DefaultTimezone: "Asia/Kolkata"}.Location().String())
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite", ""} {
		d, err := Dialector(AppConfig{DatabaseDriver: driver, DBName: "x"})
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}
	_, err := Dialector(AppConfig{DatabaseDriver: "oracle"})
	assert.Error(t, err)
}

func TestOpenDatabase_SQLiteSingleConnection(t *testing.T) {
	db, err := OpenDatabase(AppConfig{
		DatabaseDriver: "sqlite",
		DatabaseURI:    filepath.Join(t.TempDir(), "neurowell.db"),
		LogLevel:       "silent",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
