package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBUser: "park",
		DBPass: "s3cret",
		DBHost: "db.internal",
		DBPort: "3307",
		DBName: "parksmart",
	}

	got := cfg.DSN()
	assert.Equal(t, "park:s3cret@tcp(db.internal:3307)/parksmart?parseTime=true&loc=UTC&charset=utf8mb4", got)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_USER", "park")
	t.Setenv("DB_PASS", "s3cret")
	t.Setenv("DB_NAME", "parksmart")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("QR_SECRET", "qr-secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25, cfg.DBMaxOpen)
	assert.Equal(t, 25, cfg.DBMaxIdle)
	assert.Equal(t, 30*time.Minute, cfg.DBConnTTL)
	assert.Equal(t, time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, "Asia/Kolkata", cfg.FacilityTZ)
}

func TestLoadPanicsOnMissingRequired(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASS", "s3cret")
	t.Setenv("DB_NAME", "parksmart")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("QR_SECRET", "qr-secret")

	require.Panics(t, func() { Load() })
}
