package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500, cfg.MinBodyLength)
	assert.Equal(t, 5.0, cfg.RONEURDivisor)
	assert.Equal(t, 1400*time.Millisecond, cfg.ListingDelayMin)
	assert.Equal(t, 10*time.Second, cfg.PageDelayMax)
	assert.True(t, cfg.SkipFirstImage)
	assert.Equal(t, "http", cfg.FetchMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_NEW_LISTINGS", "25")
	t.Setenv("PAGE_DELAY_MIN_MS", "0")
	t.Setenv("PAGE_DELAY_MAX_MS", "0")
	t.Setenv("SKIP_FIRST_IMAGE", "false")
	t.Setenv("RON_EUR_DIVISOR", "4.97")
	t.Setenv("FETCH_MODE", "Browser")

	cfg := Load()

	assert.Equal(t, 25, cfg.MaxNewListings)
	assert.Equal(t, time.Duration(0), cfg.PageDelayMin)
	assert.Equal(t, time.Duration(0), cfg.PageDelayMax)
	assert.False(t, cfg.SkipFirstImage)
	assert.Equal(t, 4.97, cfg.RONEURDivisor)
	assert.Equal(t, "browser", cfg.FetchMode)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("RON_EUR_DIVISOR", "-1")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5.0, cfg.RONEURDivisor)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
