package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"VALUEHOUND_DB_PATH", "VALUEHOUND_LISTEN_ADDR", "HUNT_INTERVAL",
		"QUOTE_CACHE_TTL", "TAX_RATE", "SPREAD_THRESHOLD_PCT", "MAX_HUNTS_PER_USER",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "valuehound.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.HuntInterval)
	assert.Equal(t, 6*time.Hour, cfg.QuoteCacheTTL)
	assert.Equal(t, 0.09, cfg.TaxRate)
	assert.Equal(t, 10.0, cfg.ThresholdPct)
	assert.Equal(t, 5, cfg.MaxHuntsPerUser)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VALUEHOUND_DB_PATH", "/tmp/test.db")
	t.Setenv("HUNT_INTERVAL", "5m")
	t.Setenv("TAX_RATE", "0.07")
	t.Setenv("ADMIN_TELEGRAM_ID", "12345")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.HuntInterval)
	assert.Equal(t, 0.07, cfg.TaxRate)
	assert.EqualValues(t, 12345, cfg.AdminTelegramID)
}

func TestLoadMalformedValues(t *testing.T) {
	t.Setenv("HUNT_INTERVAL", "often")
	_, err := Load()
	assert.ErrorContains(t, err, "HUNT_INTERVAL")
}

func TestLoadMalformedAdminID(t *testing.T) {
	t.Setenv("ADMIN_TELEGRAM_ID", "not-a-number")
	_, err := Load()
	assert.ErrorContains(t, err, "ADMIN_TELEGRAM_ID")
}

func TestHasEbayCredentials(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasEbayCredentials())

	cfg = &Config{EbayOAuth: "token"}
	assert.True(t, cfg.HasEbayCredentials())

	cfg = &Config{EbayClientID: "id"}
	assert.False(t, cfg.HasEbayCredentials())

	cfg = &Config{EbayClientID: "id", EbayClientSecret: "secret"}
	assert.True(t, cfg.HasEbayCredentials())
}

func TestMissingForBot(t *testing.T) {
	cfg := &Config{}
	missing := cfg.MissingForBot()
	assert.Contains(t, missing, "BOT_TOKEN")
	assert.Contains(t, missing, "ADMIN_TELEGRAM_ID")
	assert.Contains(t, missing, "GEMINI_API_KEY")
	assert.Contains(t, missing, "VALUEHOUND_TOKEN_KEY")

	cfg = &Config{
		BotToken:        "t",
		AdminTelegramID: 1,
		TokenKey:        "k",
		GeminiAPIKey:    "g",
		EbayOAuth:       "e",
	}
	assert.Empty(t, cfg.MissingForBot())
	assert.Empty(t, cfg.MissingForServer())
}
