package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "valuehound"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from a .env file in the working
// directory, then from the config file in the user's config directory.
// Errors are ignored since neither file needs to exist.
func LoadEnvFile() {
	_ = godotenv.Load()

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// Config holds everything read from the environment.
type Config struct {
	BotToken        string
	AdminTelegramID int64
	TokenKey        string
	DBPath          string

	GeminiAPIKey string

	EbayClientID     string
	EbayClientSecret string
	EbayOAuth        string

	WatchDBBaseURL string
	WatchDBAPIKey  string

	ListenAddr string

	HuntInterval  time.Duration
	QuoteCacheTTL time.Duration

	TaxRate      float64
	ThresholdPct float64

	MaxHuntsPerUser int
}

// Load reads the configuration from the environment. Malformed values
// error; absent optional values get defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		TokenKey:         os.Getenv("VALUEHOUND_TOKEN_KEY"),
		DBPath:           envString("VALUEHOUND_DB_PATH", "valuehound.db"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		EbayClientID:     os.Getenv("EBAY_CLIENT_ID"),
		EbayClientSecret: os.Getenv("EBAY_CLIENT_SECRET"),
		EbayOAuth:        os.Getenv("EBAY_OAUTH"),
		WatchDBBaseURL:   os.Getenv("WATCH_DB_URL"),
		WatchDBAPIKey:    os.Getenv("WATCH_DB_API_KEY"),
		ListenAddr:       envString("VALUEHOUND_LISTEN_ADDR", ":8080"),
	}

	var err error
	if cfg.AdminTelegramID, err = envInt64("ADMIN_TELEGRAM_ID", 0); err != nil {
		return nil, err
	}
	if cfg.HuntInterval, err = envDuration("HUNT_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.QuoteCacheTTL, err = envDuration("QUOTE_CACHE_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TaxRate, err = envFloat("TAX_RATE", 0.09); err != nil {
		return nil, err
	}
	if cfg.ThresholdPct, err = envFloat("SPREAD_THRESHOLD_PCT", 10.0); err != nil {
		return nil, err
	}
	maxHunts, err := envInt64("MAX_HUNTS_PER_USER", 5)
	if err != nil {
		return nil, err
	}
	cfg.MaxHuntsPerUser = int(maxHunts)

	return cfg, nil
}

// HasEbayCredentials reports whether any form of eBay authentication is
// configured.
func (c *Config) HasEbayCredentials() bool {
	return (c.EbayClientID != "" && c.EbayClientSecret != "") || c.EbayOAuth != ""
}

// MissingForBot returns the names of required variables the bot cannot run
// without.
func (c *Config) MissingForBot() []string {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.AdminTelegramID == 0 {
		missing = append(missing, "ADMIN_TELEGRAM_ID")
	}
	missing = append(missing, c.missingCore()...)
	return missing
}

// MissingForServer returns the names of required variables the API server
// cannot run without.
func (c *Config) MissingForServer() []string {
	return c.missingCore()
}

func (c *Config) missingCore() []string {
	var missing []string
	if c.TokenKey == "" {
		missing = append(missing, "VALUEHOUND_TOKEN_KEY")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if !c.HasEbayCredentials() {
		missing = append(missing, "EBAY_CLIENT_ID/EBAY_CLIENT_SECRET (or EBAY_OAUTH)")
	}
	return missing
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration (e.g. 15m): %w", key, err)
	}
	return parsed, nil
}
