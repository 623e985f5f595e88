// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	APIToken   string // bearer token required on API calls

	WallAPIURL     string // wall-content API base, e.g. https://api.vk.com/method
	WallAPIVersion string // pinned API version string
	WallBaseURL    string // public wall domain used to compose post URLs
	WallTimeout    time.Duration
	WallInterval   time.Duration // minimum spacing between wall calls in one poll cycle

	PromoAPIURL   string // promotion-service endpoint
	PromoService  string // fixed service code sent with every order
	PromoQuantity int    // fixed order quantity
	PromoTimeout  time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. WALLPROMO_API_TOKEN is required; the process must not serve
// requests without it. Everything else has a deployment default.
func Load() (*Config, error) {
	token := os.Getenv("WALLPROMO_API_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("WALLPROMO_API_TOKEN is required")
	}

	cfg := &Config{
		ListenAddr: getEnv("WALLPROMO_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:     getEnv("WALLPROMO_DB_PATH", "wallpromo.db"),
		APIToken:   token,

		WallAPIURL:     getEnv("WALLPROMO_WALL_API_URL", "https://api.vk.com/method"),
		WallAPIVersion: getEnv("WALLPROMO_WALL_API_VERSION", "5.131"),
		WallBaseURL:    getEnv("WALLPROMO_WALL_BASE_URL", "https://vk.com"),

		PromoAPIURL:  getEnv("WALLPROMO_PROMO_API_URL", "https://smmlaba.com/vkapi/v1/"),
		PromoService: getEnv("WALLPROMO_PROMO_SERVICE", "vklikebest3"),
	}

	var err error
	if cfg.WallTimeout, err = getEnvDuration("WALLPROMO_WALL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.WallInterval, err = getEnvDuration("WALLPROMO_WALL_INTERVAL", 400*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PromoTimeout, err = getEnvDuration("WALLPROMO_PROMO_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.PromoQuantity, err = getEnvInt("WALLPROMO_PROMO_QUANTITY", 23); err != nil {
		return nil, err
	}
	if cfg.PromoQuantity <= 0 {
		return nil, fmt.Errorf("WALLPROMO_PROMO_QUANTITY must be positive, got %d", cfg.PromoQuantity)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return d, nil
}
