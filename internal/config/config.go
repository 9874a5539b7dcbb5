package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Backend REST API.
	APIURL      string
	APIKey      string
	HTTPTimeout time.Duration

	// Backend retries on transport failures, 429 and 5xx (0 = no retries).
	BackendMaxRetries       int
	BackendRetryInterval    time.Duration
	BackendRetryMaxInterval time.Duration

	// SessionRefreshInterval must stay below the server-side access token expiry (60m).
	SessionRefreshInterval time.Duration

	// Credentials used by non-interactive CLI commands.
	Identity string
	Secret   string

	// Geocoding provider.
	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderLanguage  string
	GeocoderAPIKey    string        // enables the Google backend when set
	GeocoderInterval  time.Duration // minimum spacing between reverse lookups in a batch

	// Resolved label cache.
	LabelCacheMaxEntries int           // 0 = unlimited
	LabelCacheMaxAge     time.Duration // 0 = unlimited

	// FetchInterval controls how often `serve` refreshes preset cities (0 = disabled).
	FetchInterval time.Duration

	// Preset cities offered for quick fetches.
	Cities []City

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.APIURL = getenvDefault("API_URL", "http://localhost:8000")
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.Identity = os.Getenv("WEATHER_IDENTITY")
	cfg.Secret = os.Getenv("WEATHER_SECRET")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	cfg.BackendMaxRetries = getenvInt("BACKEND_MAX_RETRIES", 0)
	if cfg.BackendMaxRetries < 0 {
		return nil, fmt.Errorf("BACKEND_MAX_RETRIES must not be negative")
	}
	if cfg.BackendRetryInterval, err = getenvDuration("BACKEND_RETRY_INTERVAL", "500ms"); err != nil {
		return nil, err
	}
	if cfg.BackendRetryMaxInterval, err = getenvDuration("BACKEND_RETRY_MAX_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.BackendMaxRetries > 0 && cfg.BackendRetryInterval <= 0 {
		return nil, fmt.Errorf("BACKEND_RETRY_INTERVAL must be positive when retries are enabled")
	}

	// Default 55 minutes: renew five minutes before the 1h access token expires.
	if cfg.SessionRefreshInterval, err = getenvDuration("SESSION_REFRESH_INTERVAL", "55m"); err != nil {
		return nil, err
	}
	if cfg.SessionRefreshInterval <= 0 {
		return nil, fmt.Errorf("SESSION_REFRESH_INTERVAL must be positive")
	}

	cfg.GeocoderBaseURL = getenvDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org")
	cfg.GeocoderUserAgent = getenvDefault("GEOCODER_USER_AGENT", "SKAPA-Meteo/1.0")
	cfg.GeocoderLanguage = getenvDefault("GEOCODER_LANGUAGE", "fr")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	if cfg.GeocoderInterval, err = getenvDuration("GEOCODER_INTERVAL", "1100ms"); err != nil {
		return nil, err
	}
	if cfg.GeocoderInterval < time.Second {
		log.Printf("INFO: GEOCODER_INTERVAL %s is below the provider's 1 req/s policy", cfg.GeocoderInterval)
	}

	cfg.LabelCacheMaxEntries = getenvInt("LABEL_CACHE_MAX_ENTRIES", 256)
	if cfg.LabelCacheMaxAge, err = getenvDuration("LABEL_CACHE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	cities, err := LoadCities(os.Getenv("CITIES_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
