package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
}

// ListingMode selects how GET /crossings collapses raw rows.
type ListingMode string

const (
	// ListingPerLook shows one entry per counterpart + eligible look.
	ListingPerLook ListingMode = "per-look"
	// ListingPerUser shows one entry per counterpart, latest crossing only.
	ListingPerUser ListingMode = "per-user"
)

// CrossingsConfig tunes the detection windows and grid.
type CrossingsConfig struct {
	ZoneSizeMeters   float64
	CoLocationWindow time.Duration
	DedupWindow      time.Duration
	RetentionHorizon time.Duration
	ListingMode      ListingMode
}

// GeocodeConfig points at the reverse-geocoding upstream. Failures there only
// degrade the place name, never the request.
type GeocodeConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	JWT          JWTConfig
	Crossings    CrossingsConfig
	Geocode      GeocodeConfig
	ServerPort   string
	MetricsPort  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "lookup"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		JWT: JWTConfig{
			SecretKey:      getEnvOrDefault("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TTL", 24*time.Hour),
			Issuer:         getEnvOrDefault("JWT_ISSUER", "lookup"),
			Audience:       getEnvOrDefault("JWT_AUDIENCE", "lookup-app"),
		},
		Crossings: CrossingsConfig{
			ZoneSizeMeters:   getFloatOrDefault("CROSSING_ZONE_SIZE_METERS", 50),
			CoLocationWindow: getDurationOrDefault("CROSSING_COLOCATION_WINDOW", 10*time.Minute),
			DedupWindow:      getDurationOrDefault("CROSSING_DEDUP_WINDOW", time.Hour),
			RetentionHorizon: getDurationOrDefault("CROSSING_RETENTION_HORIZON", 24*time.Hour),
			ListingMode:      ListingMode(getEnvOrDefault("CROSSING_LISTING_MODE", string(ListingPerLook))),
		},
		Geocode: GeocodeConfig{
			BaseURL:  getEnvOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			Timeout:  getDurationOrDefault("GEOCODE_TIMEOUT", 2*time.Second),
			CacheTTL: getDurationOrDefault("GEOCODE_CACHE_TTL", 6*time.Hour),
		},
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9092"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}
	if cfg.Crossings.ListingMode != ListingPerLook && cfg.Crossings.ListingMode != ListingPerUser {
		return nil, fmt.Errorf("CROSSING_LISTING_MODE must be %q or %q", ListingPerLook, ListingPerUser)
	}
	if cfg.Crossings.DedupWindow <= cfg.Crossings.CoLocationWindow {
		return nil, fmt.Errorf("CROSSING_DEDUP_WINDOW must be longer than CROSSING_COLOCATION_WINDOW")
	}
	// The crossings table's unique pair index buckets by calendar hour as the
	// concurrent-detection backstop. A dedup window narrower than that bucket
	// would make the index drop crossings the window says are independent.
	if cfg.Crossings.DedupWindow < time.Hour {
		return nil, fmt.Errorf("CROSSING_DEDUP_WINDOW must be at least 1h to match the hourly pair index bucket")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
