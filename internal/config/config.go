package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
	StoreFile      = "file"
)

// Identity providers.
const (
	IdentityFirebase = "firebase"
	IdentityJWT      = "jwt"
)

type Config struct {
	ServerAddress  string        `envconfig:"SERVER_ADDRESS" default:":8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI    string `envconfig:"MONGO_URI"`
	MongoDB     string `envconfig:"MONGO_DB" default:"licensegate"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`

	IdentityProvider string         `envconfig:"IDENTITY_PROVIDER" default:"firebase"`
	Firebase         FirebaseConfig `envconfig:"FIREBASE"`
	JWTSecret        string         `envconfig:"JWT_SECRET"`
	DevAdmin         DevAdminConfig `envconfig:"DEV_ADMIN"`

	Redis               RedisConfig   `envconfig:"REDIS"`
	MaintenanceCacheTTL time.Duration `envconfig:"MAINTENANCE_CACHE_TTL" default:"30s"`

	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Log       LogConfig       `envconfig:"LOG"`
}

type FirebaseConfig struct {
	ProjectID       string `envconfig:"PROJECT_ID"`
	CredentialsJSON string `envconfig:"CREDENTIALS_JSON"`
}

// DevAdminConfig seeds one admin account into the in-memory jwt provider.
type DevAdminConfig struct {
	UID   string `envconfig:"UID"`
	Email string `envconfig:"EMAIL"`
}

// RedisConfig is optional; an empty Addr disables the maintenance cache.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type RateLimitConfig struct {
	RPS   float64 `envconfig:"RPS" default:"5"`
	Burst int     `envconfig:"BURST" default:"10"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(cfg.IdentityProvider))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case StoreFirestore:
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore store"))
		}
	case StoreFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the file store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.IdentityProvider {
	case IdentityFirebase:
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firebase identity provider"))
		}
	case IdentityJWT:
		if len(c.JWTSecret) < 16 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

// NeedsFirebase reports whether a Firebase app must be initialized.
func (c *Config) NeedsFirebase() bool {
	return c.IdentityProvider == IdentityFirebase || c.StoreDriver == StoreFirestore
}
