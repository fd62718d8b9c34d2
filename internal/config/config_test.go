package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setDevEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("IDENTITY_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
}

func TestLoad_Defaults(t *testing.T) {
	setDevEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "licensegate", cfg.MongoDB)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.MaintenanceCacheTTL)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.NeedsFirebase())
}

func TestLoad_NestedPrefixes(t *testing.T) {
	setDevEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 0.5, cfg.RateLimit.RPS)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_NormalizesDriverNames(t *testing.T) {
	setDevEnv(t)
	t.Setenv("STORE_DRIVER", " File ")
	t.Setenv("IDENTITY_PROVIDER", "JWT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.StoreDriver)
	assert.Equal(t, IdentityJWT, cfg.IdentityProvider)
}

func TestLoad_BadDuration(t *testing.T) {
	setDevEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver:      StoreMongo,
			MongoURI:         "mongodb://localhost:27017",
			IdentityProvider: IdentityFirebase,
			Firebase:         FirebaseConfig{ProjectID: "demo"},
			RequestTimeout:   time.Second,
			RateLimit:        RateLimitConfig{RPS: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"mongo without uri", func(c *Config) { c.MongoURI = "" }, "MONGO_URI"},
		{"firestore without project", func(c *Config) {
			c.StoreDriver = StoreFirestore
			c.IdentityProvider = IdentityJWT
			c.JWTSecret = "0123456789abcdef"
			c.Firebase.ProjectID = ""
		}, "FIREBASE_PROJECT_ID is required for the firestore store"},
		{"file without dir", func(c *Config) { c.StoreDriver = StoreFile }, "DATA_DIR"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }, `unknown STORE_DRIVER "postgres"`},
		{"firebase without project", func(c *Config) { c.Firebase.ProjectID = "" }, "firebase identity provider"},
		{"short jwt secret", func(c *Config) {
			c.IdentityProvider = IdentityJWT
			c.JWTSecret = "short"
		}, "JWT_SECRET"},
		{"unknown provider", func(c *Config) { c.IdentityProvider = "ldap" }, `unknown IDENTITY_PROVIDER "ldap"`},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "RATE_LIMIT_BURST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Config{StoreDriver: StoreMongo, IdentityProvider: IdentityJWT}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
}

func TestNeedsFirebase(t *testing.T) {
	assert.True(t, (&Config{IdentityProvider: IdentityFirebase, StoreDriver: StoreFile}).NeedsFirebase())
	assert.True(t, (&Config{IdentityProvider: IdentityJWT, StoreDriver: StoreFirestore}).NeedsFirebase())
	assert.False(t, (&Config{IdentityProvider: IdentityJWT, StoreDriver: StoreMongo}).NeedsFirebase())
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})

	require.NoError(t, SetupLogging(LogConfig{Level: "debug", Format: "json"}))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, SetupLogging(LogConfig{Level: " warn ", Format: "TEXT"}))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	assert.Error(t, SetupLogging(LogConfig{Level: "loud", Format: "text"}))
	assert.Error(t, SetupLogging(LogConfig{Level: "info", Format: "xml"}))
}
