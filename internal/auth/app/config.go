package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
)

// defaultEnvFile is loaded when ENV_FILE is unset. A missing file is fine.
const defaultEnvFile = ".env"

type Config struct {
	// HS256 signing key. Required outside dev and test.
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"1h"` // Access token lifetime
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"quill-auth"`
	MFAIssuer     string        `env:"MFA_ISSUER" envDefault:"Quill"` // Issuer label shown in authenticator apps

	DatabaseFile    string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile      string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	HashConcurrency int    `env:"AUTH_HASH_CONCURRENCY" envDefault:"4"` // Concurrent argon2 computations

	APIPrefix           string        `env:"API_PREFIX" envDefault:"/api/v1"`
	Port                int           `env:"PORT" envDefault:"3001"`
	Env                 string        `env:"ENV" envDefault:"dev"` // dev, test, staging, prod
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// Per-IP request limit on registration. RATE_LIMIT_REQUESTS=0 disables it.
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// First admin, created only while the store is empty.
	AdminUsername string `env:"AUTH_ADMIN_USERNAME"`
	AdminEmail    string `env:"AUTH_ADMIN_EMAIL"`
	AdminPassword string `env:"AUTH_ADMIN_PASSWORD"`
}

// LoadConfig reads the optional env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return nil
	default:
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
}

// Validate checks settings that env tags cannot express.
func (c Config) Validate() error {
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required when ENV=%s", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinHMACKeyLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinHMACKeyLength)
	}
	if c.JWTExpiration <= 0 {
		return errors.New("JWT_EXPIRATION must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.HashConcurrency < 1 {
		return errors.New("AUTH_HASH_CONCURRENCY must be at least 1")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX must start with '/': %q", c.APIPrefix)
	}
	if (c.AdminUsername == "") != (c.AdminEmail == "") {
		return errors.New("AUTH_ADMIN_USERNAME and AUTH_ADMIN_EMAIL must be set together")
	}
	return nil
}

// IsDevelopment reports whether missing secrets may be generated on the fly.
func (c Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "test"
}

// RateLimit returns the per-route limiter settings.
func (c Config) RateLimit() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: c.RateLimitRequests,
		Window:            c.RateLimitWindow,
		Burst:             c.RateLimitBurst,
	}
}

// SeedsAdmin reports whether a first admin should be created on startup.
func (c Config) SeedsAdmin() bool {
	return c.AdminUsername != ""
}
