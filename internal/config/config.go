// Package config loads application configuration from the environment.
//
// Values come from environment variables. An optional .env file in the
// working directory is loaded first with godotenv; variables already set in
// the real environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devSessionSecret is only ever used by LoadWithDefaults.
const devSessionSecret = "dev-session-secret-change-me"

// MinSecretLength matches what auth.NewTokenService accepts.
const MinSecretLength = 16

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	GitHub    GitHubConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port     int
	LogLevel slog.Level
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// AuthConfig contains session and account settings.
type AuthConfig struct {
	SessionSecret          string        // HMAC key for session tokens
	SessionTTL             time.Duration // lifetime of a session cookie
	SecureCookies          bool          // set the Secure flag (HTTPS deployments)
	BcryptCost             int
	AllowAnonymousSnippets bool // let logged-out visitors create snippets
}

// RateLimitConfig bounds login and registration attempts per client IP.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// GitHubConfig contains OAuth App credentials. GitHub sign-in is enabled only
// when both the client ID and secret are set.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether GitHub sign-in should be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Load loads configuration from the environment (and .env) with sensible
// defaults. SESSION_SECRET is required.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	if cfg.Auth.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a fixed SESSION_SECRET when none is
// set. WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return load(devSessionSecret)
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: reading .env: %w", err)
	}
	return nil
}

func load(defaultSecret string) (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	port, err := getEnvInt("PORT", 8080)
	collect(err)
	if port < 1 || port > 65535 {
		collect(fmt.Errorf("PORT must be between 1 and 65535, got %d", port))
	}

	level, err := getEnvLogLevel("LOG_LEVEL", slog.LevelInfo)
	collect(err)

	ttl, err := getEnvDuration("SESSION_TTL", 24*time.Hour)
	collect(err)
	if ttl <= 0 {
		collect(fmt.Errorf("SESSION_TTL must be positive, got %s", ttl))
	}

	secure, err := getEnvBool("SECURE_COOKIES", false)
	collect(err)

	anon, err := getEnvBool("ALLOW_ANONYMOUS_SNIPPETS", true)
	collect(err)

	cost, err := getEnvInt("BCRYPT_COST", 12)
	collect(err)

	rps, err := getEnvFloat("LOGIN_RATE_LIMIT_RPS", 1)
	collect(err)

	burst, err := getEnvInt("LOGIN_RATE_LIMIT_BURST", 5)
	collect(err)

	cfg := &Config{
		Server: ServerConfig{
			Port:     port,
			LogLevel: level,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "data/snippetbin.db"),
		},
		Auth: AuthConfig{
			SessionSecret:          getEnv("SESSION_SECRET", defaultSecret),
			SessionTTL:             ttl,
			SecureCookies:          secure,
			BcryptCost:             cost,
			AllowAnonymousSnippets: anon,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", port)),
		},
	}

	if s := cfg.Auth.SessionSecret; s != "" && len(s) < MinSecretLength {
		collect(fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSecretLength))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return defaultVal, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultVal, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return defaultVal, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

// getEnvDuration accepts Go durations ("90m", "24h").
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultVal, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// getEnvLogLevel accepts debug, info, warn or error (any case).
func getEnvLogLevel(key string, defaultVal slog.Level) (slog.Level, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return defaultVal, fmt.Errorf("invalid log level for %s: %w", key, err)
	}
	return level, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, LogLevel: %s, DB: %s, SessionTTL: %s, SecureCookies: %t, AnonymousSnippets: %t, "+
			"BcryptCost: %d, RateLimit: %g/s burst %d, GitHub: %t, Secrets: *** (masked) ***}",
		c.Server.Port, c.Server.LogLevel, c.Database.Path, c.Auth.SessionTTL, c.Auth.SecureCookies,
		c.Auth.AllowAnonymousSnippets, c.Auth.BcryptCost, c.RateLimit.RPS, c.RateLimit.Burst, c.GitHub.Enabled(),
	)
}
