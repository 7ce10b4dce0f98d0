/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from environment variables. An optional .env file in the working
directory is loaded first; variables already set in the environment win.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// agoraKeyPattern matches the 32 hex character format of Agora app ids and certificates.
var agoraKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	// HostJWTSecret signs the bearer tokens that unlock the host role.
	// Empty disables the check (development only).
	HostJWTSecret string

	// Agora Credentials
	AgoraAppID          string
	AgoraAppCertificate string

	// Token Lifetimes, in seconds
	TokenExpireSeconds    uint32
	TokenMinExpireSeconds uint32
	TokenMaxExpireSeconds uint32

	// Token route rate limiting, per client IP
	TokenRateLimit float64
	TokenRateBurst int

	// DatabaseDSN enables the issuance audit log when set.
	DatabaseDSN string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	return loadFromEnv(os.Getenv)
}

// loadFromEnv builds the configuration from a lookup function so tests can supply their own environment.
func loadFromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := intVar(getenv, "PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	// --- Security Settings ---
	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.HostJWTSecret = getenv("HOST_JWT_SECRET")
	if cfg.HostJWTSecret == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("HOST_JWT_SECRET environment variable is required in %s environment", cfg.Environment)
	}

	// --- Agora Credentials ---
	cfg.AgoraAppID = strings.TrimSpace(getenv("AGORA_APP_ID"))
	if !agoraKeyPattern.MatchString(cfg.AgoraAppID) {
		return nil, fmt.Errorf("AGORA_APP_ID must be set to a 32 character hex app id")
	}

	cfg.AgoraAppCertificate = strings.TrimSpace(getenv("AGORA_APP_CERTIFICATE"))
	if !agoraKeyPattern.MatchString(cfg.AgoraAppCertificate) {
		return nil, fmt.Errorf("AGORA_APP_CERTIFICATE must be set to a 32 character hex certificate")
	}

	// --- Token Lifetimes ---
	expire, err := intVar(getenv, "TOKEN_EXPIRE_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	minExpire, err := intVar(getenv, "TOKEN_MIN_EXPIRE_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	maxExpire, err := intVar(getenv, "TOKEN_MAX_EXPIRE_SECONDS", 24*3600)
	if err != nil {
		return nil, err
	}
	if minExpire <= 0 || minExpire > maxExpire || expire < minExpire || expire > maxExpire {
		return nil, fmt.Errorf("token lifetimes must satisfy 0 < min (%d) <= default (%d) <= max (%d)", minExpire, expire, maxExpire)
	}
	if maxExpire > 7*24*3600 {
		return nil, fmt.Errorf("TOKEN_MAX_EXPIRE_SECONDS %d exceeds one week", maxExpire)
	}
	cfg.TokenExpireSeconds = uint32(expire)
	cfg.TokenMinExpireSeconds = uint32(minExpire)
	cfg.TokenMaxExpireSeconds = uint32(maxExpire)

	// --- Rate Limiting ---
	rateStr := getenv("TOKEN_RATE_LIMIT")
	if rateStr == "" {
		rateStr = "1"
	}
	cfg.TokenRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.TokenRateLimit <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_RATE_LIMIT environment variable %q", rateStr)
	}

	cfg.TokenRateBurst, err = intVar(getenv, "TOKEN_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}
	if cfg.TokenRateBurst < 1 {
		return nil, fmt.Errorf("TOKEN_RATE_BURST must be at least 1")
	}

	// --- Database Settings ---
	cfg.DatabaseDSN = getenv("DATABASE_URL")

	return cfg, nil
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	raw := getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
