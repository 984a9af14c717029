package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	BaseURL         string
	DatabaseURL     string
	RedisURL        string
	UploadDir       string
	LogFile         string
	SessionSecret   []byte
	SessionIdle     time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	BcryptCost      int
	AnalyzerCommand string
	AnalyzerTimeout time.Duration
	Email           EmailConfig
	TrustedProxies  []string
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	rawPort := strings.Trim(getenvDefault("EMAIL_SERVER_PORT", "587"), "\"' ")
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:            getenvDefault("PORT", "8080"),
		BaseURL:         getenvDefault("APP_BASE_URL", "http://localhost:3000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getenvDefault("REDIS_URL", "redis://localhost:6379"),
		UploadDir:       getenvDefault("UPLOAD_DIR", "data/uploads"),
		LogFile:         getenvDefault("LOG_FILE", "logs/server.log"),
		SessionIdle:     parseDuration(os.Getenv("SESSION_IDLE_WINDOW"), 30*time.Minute),
		VerificationTTL: parseDuration(os.Getenv("VERIFICATION_TTL"), 24*time.Hour),
		ResetTTL:        parseDuration(os.Getenv("PASSWORD_RESET_TTL"), time.Hour),
		BcryptCost:      parseInt(os.Getenv("BCRYPT_COST"), 12),
		AnalyzerCommand: os.Getenv("ANALYZER_COMMAND"),
		AnalyzerTimeout: parseDuration(os.Getenv("ANALYZER_TIMEOUT"), 5*time.Minute),
		TrustedProxies:  parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	// No fallback secret: an unset or malformed secret must stop the process
	// instead of silently issuing forgeable sessions.
	secret, err := parseSecret(os.Getenv("SESSION_SECRET"))
	if err != nil {
		return Config{}, err
	}
	cfg.SessionSecret = secret

	absUpload, err := filepath.Abs(cfg.UploadDir)
	if err == nil {
		cfg.UploadDir = absUpload
	}

	return cfg, nil
}

func parseSecret(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("SESSION_SECRET must be 32 bytes (or 64 hex characters)")
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return n
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
