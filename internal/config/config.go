package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Mode selects whether submissions are stored or only simulated.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry-run"
)

type Config struct {
	// Server
	Port      string
	Env       string // development, production
	LogLevel  string
	LogFormat string // text, json
	Mode      Mode

	// Database
	DatabaseURL string
	AutoMigrate bool

	// Uploads
	UploadDir          string
	UploadURLPrefix    string
	StripImageMetadata bool

	// Email
	EmailHost        string
	EmailPort        int
	EmailSecure      bool
	EmailUser        string
	EmailPass        string
	EmailFromName    string
	EmailFromAddress string
	AdminEmail       string
	PGPPublicKeyPath string

	// Limits
	RateLimitPerMinute int
}

// Load reads configuration from the environment (and a .env file if present),
// then applies command line overrides from args.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("suggestionbox", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL URL or SQLite path")
	mode := fs.String("mode", getEnv("MODE", string(ModeLive)), "Submission mode (live, dry-run)")

	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", true)

	cfg.UploadDir = getEnv("UPLOAD_DIR", "./public/uploads")
	cfg.UploadURLPrefix = getEnv("UPLOAD_URL_PREFIX", "/uploads")
	cfg.StripImageMetadata = getEnvBool("STRIP_IMAGE_METADATA", true)

	cfg.EmailHost = getEnv("EMAIL_HOST", "")
	cfg.EmailPort = getEnvInt("EMAIL_PORT", 587)
	cfg.EmailSecure = getEnvBool("EMAIL_SECURE", false)
	cfg.EmailUser = getEnv("EMAIL_USER", "")
	cfg.EmailPass = getEnv("EMAIL_PASS", "")
	cfg.EmailFromName = getEnv("EMAIL_FROM_NAME", "Suggestion Box")
	cfg.EmailFromAddress = getEnv("EMAIL_FROM_ADDRESS", cfg.EmailUser)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.EmailUser)
	cfg.PGPPublicKeyPath = getEnv("PGP_PUBLIC_KEY_PATH", "")

	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 10)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(*mode)))

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLive, ModeDryRun:
	default:
		return fmt.Errorf("MODE must be %q or %q, got %q", ModeLive, ModeDryRun, c.Mode)
	}

	if c.Mode == ModeLive && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in live mode")
	}

	if c.EmailPort <= 0 || c.EmailPort > 65535 {
		return fmt.Errorf("EMAIL_PORT must be a valid port, got %d", c.EmailPort)
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// EmailConfigured reports whether SMTP credentials are present. Without them
// notifications are skipped rather than failing submissions.
func (c *Config) EmailConfigured() bool {
	return c.EmailUser != "" && c.EmailPass != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) IsDryRun() bool {
	return c.Mode == ModeDryRun
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
