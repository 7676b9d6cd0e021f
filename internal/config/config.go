package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	Addr     string
	DBDSN    string
	LogLevel string

	// FrontendURL is the base URL magic-link and email-change links point at.
	FrontendURL *url.URL

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// TokenPepper is the master secret the per-class peppers (magic link,
	// refresh, email change) are derived from.
	TokenPepper string

	MagicLinkTTL         time.Duration
	MagicLinkRatePerHour int

	EmailChangeTTL         time.Duration
	EmailChangeRatePerHour int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLSMode  string

	GoogleClientID string

	DevLoginEmail string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		DBDSN:          getenv("APP_DB_DSN"),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		JWTSecret:      getenv("APP_JWT_SECRET"),
		JWTIssuer:      getenv("APP_JWT_ISSUER"),
		TokenPepper:    getenv("APP_TOKEN_PEPPER"),
		SMTPHost:       getenv("APP_SMTP_HOST"),
		SMTPUsername:   getenv("APP_SMTP_USERNAME"),
		SMTPPassword:   getenv("APP_SMTP_PASSWORD"),
		SMTPFrom:       getenv("APP_SMTP_FROM"),
		SMTPFromName:   getenv("APP_SMTP_FROM_NAME"),
		SMTPTLSMode:    getenv("APP_SMTP_TLS_MODE"),
		GoogleClientID: getenv("APP_GOOGLE_CLIENT_ID"),
		DevLoginEmail:  strings.TrimSpace(strings.ToLower(getenv("APP_DEV_LOGIN_EMAIL"))),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "ziyara"
	}
	if cfg.SMTPFromName == "" {
		cfg.SMTPFromName = "Ziyara"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	frontendRaw := getenv("APP_FRONTEND_URL")
	if frontendRaw != "" {
		parsed, err := url.Parse(frontendRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_FRONTEND_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_FRONTEND_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_FRONTEND_URL: scheme must be http or https")
		}
		cfg.FrontendURL = parsed
	}

	var err error
	if cfg.AccessTTL, err = parseDuration(getenv("APP_ACCESS_TTL"), 15*time.Minute); err != nil {
		return Config{}, fmt.Errorf("APP_ACCESS_TTL: %w", err)
	}
	if cfg.RefreshTTL, err = parseDuration(getenv("APP_REFRESH_TTL"), 30*24*time.Hour); err != nil {
		return Config{}, fmt.Errorf("APP_REFRESH_TTL: %w", err)
	}
	if cfg.MagicLinkTTL, err = parseDuration(getenv("APP_MAGIC_LINK_TTL"), 15*time.Minute); err != nil {
		return Config{}, fmt.Errorf("APP_MAGIC_LINK_TTL: %w", err)
	}
	if cfg.EmailChangeTTL, err = parseDuration(getenv("APP_EMAIL_CHANGE_TTL"), 30*time.Minute); err != nil {
		return Config{}, fmt.Errorf("APP_EMAIL_CHANGE_TTL: %w", err)
	}
	if cfg.MagicLinkRatePerHour, err = parseCount(getenv("APP_MAGIC_LINK_RATE_PER_HOUR"), 5); err != nil {
		return Config{}, fmt.Errorf("APP_MAGIC_LINK_RATE_PER_HOUR: %w", err)
	}
	if cfg.EmailChangeRatePerHour, err = parseCount(getenv("APP_EMAIL_CHANGE_RATE_PER_HOUR"), 3); err != nil {
		return Config{}, fmt.Errorf("APP_EMAIL_CHANGE_RATE_PER_HOUR: %w", err)
	}
	if cfg.SMTPPort, err = parseCount(getenv("APP_SMTP_PORT"), 587); err != nil {
		return Config{}, fmt.Errorf("APP_SMTP_PORT: %w", err)
	}

	if cfg.IsProd() {
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if cfg.FrontendURL == nil {
			return Config{}, errors.New("APP_FRONTEND_URL: required in prod")
		}
		if len(cfg.JWTSecret) < 32 {
			return Config{}, errors.New("APP_JWT_SECRET: must be at least 32 bytes in prod")
		}
		if len(cfg.TokenPepper) < 32 {
			return Config{}, errors.New("APP_TOKEN_PEPPER: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

// DevLoginEnabled gates the no-verification dev login endpoint.
func (c Config) DevLoginEnabled() bool { return c.Env == "dev" }

func (c Config) FrontendBase() string {
	if c.FrontendURL == nil {
		return ""
	}
	return strings.TrimRight(c.FrontendURL.String(), "/")
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be > 0")
	}
	return d, nil
}

func parseCount(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
