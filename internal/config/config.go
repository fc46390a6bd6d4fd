// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

const (
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultOpenAITimeout       = 60 * time.Second
	defaultCompanyName         = "My Company"
	defaultCompanyCurrency     = "USD"
	defaultExchangeRateBaseURL = "https://api.frankfurter.app"
	defaultExchangeRateTimeout = 5 * time.Second
	defaultExchangeRateTTL     = time.Hour
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string

	AIProvider    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration
	GeminiAPIKey  string

	LogLevel  string
	LogFormat string

	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	CompanyName     string
	CompanyCurrency string

	ExchangeRateBaseURL  string
	ExchangeRateTimeout  time.Duration
	ExchangeRateCacheTTL time.Duration

	TelemetryExporter string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AIProvider:       strings.ToLower(envOr("AI_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOr("OPENAI_API_BASE_URL", defaultOpenAIBaseURL),
		OpenAIModel:      strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		OpenAITimeout:    durationOr("OPENAI_TIMEOUT", defaultOpenAITimeout),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        strings.ToLower(os.Getenv("LOG_FORMAT")),

		CompanyName:     envOr("COMPANY_NAME", defaultCompanyName),
		CompanyCurrency: strings.ToUpper(envOr("COMPANY_CURRENCY", defaultCompanyCurrency)),

		ExchangeRateBaseURL:  envOr("EXCHANGE_RATE_BASE_URL", defaultExchangeRateBaseURL),
		ExchangeRateTimeout:  durationOr("EXCHANGE_RATE_TIMEOUT", defaultExchangeRateTimeout),
		ExchangeRateCacheTTL: durationOr("EXCHANGE_RATE_CACHE_TTL", defaultExchangeRateTTL),

		TelemetryExporter: strings.ToLower(envOr("TELEMETRY_EXPORTER", ExporterNone)),
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			// Remove @ prefix if present
			username = strings.TrimPrefix(username, "@")
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
		}
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// validate checks that all required configuration is present.
// A missing AI key is not an error here; receipt extraction reports it
// when it is first needed.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	if c.AIProvider != ProviderOpenAI && c.AIProvider != ProviderGemini {
		errs = append(errs, fmt.Sprintf("AI_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.AIProvider))
	}

	if len(c.CompanyCurrency) != 3 {
		errs = append(errs, fmt.Sprintf("COMPANY_CURRENCY must be a 3-letter ISO code, got %q", c.CompanyCurrency))
	}

	switch c.TelemetryExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		errs = append(errs, fmt.Sprintf("TELEMETRY_EXPORTER must be one of none, stdout, otlp-http, otlp-grpc, got %q", c.TelemetryExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// AIAPIKey returns the API key of the configured AI provider.
func (c *Config) AIAPIKey() string {
	if c.AIProvider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// IsAdmin reports whether the user may change administrator settings such as
// the extraction model. Admins are the users listed by ID.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.WhitelistedUserIDs, userID)
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	// Check user ID whitelist
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	// Check username whitelist (case-insensitive)
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
