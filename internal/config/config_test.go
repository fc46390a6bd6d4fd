package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("WHITELISTED_USER_IDS", "123")
}

func TestLoad(t *testing.T) {
	t.Run("loads all config from env", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "test-token-123")
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("WHITELISTED_USER_IDS", "123")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "test-token-123", cfg.TelegramBotToken)
		require.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AI_PROVIDER", "")
		t.Setenv("OPENAI_API_BASE_URL", "")
		t.Setenv("OPENAI_TIMEOUT", "")
		t.Setenv("COMPANY_NAME", "")
		t.Setenv("COMPANY_CURRENCY", "")
		t.Setenv("TELEMETRY_EXPORTER", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, ProviderOpenAI, cfg.AIProvider)
		require.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
		require.Equal(t, 60*time.Second, cfg.OpenAITimeout)
		require.Equal(t, "My Company", cfg.CompanyName)
		require.Equal(t, "USD", cfg.CompanyCurrency)
		require.Equal(t, ExporterNone, cfg.TelemetryExporter)
		require.Equal(t, time.Hour, cfg.ExchangeRateCacheTTL)
	})

	t.Run("parses whitelisted user IDs", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USER_IDS", "123,456,789")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456, 789}, cfg.WhitelistedUserIDs)
	})

	t.Run("handles whitespace in user IDs", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USER_IDS", " 123 , 456 , 789 ")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456, 789}, cfg.WhitelistedUserIDs)
	})

	t.Run("skips invalid user IDs and empty entries", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USER_IDS", "123,invalid,,456,")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456}, cfg.WhitelistedUserIDs)
	})

	t.Run("strips @ prefix from usernames", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USERNAMES", " @alice , bob ,")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob"}, cfg.WhitelistedUsernames)
	})

	t.Run("loads AI settings", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AI_PROVIDER", "Gemini")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_MODEL", " gpt-4o ")
		t.Setenv("OPENAI_TIMEOUT", "15s")
		t.Setenv("GEMINI_API_KEY", "test-gemini-key")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, ProviderGemini, cfg.AIProvider)
		require.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		require.Equal(t, "gpt-4o", cfg.OpenAIModel)
		require.Equal(t, 15*time.Second, cfg.OpenAITimeout)
		require.Equal(t, "test-gemini-key", cfg.AIAPIKey())
	})

	t.Run("loads exchange config from env", func(t *testing.T) {
		setRequired(t)
		t.Setenv("EXCHANGE_RATE_BASE_URL", "https://rates.example.com")
		t.Setenv("EXCHANGE_RATE_TIMEOUT", "3s")
		t.Setenv("EXCHANGE_RATE_CACHE_TTL", "10m")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "https://rates.example.com", cfg.ExchangeRateBaseURL)
		require.Equal(t, 3*time.Second, cfg.ExchangeRateTimeout)
		require.Equal(t, 10*time.Minute, cfg.ExchangeRateCacheTTL)
	})

	t.Run("uses defaults for invalid durations", func(t *testing.T) {
		setRequired(t)
		t.Setenv("EXCHANGE_RATE_BASE_URL", "")
		t.Setenv("EXCHANGE_RATE_TIMEOUT", "invalid")
		t.Setenv("OPENAI_TIMEOUT", "-5s")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "https://api.frankfurter.app", cfg.ExchangeRateBaseURL)
		require.Equal(t, 5*time.Second, cfg.ExchangeRateTimeout)
		require.Equal(t, 60*time.Second, cfg.OpenAITimeout)
	})

	t.Run("uppercases company currency", func(t *testing.T) {
		setRequired(t)
		t.Setenv("COMPANY_NAME", "Corner Store")
		t.Setenv("COMPANY_CURRENCY", "sgd")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "Corner Store", cfg.CompanyName)
		require.Equal(t, "SGD", cfg.CompanyCurrency)
	})
}

func TestLoad_Validation(t *testing.T) {
	t.Run("fails when TELEGRAM_BOT_TOKEN is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
	})

	t.Run("fails when DATABASE_URL is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_URL is required")
	})

	t.Run("fails with multiple validation errors", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("WHITELISTED_USER_IDS", "")
		t.Setenv("WHITELISTED_USERNAMES", "")
		t.Setenv("AI_PROVIDER", "claude")
		t.Setenv("TELEMETRY_EXPORTER", "jaeger")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "configuration validation failed")
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
		require.Contains(t, err.Error(), "DATABASE_URL is required")
		require.Contains(t, err.Error(), "at least one whitelisted user")
		require.Contains(t, err.Error(), "AI_PROVIDER")
		require.Contains(t, err.Error(), "TELEMETRY_EXPORTER")
	})

	t.Run("fails on malformed currency", func(t *testing.T) {
		setRequired(t)
		t.Setenv("COMPANY_CURRENCY", "DOLLARS")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "COMPANY_CURRENCY")
	})

	t.Run("missing AI key is not a startup error", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.Empty(t, cfg.AIAPIKey())
	})

	t.Run("succeeds with username whitelist only", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WHITELISTED_USER_IDS", "")
		t.Setenv("WHITELISTED_USERNAMES", "alice")

		cfg, err := Load()
		require.NoError(t, err)
		require.Empty(t, cfg.WhitelistedUserIDs)
		require.Equal(t, []string{"alice"}, cfg.WhitelistedUsernames)
	})
}

func TestConfig_IsAdmin(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		WhitelistedUserIDs:   []int64{100},
		WhitelistedUsernames: []string{"alice"},
	}
	require.True(t, cfg.IsAdmin(100))
	require.False(t, cfg.IsAdmin(200))
}

func TestConfig_IsUserWhitelisted(t *testing.T) {
	t.Parallel()

	t.Run("returns true for whitelisted user ID", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{
			WhitelistedUserIDs:   []int64{100, 200, 300},
			WhitelistedUsernames: []string{"alice"},
		}
		require.True(t, cfg.IsUserWhitelisted(100, ""))
		require.True(t, cfg.IsUserWhitelisted(300, ""))
	})

	t.Run("username check ignores @ prefix and case", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{
			WhitelistedUsernames: []string{"alice", "bob"},
		}
		require.True(t, cfg.IsUserWhitelisted(999, "@alice"))
		require.True(t, cfg.IsUserWhitelisted(888, "BOB"))
	})

	t.Run("returns false for non-whitelisted user", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{
			WhitelistedUserIDs:   []int64{100},
			WhitelistedUsernames: []string{"alice"},
		}
		require.False(t, cfg.IsUserWhitelisted(999, "unknown"))
		require.False(t, cfg.IsUserWhitelisted(0, ""))
	})

	t.Run("returns false for empty whitelist", func(t *testing.T) {
		t.Parallel()
		emptyCfg := &Config{}
		require.False(t, emptyCfg.IsUserWhitelisted(100, "alice"))
	})
}
