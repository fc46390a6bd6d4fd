// Package receipt extracts vendor, date and amounts from receipt images with
// an AI vision model.
package receipt

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/storeops/inventory-expense/internal/config"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// Messages returned as configuration errors when a provider key is missing.
const (
	MsgOpenAIKeyMissing = "OpenAI API key is not configured. Please set the OPENAI_API_KEY environment variable."
	MsgGeminiKeyMissing = "Gemini API key is not configured. Please set the GEMINI_API_KEY environment variable."
)

// CompletionRequest is one image-plus-instructions completion asking for a
// JSON object in return.
type CompletionRequest struct {
	Model           string
	SystemPrompt    string
	Image           []byte
	MimeType        string
	MaxOutputTokens int
}

// DataURL encodes the image as a data URL.
func (r CompletionRequest) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MimeType, base64.StdEncoding.EncodeToString(r.Image))
}

// Completer sends a completion request to an AI provider and returns the raw
// text content of the first choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewCompleter returns the completer for the configured provider. A missing
// API key is reported as a *models.ConfigurationError.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	key := cfg.AIAPIKey()
	switch cfg.AIProvider {
	case config.ProviderGemini:
		if key == "" {
			return nil, models.NewConfigurationError(MsgGeminiKeyMissing)
		}
		return NewGeminiCompleter(ctx, key)
	default:
		if key == "" {
			return nil, models.NewConfigurationError(MsgOpenAIKeyMissing)
		}
		return NewOpenAICompleter(key, cfg.OpenAIBaseURL, newHTTPClient(cfg.OpenAITimeout)), nil
	}
}

// DefaultModel returns the extraction model used when neither OPENAI_MODEL
// nor the administrator setting names one.
func DefaultModel(provider string) string {
	if provider == config.ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}
