package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/storeops/inventory-expense/internal/logger"
)

const instrumentationName = "gitlab.com/storeops/inventory-expense/internal/receipt"

var (
	// ErrEmptyResponse is returned when the model sends no content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNotJSONObject is returned when the content is not a JSON object.
	ErrNotJSONObject = errors.New("response is not a JSON object")
)

// Result holds the fields read from a receipt. A nil field means the model
// could not read that value.
type Result struct {
	VendorName *string
	Date       *string
	Subtotal   *decimal.Decimal
	Total      *decimal.Decimal
}

// ModelConfig selects the model and the instructions sent with the image.
type ModelConfig struct {
	Model  string
	Prompt string
}

// Extractor turns receipt images into Results with a single completion call.
type Extractor struct {
	completer Completer
	attempts  metric.Int64Counter
}

// NewExtractor creates an Extractor backed by completer.
func NewExtractor(completer Completer) *Extractor {
	attempts, err := otel.Meter(instrumentationName).Int64Counter("receipt.extractions",
		metric.WithDescription("Number of receipt extraction attempts"))
	if err != nil {
		otel.Handle(err)
	}
	return &Extractor{completer: completer, attempts: attempts}
}

// Extract asks the model for the receipt fields. It never fails: any
// collaborator error, empty answer or malformed JSON is logged and yields
// nil. There are no retries.
func (x *Extractor) Extract(ctx context.Context, image []byte, mimeType string, mc ModelConfig) *Result {
	if mc.Prompt == "" {
		mc.Prompt = DefaultExtractionPrompt
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	content, err := x.completer.Complete(ctx, CompletionRequest{
		Model:           mc.Model,
		SystemPrompt:    mc.Prompt,
		Image:           image,
		MimeType:        mimeType,
		MaxOutputTokens: MaxOutputTokens,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("model", mc.Model).Msg("Receipt extraction request failed")
		x.record(ctx, false)
		return nil
	}

	res, err := ParseResponse(content)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("model", mc.Model).
			Str("content", logger.SanitizeText(content)).
			Msg("Receipt extraction returned unusable content")
		x.record(ctx, false)
		return nil
	}

	logger.Log.Debug().
		Str("model", mc.Model).
		Bool("has_vendor", res.VendorName != nil).
		Bool("has_date", res.Date != nil).
		Bool("has_subtotal", res.Subtotal != nil).
		Bool("has_total", res.Total != nil).
		Msg("Receipt extracted")
	x.record(ctx, true)
	return res
}

func (x *Extractor) record(ctx context.Context, ok bool) {
	if x.attempts != nil {
		x.attempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
	}
}

type extractionResponse struct {
	VendorName json.RawMessage `json:"vendor_name"`
	Date       json.RawMessage `json:"date"`
	Subtotal   json.RawMessage `json:"subtotal"`
	Total      json.RawMessage `json:"total"`
}

// ParseResponse decodes the model's JSON object. Markdown code fences are
// stripped first. Amounts may be JSON numbers or numeric strings; anything
// else, including empty strings, maps to nil.
func ParseResponse(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, ErrEmptyResponse
	}
	if !strings.HasPrefix(content, "{") {
		return nil, ErrNotJSONObject
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	return &Result{
		VendorName: stringField(resp.VendorName),
		Date:       stringField(resp.Date),
		Subtotal:   amountField(resp.Subtotal),
		Total:      amountField(resp.Total),
	}, nil
}

func stringField(raw json.RawMessage) *string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func amountField(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		text = n.String()
	}
	if text == "" {
		return nil
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	return &d
}
