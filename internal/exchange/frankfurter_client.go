package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.frankfurter.app"
	defaultTimeout = 5 * time.Second
)

var errRateMissing = errors.New("conversion rate missing in response")

// FrankfurterClient is a client for the frankfurter.app exchange rates API.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
}

type frankfurterResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a Frankfurter API client.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &FrankfurterClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Rate fetches the latest published rate from one currency to another.
func (c *FrankfurterClient) Rate(ctx context.Context, fromCurrency, toCurrency string) (Rate, error) {
	from := normalizeCurrency(fromCurrency)
	to := normalizeCurrency(toCurrency)
	if from == "" || to == "" {
		return Rate{}, errors.New("from and to currencies are required")
	}
	if from == to {
		return identityRate(from), nil
	}

	endpoint := fmt.Sprintf("%s/latest?from=%s&to=%s",
		c.baseURL,
		url.QueryEscape(from),
		url.QueryEscape(to),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("failed to create rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("failed to request exchange rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Rate{}, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload frankfurterResponse
	if err := decoder.Decode(&payload); err != nil {
		return Rate{}, fmt.Errorf("failed to decode rate response: %w", err)
	}

	raw, ok := payload.Rates[to]
	if !ok {
		return Rate{}, errRateMissing
	}

	value, err := decimal.NewFromString(raw.String())
	if err != nil {
		return Rate{}, fmt.Errorf("failed to parse exchange rate: %w", err)
	}
	if !value.IsPositive() {
		return Rate{}, errors.New("exchange rate must be positive")
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return Rate{}, fmt.Errorf("failed to parse rate date: %w", err)
	}

	return Rate{From: from, To: to, Value: value, Date: date}, nil
}
