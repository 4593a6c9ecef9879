package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

const maxResponseBytes = 1 << 20

// ClientConfig represents the configuration for the classification service client.
type ClientConfig struct {
	URL     string
	APIKey  string        // Optional bearer token
	Timeout time.Duration // Default: 10 seconds
	Logger  *slog.Logger
}

// HTTPClient asks a remote classification service for an account.
type HTTPClient struct {
	httpClient *http.Client
	url        string
	apiKey     string
	logger     *slog.Logger
}

// NewHTTPClient creates a new classification service client.
func NewHTTPClient(config ClientConfig) *HTTPClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:    config.URL,
		apiKey: config.APIKey,
		logger: logger,
	}
}

// Predict posts the receipt summary and returns the service's prediction.
// A 204 response means the service has no opinion and yields ErrNoPrediction.
func (c *HTTPClient) Predict(ctx context.Context, r receipt.ParsedReceipt) (*classifier.Prediction, error) {
	reqID := uuid.NewString()
	log := c.logger.With("req_id", reqID)

	body, err := json.Marshal(newRequest(reqID, r))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	start := time.Now()
	log.Debug("predict.http.request", "url", c.url, "vendor", r.Vendor())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoPrediction
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if err := validateResponse(data); err != nil {
		return nil, err
	}

	var prediction classifier.Prediction
	if err := json.Unmarshal(data, &prediction); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug("predict.http.response",
		"account", prediction.Category,
		"confidence", prediction.Confidence,
		"duration_ms", time.Since(start).Milliseconds())

	return &prediction, nil
}

// parseError parses an error response from the classification service.
func (c *HTTPClient) parseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("classifier API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("classifier API error (status %d): %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Errorf("classifier API error (status %d): %s - %s", resp.StatusCode, errResp.Error, errResp.ErrorDescription)
	}

	return fmt.Errorf("classifier API error (status %d): %s", resp.StatusCode, errResp.Error)
}
