package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EvalClient forwards evaluation payloads to the downstream evaluation
// endpoint. Delivery is best-effort: callers log failures and never retry.
type EvalClient struct {
	url        string
	httpClient *http.Client
}

// NewEvalClient constructs a client targeting the configured eval endpoint.
func NewEvalClient(url string, timeout time.Duration) *EvalClient {
	return &EvalClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward POSTs the payload as JSON. The response body is discarded
// regardless of status; a non-200 status is reported as an error so the
// caller can log it.
func (c *EvalClient) Forward(ctx context.Context, payload any) error {
	if c == nil || c.url == "" {
		return fmt.Errorf("eval endpoint not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal eval payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eval endpoint returned %s", resp.Status)
	}
	return nil
}
