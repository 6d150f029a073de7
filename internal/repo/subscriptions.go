package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// subscriptionDocument is the wire shape served by the configuration endpoint.
type subscriptionDocument struct {
	Expressions []string `json:"expressions"`
}

// SubscriptionsClient fetches subscription expression lists from the remote
// configuration endpoint.
type SubscriptionsClient struct {
	url        string
	httpClient *http.Client
}

// NewSubscriptionsClient constructs a client for the configured endpoint.
func NewSubscriptionsClient(url string, timeout time.Duration) *SubscriptionsClient {
	return &SubscriptionsClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves the current subscription document. It returns the parsed
// expression list alongside the raw body for snapshotting. A non-200 status,
// transport failure, or unparsable document is returned as an error; callers
// treat all of these as soft failures and keep the previous subscription set.
func (c *SubscriptionsClient) Fetch(ctx context.Context) ([]string, []byte, error) {
	if c == nil || c.url == "" {
		return nil, nil, fmt.Errorf("subscriptions endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, fmt.Errorf("subscriptions endpoint returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read subscriptions body: %w", err)
	}

	expressions, err := ParseSubscriptionDocument(raw)
	if err != nil {
		return nil, nil, err
	}
	return expressions, raw, nil
}

// ParseSubscriptionDocument extracts the expression list from a subscription
// document.
func ParseSubscriptionDocument(raw []byte) ([]string, error) {
	var doc subscriptionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse subscription document: %w", err)
	}
	return doc.Expressions, nil
}
