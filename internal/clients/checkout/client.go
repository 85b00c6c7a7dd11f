// Package checkout is a client for the payment checkout-session function.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoRedirect is returned when the provider answers without a URL.
var ErrNoRedirect = errors.New("checkout session returned no redirect url")

// HTTPClient allows injecting fake HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client creates checkout sessions for credit purchases.
type Client struct {
	http    HTTPClient
	baseURL string
	apiKey  string
}

// NewClient creates a checkout client. A nil httpClient uses a 15s timeout.
func NewClient(baseURL, apiKey string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type sessionRequest struct {
	UserID     string `json:"user_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type sessionResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CreateSession returns the URL the buyer should be redirected to.
func (c *Client) CreateSession(ctx context.Context, userID, successURL, cancelURL string) (string, error) {
	body, err := json.Marshal(sessionRequest{UserID: userID, SuccessURL: successURL, CancelURL: cancelURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-checkout-session", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read checkout response: %w", err)
	}

	var payload sessionResponse
	_ = json.Unmarshal(raw, &payload)

	if resp.StatusCode != http.StatusOK {
		msg := payload.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("checkout provider returned status %d: %s", resp.StatusCode, msg)
	}

	if payload.URL == "" {
		return "", ErrNoRedirect
	}
	return payload.URL, nil
}
