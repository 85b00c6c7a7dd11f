// Package imagery is a client for the aerial imagery provider.
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient allows injecting fake HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Center is the point the imagery is framed around.
type Center struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Request asks the provider for aerial views of one parcel.
type Request struct {
	WKT       string  `json:"wkt"`
	Center    Center  `json:"center"`
	Acreage   float64 `json:"acreage"`
	ZoomLevel int     `json:"zoom_level"`
}

type response struct {
	Images []string `json:"images"`
}

// Client calls the imagery provider over HTTP.
type Client struct {
	http    HTTPClient
	baseURL string
	apiKey  string
}

// Options configures a Client.
type Options struct {
	HTTPClient HTTPClient
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
}

// NewClient creates an imagery client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
	}
}

// Generate returns image references for the parcel. An empty slice is a
// valid answer meaning the provider had nothing for this parcel.
func (c *Client) Generate(ctx context.Context, req Request) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode imagery request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/imagery", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build imagery request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("imagery provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode imagery response: %w", err)
	}

	images := make([]string, 0, len(payload.Images))
	for _, ref := range payload.Images {
		if ref = strings.TrimSpace(ref); ref != "" {
			images = append(images, ref)
		}
	}
	return images, nil
}
