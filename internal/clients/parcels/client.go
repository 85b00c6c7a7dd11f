// Package parcels is a client for the parcel registry HTTP API.
package parcels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient allows injecting fake HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 512

// Region scopes a parcel lookup to one county.
type Region struct {
	State  string
	County string
}

// String formats the region the way the registry expects, e.g.
// "Los Angeles County, CA".
func (r Region) String() string {
	county := strings.TrimSpace(r.County)
	if !strings.HasSuffix(strings.ToLower(county), " county") {
		county += " County"
	}
	return fmt.Sprintf("%s, %s", county, strings.ToUpper(strings.TrimSpace(r.State)))
}

// Parcel is one raw registry result. Numeric fields tolerate both JSON numbers
// and numeric strings since the registry is inconsistent about them.
type Parcel struct {
	ParcelID      string    `json:"parcel_id"`
	Address       string    `json:"address"`
	City          string    `json:"muni_name"`
	County        string    `json:"county_name"`
	State         string    `json:"state_abbr"`
	Zip           string    `json:"addr_zip"`
	WKT           string    `json:"geom_as_wkt"`
	LandUseCode   string    `json:"land_use_code"`
	LandUseClass  string    `json:"land_use_class"`
	Zoning        string    `json:"zoning"`
	CountyID      FlexFloat `json:"county_id"`
	AcreageCalc   FlexFloat `json:"acreage_calc"`
	AcreageDeeded FlexFloat `json:"acreage_deeded"`
	Latitude      FlexFloat `json:"latitude"`
	Longitude     FlexFloat `json:"longitude"`
}

type searchResponse struct {
	Status  string   `json:"status"`
	Count   int      `json:"count"`
	Results []Parcel `json:"results"`
}

// Client queries the parcel registry.
type Client struct {
	http       HTTPClient
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	apiVersion string
}

// Options configures a Client.
type Options struct {
	HTTPClient HTTPClient
	BaseURL    string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	RateLimit  float64 // requests per second; 0 disables limiting
}

// NewClient creates a parcel registry client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		http:       httpClient,
		limiter:    limiter,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		apiVersion: opts.APIVersion,
	}
}

// Lookup fetches the parcel with the given identifier inside region.
// Returns nil, nil when the registry has no matching parcel.
func (c *Client) Lookup(ctx context.Context, parcelID string, region Region) (*Parcel, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("parcel registry rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	params.Set("client", c.apiKey)
	params.Set("v", c.apiVersion)
	params.Set("region", region.String())
	params.Set("parcel_id", parcelID)
	params.Set("return_buildings", "true")

	endpoint := c.baseURL + "/parcels?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build parcel request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parcel registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("parcel registry returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode parcel registry response: %w", err)
	}

	if len(payload.Results) == 0 {
		return nil, nil
	}

	return &payload.Results[0], nil
}

// FlexFloat decodes a JSON number, a numeric string, or null.
// Valid is false when the field was absent, null, or blank.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if text == "" {
			*f = FlexFloat{}
			return nil
		}
	}

	// Placeholders like "N/A" decode as absent rather than failing the response
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = FlexFloat{}
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}
