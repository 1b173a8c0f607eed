// Package rockrms pulls groups, event items, and campuses from a Rock
// RMS instance. Rock's REST API is OData-flavored JSON authenticated
// with an Authorization-Token header.
package rockrms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
)

// Config holds Rock RMS connection settings. Filters are optional
// OData $filter expressions keyed by content type.
type Config struct {
	BaseURL string            `yaml:"base_url"`
	APIKey  string            `yaml:"api_key"`
	Filters map[string]string `yaml:"filters"`
}

var resources = map[domain.ContentType]string{
	domain.ContentTypeEvents:    "/api/EventItems",
	domain.ContentTypeGroups:    "/api/Groups",
	domain.ContentTypeLocations: "/api/Campuses",
}

var defaultFilters = map[domain.ContentType]string{
	domain.ContentTypeEvents: "IsActive eq true and IsApproved eq true",
	domain.ContentTypeGroups: "IsActive eq true and IsPublic eq true",
}

// Client is the Rock RMS REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	filters    map[string]string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Rock RMS client.
func NewClient(config Config) *Client {
	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		filters: config.Filters,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// Vendor returns the vendor identifier.
func (c *Client) Vendor() string { return "rock_rms" }

// Pull fetches every row of the resource behind the content type.
func (c *Client) Pull(ctx context.Context, contentType domain.ContentType) ([]domain.RawRecord, error) {
	params := url.Values{}
	if filter := c.filterFor(contentType); filter != "" {
		params.Set("$filter", filter)
	}
	return c.query(ctx, contentType, params)
}

// DiscoverFields probes the resource with a single row and returns its
// property names sorted.
func (c *Client) DiscoverFields(ctx context.Context, contentType domain.ContentType) ([]string, error) {
	params := url.Values{}
	params.Set("$top", "1")
	rows, err := c.query(ctx, contentType, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}

func (c *Client) query(ctx context.Context, contentType domain.ContentType, params url.Values) ([]domain.RawRecord, error) {
	resource, ok := resources[contentType]
	if !ok {
		return nil, fmt.Errorf("rock rms does not provide %s", contentType)
	}

	endpoint := resource
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var rows []domain.RawRecord
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", resource, err)
	}
	return rows, nil
}

func (c *Client) filterFor(contentType domain.ContentType) string {
	if filter, ok := c.filters[string(contentType)]; ok {
		return filter
	}
	return defaultFilters[contentType]
}
