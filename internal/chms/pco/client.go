// Package pco pulls groups and calendar events from Planning Center
// Online. PCO speaks JSON:API, so records arrive as resource objects
// whose attributes get flattened into raw records.
package pco

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
)

const defaultBaseURL = "https://api.planningcenteronline.com"

// pageSize is PCO's maximum per_page.
const pageSize = 100

// Config holds PCO personal access token credentials.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
}

var endpoints = map[domain.ContentType]string{
	domain.ContentTypeEvents: "/calendar/v2/events",
	domain.ContentTypeGroups: "/groups/v2/groups",
}

// Client is the Planning Center Online API client.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a PCO client authenticated with a personal access
// token (app id and secret over basic auth).
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		appID:     config.AppID,
		appSecret: config.AppSecret,
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
func (c *Client) Vendor() string { return "pco" }

// Pull walks every page of the resource and flattens each object into
// a raw record: the resource id under "id" plus all attributes.
func (c *Client) Pull(ctx context.Context, contentType domain.ContentType) ([]domain.RawRecord, error) {
	endpoint, ok := endpoints[contentType]
	if !ok {
		return nil, fmt.Errorf("pco does not provide %s", contentType)
	}

	var records []domain.RawRecord
	offset := 0
	for {
		page, err := c.fetchPage(ctx, endpoint, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Data {
			records = append(records, flatten(res))
		}
		if page.Meta.Next == nil {
			return records, nil
		}
		offset = page.Meta.Next.Offset
	}
}

// DiscoverFields fetches a single resource and returns "id" plus its
// attribute names sorted.
func (c *Client) DiscoverFields(ctx context.Context, contentType domain.ContentType) ([]string, error) {
	endpoint, ok := endpoints[contentType]
	if !ok {
		return nil, fmt.Errorf("pco does not provide %s", contentType)
	}

	page, err := c.fetchPage(ctx, endpoint, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, nil
	}

	fields := []string{"id"}
	for name := range page.Data[0].Attributes {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, perPage, offset int) (*listResponse, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	respBody, err := c.doRequest(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var page listResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return &page, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.appID, c.appSecret)
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
	return respBody, nil
}

func flatten(res resource) domain.RawRecord {
	record := domain.RawRecord{"id": res.ID}
	for name, value := range res.Attributes {
		record[name] = value
	}
	return record
}
