// Package ministryplatform pulls Events, Groups, and Locations from the
// Ministry Platform REST tables API using OAuth2 client credentials.
package ministryplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
)

// Config holds Ministry Platform API credentials and per-table query
// overrides. Selects and Filters are keyed by content type; empty keys
// fall back to the defaults below.
type Config struct {
	BaseURL      string            `yaml:"base_url"`
	TokenURL     string            `yaml:"token_url"`
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	Selects      map[string]string `yaml:"selects"`
	Filters      map[string]string `yaml:"filters"`
}

var tables = map[domain.ContentType]string{
	domain.ContentTypeEvents:    "Events",
	domain.ContentTypeGroups:    "Groups",
	domain.ContentTypeLocations: "Locations",
}

var defaultSelects = map[domain.ContentType]string{
	domain.ContentTypeEvents:    "Event_ID,Event_Title,Events.Description,Event_Start_Date,Event_End_Date,Location_ID_Table.Location_Name,Featured_On_Calendar",
	domain.ContentTypeGroups:    "Group_ID,Group_Name,Groups.Description,Primary_Contact_Table.Display_Name,Primary_Contact_Table.Email_Address,Group_Type_ID_Table.Group_Type,Meeting_Day_ID_Table.Meeting_Day,Meeting_Time,Offsite_Meeting_Address_Table.City,Offsite_Meeting_Address_Table.[State/Region],Offsite_Meeting_Address_Table.Postal_Code",
	domain.ContentTypeLocations: "Location_ID,Location_Name,Address_ID_Table.Address_Line_1,Address_ID_Table.City,Address_ID_Table.[State/Region],Address_ID_Table.Postal_Code",
}

var defaultFilters = map[domain.ContentType]string{
	domain.ContentTypeEvents: "Events.Event_End_Date >= GETDATE() AND Events.Visibility_Level_ID = 4",
	domain.ContentTypeGroups: "Groups.End_Date IS NULL OR Groups.End_Date >= GETDATE()",
}

// Client is the Ministry Platform tables API client.
type Client struct {
	baseURL    string
	cfg        Config
	tokens     oauth2.TokenSource
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Ministry Platform client. Tokens are fetched
// lazily and cached by the oauth2 token source.
func NewClient(config Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
	}
	return &Client{
		baseURL: config.BaseURL,
		cfg:     config,
		tokens:  cc.TokenSource(context.Background()),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetTokenSource replaces the OAuth2 token source (useful for testing).
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.tokens = ts
}

// Vendor returns the vendor identifier.
func (c *Client) Vendor() string { return "ministry_platform" }

// Pull fetches all rows of the table behind the content type. The
// tables API returns a flat JSON array, so rows map straight onto raw
// records.
func (c *Client) Pull(ctx context.Context, contentType domain.ContentType) ([]domain.RawRecord, error) {
	params := url.Values{}
	if sel := c.selectFor(contentType); sel != "" {
		params.Set("$select", sel)
	}
	if filter := c.filterFor(contentType); filter != "" {
		params.Set("$filter", filter)
	}
	return c.query(ctx, contentType, params)
}

// DiscoverFields probes the table with a single unfiltered row and
// returns its column names sorted.
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
	table, ok := tables[contentType]
	if !ok {
		return nil, fmt.Errorf("ministry platform does not provide %s", contentType)
	}

	endpoint := fmt.Sprintf("/tables/%s", table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}

	var rows []domain.RawRecord
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", table, err)
	}
	return rows, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string) ([]byte, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
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

func (c *Client) selectFor(contentType domain.ContentType) string {
	if sel, ok := c.cfg.Selects[string(contentType)]; ok {
		return sel
	}
	return defaultSelects[contentType]
}

func (c *Client) filterFor(contentType domain.ContentType) string {
	if filter, ok := c.cfg.Filters[string(contentType)]; ok {
		return filter
	}
	return defaultFilters[contentType]
}
