// Package ccb pulls groups and events from Church Community Builder.
// CCB exposes a single api.php endpoint that switches on a srv query
// parameter and answers in XML.
package ccb

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
)

// Config holds CCB API credentials. APIURL is the full api.php URL,
// e.g. https://mychurch.ccbchurch.com/api.php.
//
// IncludeGroupTypes narrows pulled groups to the named group types (for
// example just "Connect Group"); empty means all types. Inactive groups
// are always excluded unless IncludeInactive is set.
type Config struct {
	APIURL            string   `yaml:"api_url"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	IncludeGroupTypes []string `yaml:"include_group_types"`
	IncludeInactive   bool     `yaml:"include_inactive"`
}

// Client is the Church Community Builder API client.
type Client struct {
	apiURL            string
	username          string
	password          string
	includeGroupTypes map[string]bool
	includeInactive   bool
	httpClient        httpretry.HTTPDoer
}

// NewClient creates a CCB client authenticated with basic auth.
func NewClient(config Config) *Client {
	var types map[string]bool
	if len(config.IncludeGroupTypes) > 0 {
		types = make(map[string]bool, len(config.IncludeGroupTypes))
		for _, t := range config.IncludeGroupTypes {
			types[t] = true
		}
	}
	return &Client{
		apiURL:            config.APIURL,
		username:          config.Username,
		password:          config.Password,
		includeGroupTypes: types,
		includeInactive:   config.IncludeInactive,
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
func (c *Client) Vendor() string { return "ccb" }

// Pull fetches group or event profiles and flattens them into raw
// records. Nested elements like the main leader become nested maps so
// dotted lookups reach them.
func (c *Client) Pull(ctx context.Context, contentType domain.ContentType) ([]domain.RawRecord, error) {
	switch contentType {
	case domain.ContentTypeGroups:
		return c.pullGroups(ctx)
	case domain.ContentTypeEvents:
		return c.pullEvents(ctx)
	default:
		return nil, fmt.Errorf("ccb does not provide %s", contentType)
	}
}

// DiscoverFields returns the record keys the fixed CCB XML schema
// yields for a content type. No probe request is needed.
func (c *Client) DiscoverFields(_ context.Context, contentType domain.ContentType) ([]string, error) {
	switch contentType {
	case domain.ContentTypeGroups:
		return []string{
			"id", "name", "description", "image",
			"main_leader.full_name", "main_leader.email",
			"group_type", "department", "meeting_day", "meeting_time",
			"childcare_provided", "interaction_type", "membership_type",
			"address.city", "address.state", "address.zip",
		}, nil
	case domain.ContentTypeEvents:
		return []string{
			"id", "name", "description", "start_datetime", "end_datetime",
			"location", "recurrence_description", "image",
		}, nil
	default:
		return nil, fmt.Errorf("ccb does not provide %s", contentType)
	}
}

func (c *Client) pullGroups(ctx context.Context) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("srv", "group_profiles")
	params.Set("include_participants", "false")
	params.Set("include_image_link", "true")

	respBody, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	var envelope groupProfilesResponse
	if err := xml.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse group_profiles response: %w", err)
	}
	if envelope.Response.Errors != nil && len(envelope.Response.Errors.Errors) > 0 {
		return nil, fmt.Errorf("ccb API error: %s", envelope.Response.Errors.Errors[0].Message)
	}

	records := make([]domain.RawRecord, 0, len(envelope.Response.Groups.Groups))
	for _, g := range envelope.Response.Groups.Groups {
		if g.Inactive == "true" && !c.includeInactive {
			continue
		}
		if c.includeGroupTypes != nil && !c.includeGroupTypes[g.GroupType.Name] {
			continue
		}
		record := domain.RawRecord{
			"id":          g.ID,
			"name":        g.Name,
			"description": g.Description,
			"image":       g.Image,
			"main_leader": map[string]interface{}{
				"full_name": g.MainLeader.FullName,
				"email":     g.MainLeader.Email,
			},
			"group_type":         g.GroupType.Name,
			"department":         g.Department.Name,
			"meeting_day":        g.MeetingDay.Name,
			"meeting_time":       g.MeetingTime.Name,
			"childcare_provided": g.ChildcareProvided,
			"interaction_type":   g.InteractionType,
			"membership_type":    g.MembershipType.Name,
		}
		if len(g.Addresses.Addresses) > 0 {
			addr := g.Addresses.Addresses[0]
			record["address"] = map[string]interface{}{
				"city":  addr.City,
				"state": addr.State,
				"zip":   addr.Zip,
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) pullEvents(ctx context.Context) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("srv", "event_profiles")
	params.Set("include_image_link", "true")

	respBody, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	var envelope eventProfilesResponse
	if err := xml.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse event_profiles response: %w", err)
	}
	if envelope.Response.Errors != nil && len(envelope.Response.Errors.Errors) > 0 {
		return nil, fmt.Errorf("ccb API error: %s", envelope.Response.Errors.Errors[0].Message)
	}

	records := make([]domain.RawRecord, 0, len(envelope.Response.Events.Events))
	for _, e := range envelope.Response.Events.Events {
		records = append(records, domain.RawRecord{
			"id":                     e.ID,
			"name":                   e.Name,
			"description":            e.Description,
			"start_datetime":         e.StartDatetime,
			"end_datetime":           e.EndDatetime,
			"location":               e.Location.Name,
			"recurrence_description": e.RecurrenceDescription,
			"image":                  e.Image,
		})
	}
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

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
