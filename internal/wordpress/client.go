// Package wordpress writes canonical items into a WordPress site over
// the REST API, tracking the mapping from ChMS IDs to post IDs in a
// ledger so upserts and removals stay idempotent.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cpconnect/chms-sync/internal/pkg/httpretry"
)

// Config holds the WordPress site URL and an application password.
type Config struct {
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
}

// Client is a thin WordPress REST API client covering the endpoints
// the sink needs: posts, media, and taxonomy terms.
type Client struct {
	baseURL     string
	username    string
	appPassword string
	httpClient  httpretry.HTTPDoer
}

// NewClient creates a WordPress REST client authenticated with an
// application password over basic auth.
func NewClient(config Config) *Client {
	return &Client{
		baseURL:     config.BaseURL,
		username:    config.Username,
		appPassword: config.AppPassword,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// PostPayload is the writable portion of a post.
type PostPayload struct {
	Title         string                 `json:"title,omitempty"`
	Content       string                 `json:"content,omitempty"`
	Excerpt       string                 `json:"excerpt,omitempty"`
	Status        string                 `json:"status,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	FeaturedMedia int                    `json:"featured_media,omitempty"`
	// Taxonomy term assignments keyed by the taxonomy's rest_base.
	Terms map[string][]int `json:"-"`
}

// post is the subset of a post response the sink cares about.
type post struct {
	ID int `json:"id"`
}

type term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type mediaItem struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// CreatePost creates a post under the given rest base and returns its ID.
func (c *Client) CreatePost(ctx context.Context, restBase string, payload PostPayload) (int, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/wp-json/wp/v2/"+restBase, encodePost(payload))
	if err != nil {
		return 0, fmt.Errorf("create %s post: %w", restBase, err)
	}
	var p post
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, fmt.Errorf("parse create response: %w", err)
	}
	return p.ID, nil
}

// UpdatePost updates an existing post in place.
func (c *Client) UpdatePost(ctx context.Context, restBase string, postID int, payload PostPayload) error {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/%s/%d", restBase, postID)
	if _, err := c.doJSON(ctx, http.MethodPost, endpoint, encodePost(payload)); err != nil {
		return fmt.Errorf("update %s post %d: %w", restBase, postID, err)
	}
	return nil
}

// DeletePost permanently deletes a post, skipping the trash.
func (c *Client) DeletePost(ctx context.Context, restBase string, postID int) error {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/%s/%d?force=true", restBase, postID)
	_, err := c.doJSON(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("delete %s post %d: %w", restBase, postID, err)
	}
	return nil
}

// EnsureTerm returns the ID of the named term in a taxonomy, creating
// it when it does not exist yet.
func (c *Client) EnsureTerm(ctx context.Context, taxonomy, name string) (int, error) {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/%s?search=%s", taxonomy, url.QueryEscape(name))
	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("search %s term %q: %w", taxonomy, name, err)
	}
	var terms []term
	if err := json.Unmarshal(body, &terms); err != nil {
		return 0, fmt.Errorf("parse term search response: %w", err)
	}
	for _, t := range terms {
		if t.Name == name {
			return t.ID, nil
		}
	}

	body, err = c.doJSON(ctx, http.MethodPost, "/wp-json/wp/v2/"+taxonomy, map[string]string{"name": name})
	if err != nil {
		return 0, fmt.Errorf("create %s term %q: %w", taxonomy, name, err)
	}
	var created term
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("parse term create response: %w", err)
	}
	return created.ID, nil
}

// UploadMedia sideloads an image into the media library and returns
// its attachment ID.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, data []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("create media request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	body, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("upload media %s: %w", filename, err)
	}
	var m mediaItem
	if err := json.Unmarshal(body, &m); err != nil {
		return 0, fmt.Errorf("parse media response: %w", err)
	}
	return m.ID, nil
}

// DeleteMedia permanently deletes a media attachment.
func (c *Client) DeleteMedia(ctx context.Context, mediaID int) error {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/media/%d?force=true", mediaID)
	if _, err := c.doJSON(ctx, http.MethodDelete, endpoint, nil); err != nil {
		return fmt.Errorf("delete media %d: %w", mediaID, err)
	}
	return nil
}

// encodePost flattens taxonomy assignments into the request body, where
// WordPress expects them keyed by rest_base alongside the fixed fields.
func encodePost(payload PostPayload) map[string]interface{} {
	body := map[string]interface{}{}
	if payload.Title != "" {
		body["title"] = payload.Title
	}
	if payload.Content != "" {
		body["content"] = payload.Content
	}
	if payload.Excerpt != "" {
		body["excerpt"] = payload.Excerpt
	}
	if payload.Status != "" {
		body["status"] = payload.Status
	}
	if len(payload.Meta) > 0 {
		body["meta"] = payload.Meta
	}
	if payload.FeaturedMedia > 0 {
		body["featured_media"] = payload.FeaturedMedia
	}
	for taxonomy, ids := range payload.Terms {
		body[taxonomy] = ids
	}
	return body
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
