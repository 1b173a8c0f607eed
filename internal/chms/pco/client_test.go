package pco

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, AppID: "app", AppSecret: "secret"})
	client.SetHTTPClient(server.Client())
	return client
}

func TestPull_Groups_Paginated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/v2/groups", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "app", user)
		assert.Equal(t, "secret", pass)

		offset := r.URL.Query().Get("offset")
		if offset == "" {
			fmt.Fprint(w, `{
				"data": [{"id": "10", "type": "Group", "attributes": {"name": "Alpha", "schedule": "Tuesdays"}}],
				"meta": {"total_count": 2, "count": 1, "next": {"offset": 1}}
			}`)
			return
		}
		assert.Equal(t, "1", offset)
		fmt.Fprint(w, `{
			"data": [{"id": "11", "type": "Group", "attributes": {"name": "Bravo"}}],
			"meta": {"total_count": 2, "count": 1}
		}`)
	})

	records, err := client.Pull(context.Background(), domain.ContentTypeGroups)
	require.NoError(t, err)
	require.Len(t, records, 2)

	id, _ := records[0].LookupString("id")
	name, _ := records[0].LookupString("name")
	assert.Equal(t, "10", id)
	assert.Equal(t, "Alpha", name)

	id, _ = records[1].LookupString("id")
	assert.Equal(t, "11", id)
}

func TestPull_UnsupportedContentType(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Pull(context.Background(), domain.ContentTypeLocations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not provide")
}

func TestDiscoverFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `{
			"data": [{"id": "7", "type": "Event", "attributes": {"name": "Picnic", "starts_at": "2026-09-05T10:00:00Z"}}],
			"meta": {"total_count": 40, "count": 1}
		}`)
	})

	fields, err := client.DiscoverFields(context.Background(), domain.ContentTypeEvents)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "starts_at"}, fields)
}

func TestPull_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"detail":"bad credentials"}]}`)
	})

	_, err := client.Pull(context.Background(), domain.ContentTypeEvents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
