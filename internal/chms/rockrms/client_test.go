package rockrms

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

	client := NewClient(Config{BaseURL: server.URL, APIKey: "rock-key"})
	client.SetHTTPClient(server.Client())
	return client
}

func TestPull_Groups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Groups", r.URL.Path)
		assert.Equal(t, "rock-key", r.Header.Get("Authorization-Token"))
		assert.Equal(t, "IsActive eq true and IsPublic eq true", r.URL.Query().Get("$filter"))

		fmt.Fprint(w, `[
			{"Id": 31, "Name": "Foster Care Circle", "Description": "Monthly support dinner.", "IsActive": true},
			{"Id": 32, "Name": "Men's Breakfast", "IsActive": true}
		]`)
	})

	records, err := client.Pull(context.Background(), domain.ContentTypeGroups)
	require.NoError(t, err)
	require.Len(t, records, 2)

	name, _ := records[0].LookupString("Name")
	assert.Equal(t, "Foster Care Circle", name)
	assert.Equal(t, "31", domain.Stringify(records[0]["Id"]))
}

func TestPull_FilterOverride(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CampusId eq 2", r.URL.Query().Get("$filter"))
		fmt.Fprint(w, `[]`)
	})
	client.filters = map[string]string{"groups": "CampusId eq 2"}

	records, err := client.Pull(context.Background(), domain.ContentTypeGroups)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPull_UnsupportedContentType(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Pull(context.Background(), domain.ContentType("sermons"))
	require.Error(t, err)
}

func TestDiscoverFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("$top"))
		fmt.Fprint(w, `[{"Id": 1, "Name": "Main Campus", "ShortCode": "MAIN"}]`)
	})

	fields, err := client.DiscoverFields(context.Background(), domain.ContentTypeLocations)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Name", "ShortCode"}, fields)
}

func TestPull_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Pull(context.Background(), domain.ContentTypeEvents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
