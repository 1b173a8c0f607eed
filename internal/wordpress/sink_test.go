package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
)

type memLedger struct {
	entries map[string]LedgerEntry
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]LedgerEntry{}}
}

func (l *memLedger) key(ct domain.ContentType, chmsID string) string {
	return string(ct) + "/" + chmsID
}

func (l *memLedger) Get(_ context.Context, ct domain.ContentType, chmsID string) (*LedgerEntry, error) {
	entry, ok := l.entries[l.key(ct, chmsID)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (l *memLedger) Save(_ context.Context, entry LedgerEntry) error {
	l.entries[l.key(entry.ContentType, entry.ChmsID)] = entry
	return nil
}

func (l *memLedger) Delete(_ context.Context, ct domain.ContentType, chmsID string) error {
	delete(l.entries, l.key(ct, chmsID))
	return nil
}

type fakeThumbs struct {
	prepared int
}

func (f *fakeThumbs) Prepare(_ context.Context, sourceURL string) (string, string, []byte, error) {
	f.prepared++
	return "thumb.jpg", "image/jpeg", []byte("jpeg-bytes"), nil
}

func newTestSink(t *testing.T, handler http.Handler, ledger Ledger, thumbs Thumbnails) *Sink {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, Username: "sync", AppPassword: "pw"})
	client.SetHTTPClient(server.Client())
	return NewSink(client, ledger, thumbs)
}

func groupItem(chmsID, title string) *domain.CanonicalItem {
	item := domain.NewCanonicalItem(chmsID)
	item.Fields[FieldTitle] = title
	item.Fields[FieldContent] = "Meets weekly."
	item.Fields["cp_connect_meeting_day"] = "Sunday"
	return item
}

func TestUpsert_CreatesNewPost(t *testing.T) {
	ledger := newMemLedger()
	var body map[string]interface{}

	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/wp-json/wp/v2/groups", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sync", user)
		assert.Equal(t, "pw", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"id": 910}`)
	}), ledger, nil)

	postID, err := sink.Upsert(context.Background(), domain.ContentTypeGroups, groupItem("g-1", "Alpha"))
	require.NoError(t, err)
	assert.Equal(t, "910", postID)

	assert.Equal(t, "Alpha", body["title"])
	assert.Equal(t, "publish", body["status"])
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, "Sunday", meta["cp_connect_meeting_day"])

	entry, err := ledger.Get(context.Background(), domain.ContentTypeGroups, "g-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 910, entry.PostID)
}

func TestUpsert_UpdatesExistingPost(t *testing.T) {
	ledger := newMemLedger()
	require.NoError(t, ledger.Save(context.Background(), LedgerEntry{
		ContentType: domain.ContentTypeGroups, ChmsID: "g-1", PostID: 910,
	}))

	var path string
	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"id": 910}`)
	}), ledger, nil)

	postID, err := sink.Upsert(context.Background(), domain.ContentTypeGroups, groupItem("g-1", "Alpha v2"))
	require.NoError(t, err)
	assert.Equal(t, "910", postID)
	assert.Equal(t, "/wp-json/wp/v2/groups/910", path)
}

func TestUpsert_EnsuresTaxonomyTerms(t *testing.T) {
	ledger := newMemLedger()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/cp_ministry", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if strings.Contains(r.URL.RawQuery, "Youth") {
				fmt.Fprint(w, `[{"id": 7, "name": "Youth"}]`)
				return
			}
			fmt.Fprint(w, `[]`)
			return
		}
		// Unknown term gets created.
		fmt.Fprint(w, `{"id": 8, "name": "Worship"}`)
	})
	var body map[string]interface{}
	mux.HandleFunc("/wp-json/wp/v2/groups", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"id": 20}`)
	})

	sink := newTestSink(t, mux, ledger, nil)

	item := groupItem("g-2", "Bravo")
	item.AddTerm("cp_ministry", "Youth")
	item.AddTerm("cp_ministry", "Worship")

	_, err := sink.Upsert(context.Background(), domain.ContentTypeGroups, item)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(7), float64(8)}, body["cp_ministry"])
}

func TestUpsert_SideloadsThumbnailOnce(t *testing.T) {
	ledger := newMemLedger()
	thumbs := &fakeThumbs{}
	uploads := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/media", func(w http.ResponseWriter, r *http.Request) {
		uploads++
		assert.Contains(t, r.Header.Get("Content-Disposition"), "thumb.jpg")
		fmt.Fprint(w, `{"id": 55, "source_url": "https://wp.example.org/thumb.jpg"}`)
	})
	var lastBody map[string]interface{}
	mux.HandleFunc("/wp-json/wp/v2/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 31}`)
	})
	mux.HandleFunc("/wp-json/wp/v2/events/31", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		fmt.Fprint(w, `{"id": 31}`)
	})

	sink := newTestSink(t, mux, ledger, thumbs)

	item := domain.NewCanonicalItem("e-1")
	item.Fields[FieldTitle] = "Fall Kickoff"
	item.ThumbnailURL = "https://chms.example.org/event.jpg"

	_, err := sink.Upsert(context.Background(), domain.ContentTypeEvents, item)
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)

	// Same thumbnail URL on the next upsert reuses the attachment.
	_, err = sink.Upsert(context.Background(), domain.ContentTypeEvents, item)
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 1, thumbs.prepared)
	assert.Equal(t, float64(55), lastBody["featured_media"])
}

func TestRemove_DeletesPostMediaAndLedger(t *testing.T) {
	ledger := newMemLedger()
	require.NoError(t, ledger.Save(context.Background(), LedgerEntry{
		ContentType: domain.ContentTypeEvents, ChmsID: "e-9", PostID: 40, MediaID: 60,
	}))

	var deleted []string
	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "true", r.URL.Query().Get("force"))
		deleted = append(deleted, r.URL.Path)
		fmt.Fprint(w, `{"deleted": true}`)
	}), ledger, nil)

	require.NoError(t, sink.Remove(context.Background(), domain.ContentTypeEvents, "e-9"))
	assert.Equal(t, []string{"/wp-json/wp/v2/events/40", "/wp-json/wp/v2/media/60"}, deleted)

	entry, err := ledger.Get(context.Background(), domain.ContentTypeEvents, "e-9")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRemove_NoLedgerEntryIsNoop(t *testing.T) {
	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}), newMemLedger(), nil)

	require.NoError(t, sink.Remove(context.Background(), domain.ContentTypeEvents, "ghost"))
}
