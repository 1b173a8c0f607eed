package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
)

func testItem() *domain.CanonicalItem {
	item := domain.NewCanonicalItem("42")
	item.Fields["post_title"] = "Youth Group"
	item.Fields["start"] = time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	item.Fields["capacity"] = int64(25)
	item.AddTerm("cp_group_type", "Connect Group")
	item.ThumbnailURL = "https://chms.example.com/img/42.jpg"
	return item
}

func TestHash_StableAcrossCalls(t *testing.T) {
	item := testItem()
	assert.Equal(t, Hash(item), Hash(item))
}

func TestHash_IndependentOfFieldInsertionOrder(t *testing.T) {
	a := domain.NewCanonicalItem("1")
	a.Fields["alpha"] = "x"
	a.Fields["beta"] = "y"

	b := domain.NewCanonicalItem("1")
	b.Fields["beta"] = "y"
	b.Fields["alpha"] = "x"

	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_ChangesWhenAnyValueChanges(t *testing.T) {
	base := Hash(testItem())

	renamed := testItem()
	renamed.Fields["post_title"] = "Youth Group (Updated)"
	assert.NotEqual(t, base, Hash(renamed))

	reterm := testItem()
	reterm.AddTerm("cp_group_type", "Small Group")
	assert.NotEqual(t, base, Hash(reterm))

	rethumb := testItem()
	rethumb.ThumbnailURL = "https://chms.example.com/img/42-v2.jpg"
	assert.NotEqual(t, base, Hash(rethumb))
}

func TestHashWithSalt(t *testing.T) {
	item := testItem()
	assert.NotEqual(t, Hash(item), HashWithSalt(item, "run-123"))
	assert.Equal(t, HashWithSalt(item, "s"), HashWithSalt(item, "s"))
}

func TestMemoryStore_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	loaded, err := store.Load(ctx, domain.ContentTypeEvents)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.Replace(ctx, domain.ContentTypeEvents, map[string]string{"42": "h1"}))
	require.NoError(t, store.Replace(ctx, domain.ContentTypeGroups, map[string]string{"7": "h2"}))

	loaded, err = store.Load(ctx, domain.ContentTypeEvents)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"42": "h1"}, loaded)

	// Replace is a swap, not a merge.
	require.NoError(t, store.Replace(ctx, domain.ContentTypeEvents, map[string]string{"43": "h3"}))
	loaded, _ = store.Load(ctx, domain.ContentTypeEvents)
	assert.Equal(t, map[string]string{"43": "h3"}, loaded)

	// Partitions are independent.
	groups, _ := store.Load(ctx, domain.ContentTypeGroups)
	assert.Equal(t, map[string]string{"7": "h2"}, groups)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Replace(ctx, domain.ContentTypeEvents, map[string]string{"42": "h1"}))

	loaded, _ := store.Load(ctx, domain.ContentTypeEvents)
	loaded["42"] = "tampered"

	again, _ := store.Load(ctx, domain.ContentTypeEvents)
	assert.Equal(t, "h1", again["42"])
}
