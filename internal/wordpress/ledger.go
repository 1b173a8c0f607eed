package wordpress

import (
	"context"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// LedgerEntry records which WordPress post (and media attachment) a
// ChMS record currently owns.
type LedgerEntry struct {
	ContentType  domain.ContentType
	ChmsID       string
	PostID       int
	MediaID      int
	ThumbnailURL string
}

// Ledger persists the ChMS-ID-to-post mapping. Get returns (nil, nil)
// when no entry exists.
type Ledger interface {
	Get(ctx context.Context, ct domain.ContentType, chmsID string) (*LedgerEntry, error)
	Save(ctx context.Context, entry LedgerEntry) error
	Delete(ctx context.Context, ct domain.ContentType, chmsID string) error
}
