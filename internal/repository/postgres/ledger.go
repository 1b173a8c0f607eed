package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/wordpress"
)

// PostLedgerRepo implements wordpress.Ledger against PostgreSQL.
type PostLedgerRepo struct{ db *sql.DB }

// NewPostLedgerRepo creates a Postgres-backed post ledger.
func NewPostLedgerRepo(db *sql.DB) *PostLedgerRepo { return &PostLedgerRepo{db: db} }

// Get returns the ledger entry for a ChMS ID, or (nil, nil) when the
// record has never been synced.
func (r *PostLedgerRepo) Get(ctx context.Context, ct domain.ContentType, chmsID string) (*wordpress.LedgerEntry, error) {
	entry := &wordpress.LedgerEntry{ContentType: ct, ChmsID: chmsID}
	err := r.db.QueryRowContext(ctx, `
		SELECT post_id, media_id, COALESCE(thumbnail_url,'')
		FROM wp_post_ledger
		WHERE content_type = $1 AND chms_id = $2
	`, string(ct), chmsID).Scan(&entry.PostID, &entry.MediaID, &entry.ThumbnailURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

// Save upserts the ledger entry keyed by content type and ChMS ID.
func (r *PostLedgerRepo) Save(ctx context.Context, entry wordpress.LedgerEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wp_post_ledger (content_type, chms_id, post_id, media_id, thumbnail_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (content_type, chms_id)
		DO UPDATE SET post_id = $3, media_id = $4, thumbnail_url = $5, updated_at = NOW()
	`, string(entry.ContentType), entry.ChmsID, entry.PostID, entry.MediaID, entry.ThumbnailURL)
	if err != nil {
		return fmt.Errorf("save ledger entry: %w", err)
	}
	return nil
}

// Delete removes the ledger entry after the post is gone.
func (r *PostLedgerRepo) Delete(ctx context.Context, ct domain.ContentType, chmsID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM wp_post_ledger WHERE content_type = $1 AND chms_id = $2
	`, string(ct), chmsID)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}
