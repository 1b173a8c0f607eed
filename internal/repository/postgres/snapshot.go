// Package postgres holds the PostgreSQL-backed repositories: sync
// snapshots, run history, the WordPress post ledger, and custom field
// options.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// SnapshotRepo implements snapshot.Store against PostgreSQL.
type SnapshotRepo struct{ db *sql.DB }

// NewSnapshotRepo creates a Postgres-backed snapshot store.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Load returns the committed hash per ChMS ID for a content type.
func (r *SnapshotRepo) Load(ctx context.Context, ct domain.ContentType) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chms_id, content_hash
		FROM sync_snapshots
		WHERE content_type = $1
	`, string(ct))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var chmsID, hash string
		if err := rows.Scan(&chmsID, &hash); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out[chmsID] = hash
	}
	return out, rows.Err()
}

// Replace swaps the snapshot wholesale inside one transaction so a
// failed commit leaves the previous snapshot intact.
func (r *SnapshotRepo) Replace(ctx context.Context, ct domain.ContentType, entries map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_snapshots WHERE content_type = $1`, string(ct)); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	for chmsID, hash := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_snapshots (content_type, chms_id, content_hash, updated_at)
			VALUES ($1, $2, $3, NOW())
		`, string(ct), chmsID, hash); err != nil {
			return fmt.Errorf("insert snapshot entry %s: %w", chmsID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
