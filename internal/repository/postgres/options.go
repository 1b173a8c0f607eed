package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// OptionsRepo persists the per-field option sets the mapper observed
// during a run. The admin UI reads them to offer filter dropdowns.
type OptionsRepo struct{ db *sql.DB }

// NewOptionsRepo creates a Postgres-backed options store.
func NewOptionsRepo(db *sql.DB) *OptionsRepo { return &OptionsRepo{db: db} }

// SaveCustomFieldOptions replaces the recorded options for a content
// type with the set observed by the latest run.
func (r *OptionsRepo) SaveCustomFieldOptions(ctx context.Context, ct domain.ContentType, options map[string][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin options save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_field_options WHERE content_type = $1`, string(ct)); err != nil {
		return fmt.Errorf("clear options: %w", err)
	}

	for slug, values := range options {
		for pos, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO custom_field_options (content_type, field_slug, option_value, position)
				VALUES ($1, $2, $3, $4)
			`, string(ct), slug, value, pos); err != nil {
				return fmt.Errorf("insert option %s=%q: %w", slug, value, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit options: %w", err)
	}
	return nil
}

// LoadCustomFieldOptions returns the options per field slug, in the
// order the source records produced them.
func (r *OptionsRepo) LoadCustomFieldOptions(ctx context.Context, ct domain.ContentType) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT field_slug, option_value
		FROM custom_field_options
		WHERE content_type = $1
		ORDER BY field_slug, position
	`, string(ct))
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var slug, value string
		if err := rows.Scan(&slug, &value); err != nil {
			return nil, fmt.Errorf("scan option row: %w", err)
		}
		out[slug] = append(out[slug], value)
	}
	return out, rows.Err()
}
