package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/wordpress"
)

func TestPostLedgerRepo_GetMissingReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT post_id, media_id").
		WithArgs("groups", "g-404").
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "media_id", "thumbnail_url"}))

	repo := NewPostLedgerRepo(db)
	entry, err := repo.Get(context.Background(), domain.ContentTypeGroups, "g-404")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestPostLedgerRepo_GetAndSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO wp_post_ledger").
		WithArgs("groups", "g-1", 910, 55, "https://chms.example.org/a.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT post_id, media_id").
		WithArgs("groups", "g-1").
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "media_id", "thumbnail_url"}).
			AddRow(910, 55, "https://chms.example.org/a.jpg"))

	repo := NewPostLedgerRepo(db)
	require.NoError(t, repo.Save(context.Background(), wordpress.LedgerEntry{
		ContentType:  domain.ContentTypeGroups,
		ChmsID:       "g-1",
		PostID:       910,
		MediaID:      55,
		ThumbnailURL: "https://chms.example.org/a.jpg",
	}))

	entry, err := repo.Get(context.Background(), domain.ContentTypeGroups, "g-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 910, entry.PostID)
	assert.Equal(t, 55, entry.MediaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostLedgerRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM wp_post_ledger").
		WithArgs("events", "e-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostLedgerRepo(db)
	require.NoError(t, repo.Delete(context.Background(), domain.ContentTypeEvents, "e-9"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
