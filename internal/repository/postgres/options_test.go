package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpconnect/chms-sync/internal/domain"
)

func TestOptionsRepo_SaveReplacesExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM custom_field_options").
		WithArgs("groups").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO custom_field_options").
		WithArgs("groups", "cp_connect_meeting_day", "Sunday", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO custom_field_options").
		WithArgs("groups", "cp_connect_meeting_day", "Wednesday", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewOptionsRepo(db)
	err = repo.SaveCustomFieldOptions(context.Background(), domain.ContentTypeGroups, map[string][]string{
		"cp_connect_meeting_day": {"Sunday", "Wednesday"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionsRepo_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT field_slug, option_value").
		WithArgs("groups").
		WillReturnRows(sqlmock.NewRows([]string{"field_slug", "option_value"}).
			AddRow("cp_connect_group_focus", "Prayer").
			AddRow("cp_connect_group_focus", "Service").
			AddRow("cp_connect_meeting_day", "Sunday"))

	repo := NewOptionsRepo(db)
	got, err := repo.LoadCustomFieldOptions(context.Background(), domain.ContentTypeGroups)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"cp_connect_group_focus": {"Prayer", "Service"},
		"cp_connect_meeting_day": {"Sunday"},
	}, got)
}
