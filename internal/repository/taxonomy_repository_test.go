package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/models"
)

func TestTaxonomyRepositoryCreateAndGetSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTaxonomyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	section := &models.Section{Key: "theory", LabelAR: "نظري", LabelEN: "Theory", IsEnabled: true, SortOrder: 1}
	require.NoError(t, repo.CreateSection(context.Background(), section))
	require.NotEmpty(t, section.ID)

	rows := sqlmock.NewRows([]string{"id", "key", "label_ar", "label_en", "is_enabled", "sort_order"}).
		AddRow(section.ID, "theory", "نظري", "Theory", true, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, key, label_ar, label_en, is_enabled, sort_order FROM sections WHERE id = $1")).
		WithArgs(section.ID).
		WillReturnRows(rows)

	found, err := repo.GetSection(context.Background(), section.ID)
	require.NoError(t, err)
	require.Equal(t, "theory", found.Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaxonomyRepositoryListCardsBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTaxonomyRepository(db)
	rows := sqlmock.NewRows([]string{"id", "key", "section_id", "label_ar", "label_en", "show_when_empty", "is_enabled", "sort_order"}).
		AddRow("card-1", "lectures", "sec-1", "محاضرات", "Lectures", false, true, 1).
		AddRow("card-2", "exams", nil, "اختبارات", "Exams", true, true, 2)
	mock.ExpectQuery(regexp.QuoteMeta("section_id = $1 OR section_id IS NULL")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	cards, err := repo.ListCards(context.Background(), "sec-1", false)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, "lectures", cards[0].Key)
	require.Nil(t, cards[1].SectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaxonomyRepositoryDisableSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTaxonomyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET is_enabled = FALSE")).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DisableSection(context.Background(), "sec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaxonomyRepositoryEnableSubjectSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTaxonomyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_section_enable")).
		WithArgs("subj-1", "sec-1", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.EnableSubjectSection(context.Background(), "subj-1", "sec-1", 2))

	rows := sqlmock.NewRows([]string{"id", "key", "label_ar", "label_en", "is_enabled", "sort_order"}).
		AddRow("sec-1", "theory", "نظري", "Theory", true, 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM subject_section_enable sse")).
		WithArgs("subj-1").
		WillReturnRows(rows)

	sections, err := repo.ListSubjectSections(context.Background(), "subj-1")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "theory", sections[0].Key)
	require.NoError(t, mock.ExpectationsWereMet())
}
