package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infodoc-api/internal/models"
)

var documentRowColumns = []string{"id", "title", "category", "month", "year", "description", "file_url",
	"file_name", "file_type", "file_size", "page_count", "created_at"}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func newDocumentRepoMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, *recordingObserver) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	observer := &recordingObserver{}
	return NewDocumentRepository(sqlx.NewDb(db, "sqlmock"), observer), mock, observer
}

func TestDocumentRepositoryListOrdersByPeriod(t *testing.T) {
	repo, mock, observer := newDocumentRepoMock(t)

	now := time.Now()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-2", "Rilis April", "siaran_pers", 4, 2024, nil, "http://x/a.pdf", "a.pdf", "pdf", 1024, 3, now).
		AddRow("doc-1", "Rilis Maret", "siaran_pers", 3, 2024, "ringkas", "http://x/b.pptx", "b.pptx", "pptx", 2048, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE category = $1 ORDER BY year DESC, month DESC, created_at DESC")).
		WithArgs("siaran_pers").
		WillReturnRows(rows)

	docs, err := repo.List(context.Background(), models.DocumentFilter{Category: "siaran_pers"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-2", docs[0].ID)
	require.NotNil(t, docs[0].PageCount)
	assert.Equal(t, 3, *docs[0].PageCount)
	require.NotNil(t, docs[1].Description)
	assert.Equal(t, "ringkas", *docs[1].Description)
	assert.Equal(t, []string{"documents.list"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListMonthFilterAndLimit(t *testing.T) {
	repo, mock, _ := newDocumentRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE category = $1 AND month = $2 ORDER BY year DESC, month DESC, created_at DESC LIMIT 10")).
		WithArgs("arsip", 7).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	docs, err := repo.List(context.Background(), models.DocumentFilter{Category: "arsip", Month: 7, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRecentAndCounts(t *testing.T) {
	repo, mock, _ := newDocumentRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow("doc-9", "Memo", "arsip", 1, 2025, nil, "http://x/m.pdf", "m.pdf", "pdf", 10, 1, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT category, COUNT(*) AS total FROM documents GROUP BY category")).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
			AddRow("arsip", 4).
			AddRow("info_pegawai", 1))

	recent, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	counts, err := repo.CountByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"arsip": 4, "info_pegawai": 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCreateAssignsIdentity(t *testing.T) {
	repo, mock, _ := newDocumentRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pdf := "pdf"
	doc := &models.Document{Title: "Rilis", Category: "siaran_pers", Month: 3, Year: 2024,
		FileURL: "http://x/a.pdf", FileName: "a.pdf", FileType: &pdf, FileSize: 99}
	require.NoError(t, repo.Create(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetAndDelete(t *testing.T) {
	repo, mock, _ := newDocumentRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, repo.Delete(context.Background(), "doc-1"))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "doc-1"), sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
