package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/infodoc-api/internal/models"
)

const documentColumns = `id, title, category, month, year, description, file_url, file_name, file_type,
       file_size, page_count, created_at`

// QueryObserver receives query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// DocumentRepository persists rows of the documents table.
type DocumentRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewDocumentRepository constructs the repository. observer may be nil.
func NewDocumentRepository(db *sqlx.DB, observer QueryObserver) *DocumentRepository {
	return &DocumentRepository{db: db, observer: observer}
}

// List returns documents ordered by period, newest first. Category and Month are optional filters.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	defer r.observe("documents.list", time.Now())

	builder := strings.Builder{}
	builder.WriteString("SELECT ")
	builder.WriteString(documentColumns)
	builder.WriteString(" FROM documents")

	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Month > 0 {
		args = append(args, filter.Month)
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY year DESC, month DESC, created_at DESC")
	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// ListRecent returns the most recently uploaded documents across categories.
func (r *DocumentRepository) ListRecent(ctx context.Context, limit int) ([]models.Document, error) {
	defer r.observe("documents.recent", time.Now())
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := "SELECT " + documentColumns + " FROM documents ORDER BY created_at DESC LIMIT $1"
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, limit); err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	return docs, nil
}

// CountByCategory returns per-category totals; categories without rows are absent.
func (r *DocumentRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	defer r.observe("documents.count_by_category", time.Now())
	const query = `SELECT category, COUNT(*) AS total FROM documents GROUP BY category`
	var rows []models.CategoryCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count documents by category: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}

// GetByID returns one document or sql.ErrNoRows.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	defer r.observe("documents.get", time.Now())
	query := "SELECT " + documentColumns + " FROM documents WHERE id = $1"
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts doc, assigning its ID and creation time when unset.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	defer r.observe("documents.create", time.Now())
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(id, title, category, month, year, description, file_url, file_name, file_type, file_size, page_count, created_at)
	VALUES (:id, :title, :category, :month, :year, :description, :file_url, :file_name, :file_type, :file_size, :page_count, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Delete removes a row, returning sql.ErrNoRows when nothing matched.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	defer r.observe("documents.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DocumentRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}
