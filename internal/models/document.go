package models

import (
	"fmt"
	"time"
)

// Document is one uploaded file and its catalog metadata.
type Document struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	Month       int       `db:"month" json:"month"`
	Year        int       `db:"year" json:"year"`
	Description *string   `db:"description" json:"description,omitempty"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileType    *string   `db:"file_type" json:"file_type,omitempty"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	PageCount   *int      `db:"page_count" json:"page_count,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Kind classifies the document by its stored file type.
func (d Document) Kind() FileKind {
	if d.FileType == nil {
		return FileKindOther
	}
	return ParseFileKind(*d.FileType)
}

// Period renders "Maret 2024".
func (d Document) Period() string {
	return fmt.Sprintf("%s %d", MonthName(d.Month), d.Year)
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Category string
	Month    int
	Limit    int
}

// CategoryCount aggregates documents per category key.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Total    int    `db:"total" json:"total"`
}

// Pagination carries list totals; document listings are not paged, so Shown may be below Total only when filtered.
type Pagination struct {
	Total int `json:"total"`
	Shown int `json:"shown"`
}
