package dto

import (
	"io"
	"time"

	"github.com/noah-isme/infodoc-api/internal/models"
)

// UploadDocumentRequest is the metadata part of the multipart upload form.
type UploadDocumentRequest struct {
	SecretKey   string `form:"secretKey" json:"-"`
	Title       string `form:"title" json:"title" validate:"required,max=255"`
	Category    string `form:"category" json:"category" validate:"required,category"`
	Month       int    `form:"month" json:"month" validate:"required,min=1,max=12"`
	Year        int    `form:"year" json:"year" validate:"required,min=2000,max=2100"`
	Description string `form:"description" json:"description" validate:"max=2000"`
}

// UploadFile is the file part of an upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// UploadDocumentResponse mirrors the portal's upload reply.
type UploadDocumentResponse struct {
	Success  bool         `json:"success"`
	FileURL  string       `json:"file_url"`
	Document DocumentView `json:"document"`
}

// DeleteDocumentRequest is the JSON body of a delete call. DocumentID is only read when the path
// carries no id.
type DeleteDocumentRequest struct {
	SecretKey  string `json:"secretKey"`
	DocumentID string `json:"documentId"`
}

// DeleteDocumentResponse confirms a delete.
type DeleteDocumentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DocumentView decorates a document with presentation and routing.
type DocumentView struct {
	models.Document
	Kind              models.FileKindInfo `json:"kind"`
	Period            string              `json:"period"`
	ViewURL           string              `json:"view_url"`
	DownloadURL       string              `json:"download_url,omitempty"`
	DownloadExpiresAt *time.Time          `json:"download_expires_at,omitempty"`
}

// CategorySummary is a catalog entry with its document count.
type CategorySummary struct {
	models.Category
	Count int `json:"count"`
}

// HomeResponse feeds the landing screen.
type HomeResponse struct {
	Greeting   string            `json:"greeting"`
	Categories []CategorySummary `json:"categories"`
	Recent     []DocumentView    `json:"recent"`
}

// MonthOption is one entry of the month filter.
type MonthOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// CategoryDocumentsResponse is a category listing, optionally filtered by month.
type CategoryDocumentsResponse struct {
	Category        models.Category `json:"category"`
	Documents       []DocumentView  `json:"documents"`
	AvailableMonths []MonthOption   `json:"available_months"`
	SelectedMonth   int             `json:"selected_month,omitempty"`
	EmptyMessage    string          `json:"empty_message,omitempty"`
}

// DocumentRoute tells a client where to open a document.
type DocumentRoute struct {
	Route    models.ViewerRoute `json:"route"`
	Location string             `json:"location"`
}

// ViewerIndexRequest carries a page index for jump and flip commands.
type ViewerIndexRequest struct {
	Index *int `json:"index" binding:"required"`
}

// ExportFile is a rendered export.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
