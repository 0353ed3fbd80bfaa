package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/infodoc-api/internal/dto"
	"github.com/noah-isme/infodoc-api/internal/middleware"
	"github.com/noah-isme/infodoc-api/internal/models"
	"github.com/noah-isme/infodoc-api/internal/service"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
	"github.com/noah-isme/infodoc-api/pkg/response"
)

const secretHeader = "X-Secret-Key"

type documentService interface {
	Home(ctx context.Context) (*dto.HomeResponse, bool, error)
	Categories(ctx context.Context) ([]dto.CategorySummary, bool, error)
	CategoryDocuments(ctx context.Context, slug string, month int) (*dto.CategoryDocumentsResponse, *models.Pagination, bool, error)
	Describe(ctx context.Context, id string) (*dto.DocumentView, error)
	Route(ctx context.Context, id string) (*models.Document, dto.DocumentRoute, error)
	Upload(ctx context.Context, req dto.UploadDocumentRequest, file *dto.UploadFile) (*dto.UploadDocumentResponse, error)
	Delete(ctx context.Context, id, secret string) error
	Download(ctx context.Context, id, token string) (*service.DocumentDownload, error)
	Export(ctx context.Context, slug, format string) (*dto.ExportFile, error)
}

type viewerOpener interface {
	Open(ctx context.Context, documentID string, headless bool) (viewer.State, error)
	CloseDocument(documentID string) int
}

// DocumentHandler serves the catalog, upload and delete endpoints.
type DocumentHandler struct {
	service documentService
	viewers viewerOpener
}

// NewDocumentHandler constructs the handler. viewers may be nil, in which case PDFs are not opened.
func NewDocumentHandler(service documentService, viewers viewerOpener) *DocumentHandler {
	return &DocumentHandler{service: service, viewers: viewers}
}

// Home godoc
// @Summary Landing screen data
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /home [get]
func (h *DocumentHandler) Home(c *gin.Context) {
	resp, hit, err := h.service.Home(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, resp, nil, middleware.ResponseMeta(c))
}

// Categories godoc
// @Summary List categories with document counts
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *DocumentHandler) Categories(c *gin.Context) {
	resp, hit, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, resp, nil, middleware.ResponseMeta(c))
}

// CategoryDocuments godoc
// @Summary List documents in a category
// @Tags Documents
// @Produce json
// @Param slug path string true "Category slug"
// @Param month query int false "Month filter (1-12)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{slug}/documents [get]
func (h *DocumentHandler) CategoryDocuments(c *gin.Context) {
	month := 0
	if raw := strings.TrimSpace(c.Query("month")); raw != "" && raw != "all" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Bulan tidak valid"))
			return
		}
		month = parsed
	}
	resp, page, hit, err := h.service.CategoryDocuments(c.Request.Context(), c.Param("slug"), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, resp, page, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export a category's document index
// @Tags Documents
// @Produce text/csv
// @Produce application/pdf
// @Param slug path string true "Category slug"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /categories/{slug}/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("slug"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Get godoc
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	view, err := h.service.Describe(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Download godoc
// @Summary Download a document through a signed link
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	dl, err := h.service.Download(c.Request.Context(), c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.Content.Close()
	response.Stream(c, dl.Filename, dl.ContentType, dl.Size, dl.Content)
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param secretKey formData string true "Upload secret"
// @Param title formData string true "Title"
// @Param category formData string true "Category key"
// @Param month formData int true "Month (1-12)"
// @Param year formData int true "Year"
// @Param description formData string false "Description"
// @Param file formData file true "PDF, PPT or PPTX"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "File terlalu besar (maks 50MB)"))
			return
		}
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, ""))
		return
	}
	if req.SecretKey == "" {
		req.SecretKey = c.GetHeader(secretHeader)
	}

	var upload *dto.UploadFile
	if fileHeader, err := c.FormFile("file"); err == nil {
		src, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err, ""))
			return
		}
		defer src.Close()

		reader, ok := src.(io.ReadSeeker)
		if !ok {
			buf, readErr := io.ReadAll(src)
			if readErr != nil {
				response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, readErr, ""))
				return
			}
			reader = bytes.NewReader(buf)
		}
		upload = &dto.UploadFile{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Content:     reader,
		}
	}

	resp, err := h.service.Upload(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.DeleteDocumentRequest true "Secret"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	var req dto.DeleteDocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, ""))
			return
		}
	}
	if req.SecretKey == "" {
		req.SecretKey = c.GetHeader(secretHeader)
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		id = strings.TrimSpace(req.DocumentID)
	}

	if err := h.service.Delete(c.Request.Context(), id, req.SecretKey); err != nil {
		response.Error(c, err)
		return
	}
	if h.viewers != nil {
		h.viewers.CloseDocument(id)
	}
	response.JSON(c, http.StatusOK, dto.DeleteDocumentResponse{Success: true, Message: "Dokumen berhasil dihapus"}, nil)
}

// View godoc
// @Summary Open a document
// @Description PDFs open a flipbook session; other formats redirect to the office viewer.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param widget query bool false "Client renders a page-turn widget that confirms flips"
// @Success 201 {object} response.Envelope
// @Success 302
// @Failure 404 {object} response.Envelope
// @Router /view/{id} [get]
func (h *DocumentHandler) View(c *gin.Context) {
	doc, route, err := h.service.Route(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if route.Route != models.RouteFlipbook || h.viewers == nil {
		if route.Route == models.RouteFlipbook {
			response.JSON(c, http.StatusOK, route, nil)
			return
		}
		c.Redirect(http.StatusFound, route.Location)
		return
	}
	widget, _ := strconv.ParseBool(c.DefaultQuery("widget", "false"))
	state, err := h.viewers.Open(c.Request.Context(), doc.ID, !widget)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}
