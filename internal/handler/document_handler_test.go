package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infodoc-api/internal/dto"
	"github.com/noah-isme/infodoc-api/internal/middleware"
	"github.com/noah-isme/infodoc-api/internal/models"
	"github.com/noah-isme/infodoc-api/internal/service"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
)

type documentServiceMock struct {
	home       *dto.HomeResponse
	listing    *dto.CategoryDocumentsResponse
	page       *models.Pagination
	month      int
	doc        *models.Document
	route      dto.DocumentRoute
	routeErr   error
	uploadReq  dto.UploadDocumentRequest
	uploadFile *dto.UploadFile
	uploadBody []byte
	uploadErr  error
	deletedID  string
	secret     string
	deleteErr  error
	export     *dto.ExportFile
}

func (m *documentServiceMock) Home(ctx context.Context) (*dto.HomeResponse, bool, error) {
	return m.home, true, nil
}

func (m *documentServiceMock) Categories(ctx context.Context) ([]dto.CategorySummary, bool, error) {
	return nil, false, nil
}

func (m *documentServiceMock) CategoryDocuments(ctx context.Context, slug string, month int) (*dto.CategoryDocumentsResponse, *models.Pagination, bool, error) {
	m.month = month
	if m.listing == nil {
		return nil, nil, false, appErrors.Clone(appErrors.ErrNotFound, "Kategori tidak ditemukan")
	}
	return m.listing, m.page, false, nil
}

func (m *documentServiceMock) Describe(ctx context.Context, id string) (*dto.DocumentView, error) {
	return &dto.DocumentView{Document: *m.doc}, nil
}

func (m *documentServiceMock) Route(ctx context.Context, id string) (*models.Document, dto.DocumentRoute, error) {
	return m.doc, m.route, m.routeErr
}

func (m *documentServiceMock) Upload(ctx context.Context, req dto.UploadDocumentRequest, file *dto.UploadFile) (*dto.UploadDocumentResponse, error) {
	m.uploadReq = req
	m.uploadFile = file
	if file != nil {
		m.uploadBody, _ = io.ReadAll(file.Content)
	}
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &dto.UploadDocumentResponse{Success: true, FileURL: "https://files.example.com/x.pdf"}, nil
}

func (m *documentServiceMock) Delete(ctx context.Context, id, secret string) error {
	m.deletedID, m.secret = id, secret
	return m.deleteErr
}

func (m *documentServiceMock) Download(ctx context.Context, id, token string) (*service.DocumentDownload, error) {
	return &service.DocumentDownload{
		Content:     io.NopCloser(strings.NewReader("%PDF")),
		Filename:    "memo.pdf",
		ContentType: "application/pdf",
		Size:        4,
	}, nil
}

func (m *documentServiceMock) Export(ctx context.Context, slug, format string) (*dto.ExportFile, error) {
	return m.export, nil
}

type viewerOpenerMock struct {
	headless bool
	closed   []string
}

func (v *viewerOpenerMock) Open(ctx context.Context, documentID string, headless bool) (viewer.State, error) {
	v.headless = headless
	return viewer.State{ID: "sess-1", DocumentID: documentID, Status: viewer.StatusLoading}, nil
}

func (v *viewerOpenerMock) CloseDocument(documentID string) int {
	v.closed = append(v.closed, documentID)
	return 1
}

func newDocumentRouter(svc *documentServiceMock, viewers viewerOpener) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDocumentHandler(svc, viewers)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	api := r.Group("/api/v1")
	api.GET("/home", h.Home)
	api.GET("/categories/:slug/documents", h.CategoryDocuments)
	api.GET("/categories/:slug/export", h.Export)
	api.GET("/documents/:id/download", h.Download)
	api.POST("/documents", h.Upload)
	api.DELETE("/documents/:id", h.Delete)
	r.GET("/view/:id", h.View)
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestDocumentHandlerHomeCarriesCacheMeta(t *testing.T) {
	svc := &documentServiceMock{home: &dto.HomeResponse{Greeting: "Selamat Pagi"}}
	r := newDocumentRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/home", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	env := decodeEnvelope(t, w)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(env["meta"], &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestDocumentHandlerCategoryDocumentsMonth(t *testing.T) {
	svc := &documentServiceMock{
		listing: &dto.CategoryDocumentsResponse{Documents: []dto.DocumentView{}},
		page:    &models.Pagination{Total: 4, Shown: 1},
	}
	r := newDocumentRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/arsip/documents?month=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.month)
	assert.JSONEq(t, `{"total":4,"shown":1}`, string(decodeEnvelope(t, w)["pagination"]))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/arsip/documents?month=all", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.month)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/arsip/documents?month=maret", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.listing = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/unknown/documents", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentHandlerUploadMultipart(t *testing.T) {
	svc := &documentServiceMock{}
	r := newDocumentRouter(svc, nil)

	body, contentType := multipartUpload(t, map[string]string{
		"secretKey": "rahasia",
		"title":     "Laporan Maret",
		"category":  "laporan_bulanan",
		"month":     "3",
		"year":      "2024",
	}, "laporan.pdf", "application/pdf", []byte("%PDF-1.7"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "rahasia", svc.uploadReq.SecretKey)
	assert.Equal(t, 3, svc.uploadReq.Month)
	assert.Equal(t, 2024, svc.uploadReq.Year)
	require.NotNil(t, svc.uploadFile)
	assert.Equal(t, "laporan.pdf", svc.uploadFile.Name)
	assert.Equal(t, "application/pdf", svc.uploadFile.ContentType)
	assert.Equal(t, "%PDF-1.7", string(svc.uploadBody))
}

func TestDocumentHandlerUploadWithoutFileReachesService(t *testing.T) {
	svc := &documentServiceMock{uploadErr: appErrors.ErrValidation}
	r := newDocumentRouter(svc, nil)

	body, contentType := multipartUpload(t, map[string]string{"title": "x"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(secretHeader, "rahasia")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.uploadFile)
	assert.Equal(t, "rahasia", svc.uploadReq.SecretKey)

	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Data tidak lengkap", env.Error.Message)
}

func TestDocumentHandlerDeleteClosesViewers(t *testing.T) {
	svc := &documentServiceMock{}
	viewers := &viewerOpenerMock{}
	r := newDocumentRouter(svc, viewers)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", strings.NewReader(`{"secretKey":"rahasia"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc-1", svc.deletedID)
	assert.Equal(t, "rahasia", svc.secret)
	assert.Equal(t, []string{"doc-1"}, viewers.closed)
}

func TestDocumentHandlerDeleteFailureKeepsViewers(t *testing.T) {
	svc := &documentServiceMock{deleteErr: appErrors.Clone(appErrors.ErrUnauthorized, "Secret key salah")}
	viewers := &viewerOpenerMock{}
	r := newDocumentRouter(svc, viewers)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", strings.NewReader(`{"secretKey":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, viewers.closed)
}

func TestDocumentHandlerViewRoutes(t *testing.T) {
	doc := &models.Document{ID: "doc-1", FileURL: "https://files.example.com/a.pptx"}
	svc := &documentServiceMock{
		doc:   doc,
		route: dto.DocumentRoute{Route: models.RouteOfficeViewer, Location: "https://view.officeapps.live.com/op/view.aspx?src=x"},
	}
	viewers := &viewerOpenerMock{}
	r := newDocumentRouter(svc, viewers)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view/doc-1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://view.officeapps.live.com/op/view.aspx?src=x", w.Header().Get("Location"))

	svc.route = dto.DocumentRoute{Route: models.RouteFlipbook, Location: "/view/doc-1"}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view/doc-1", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, viewers.headless)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view/doc-1?widget=true", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, viewers.headless)

	svc.routeErr = appErrors.ErrNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandlerDownloadAndExportAttachments(t *testing.T) {
	svc := &documentServiceMock{export: &dto.ExportFile{Filename: "arsip.csv", ContentType: "text/csv; charset=utf-8", Content: []byte("a,b\n")}}
	r := newDocumentRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download?token=t", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF", w.Body.String())
	assert.Equal(t, `attachment; filename="memo.pdf"`, w.Header().Get("Content-Disposition"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/arsip/export?format=csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a,b\n", w.Body.String())
	assert.Equal(t, `attachment; filename="arsip.csv"`, w.Header().Get("Content-Disposition"))
}
