package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/infodoc-api/internal/dto"
	"github.com/noah-isme/infodoc-api/internal/models"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
	"github.com/noah-isme/infodoc-api/pkg/export"
	"github.com/noah-isme/infodoc-api/pkg/storage"
)

const (
	mimePDF  = "application/pdf"
	mimePPT  = "application/vnd.ms-powerpoint"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	recentDocumentLimit = 5
)

type documentStore interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	ListRecent(ctx context.Context, limit int) ([]models.Document, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
}

type documentObjects interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, storage.ObjectInfo, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
	PathFromURL(rawURL string) (string, error)
}

type secretVerifier interface {
	Verify(candidate string) bool
}

type pdfInspector interface {
	PageCount(rs io.ReadSeeker) (int, error)
}

type downloadSigner interface {
	Generate(documentID, objectPath string) (string, time.Time, error)
	Parse(token string) (documentID, objectPath string, expiresAt time.Time, err error)
}

type cleanupScheduler interface {
	ScheduleObjectDelete(path string, cause error)
	ScheduleRowDelete(id string, cause error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// DocumentServiceConfig holds limits and routing settings.
type DocumentServiceConfig struct {
	MaxFileSize     int64
	AllowedMIMEs    []string
	APIPrefix       string
	OfficeViewerURL string
	Location        *time.Location
}

// DocumentDownload is an open object ready to stream.
type DocumentDownload struct {
	Content     io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// DocumentService implements the portal's catalog operations over the documents table and the
// object store.
type DocumentService struct {
	repo      documentStore
	objects   documentObjects
	verifier  secretVerifier
	inspector pdfInspector
	signer    downloadSigner
	cleanup   cleanupScheduler
	cache     *CacheService
	metrics   *MetricsService
	exporters map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	mimeSet   map[string]struct{}
	now       func() time.Time
}

// DocumentServiceDeps groups collaborators; signer, cleanup, cache and metrics may be nil.
type DocumentServiceDeps struct {
	Repo      documentStore
	Objects   documentObjects
	Verifier  secretVerifier
	Inspector pdfInspector
	Signer    downloadSigner
	Cleanup   cleanupScheduler
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(deps DocumentServiceDeps, cfg DocumentServiceConfig) *DocumentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{mimePDF, mimePPT, mimePPTX}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.OfficeViewerURL == "" {
		cfg.OfficeViewerURL = "https://view.officeapps.live.com/op/view.aspx"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	svc := &DocumentService{
		repo:      deps.Repo,
		objects:   deps.Objects,
		verifier:  deps.Verifier,
		inspector: deps.Inspector,
		signer:    deps.Signer,
		cleanup:   deps.Cleanup,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
		now:       time.Now,
		exporters: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
	}
	svc.validator.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.LookupCategory(fl.Field().String())
		return ok
	})
	return svc
}

type homeData struct {
	Counts map[string]int    `json:"counts"`
	Recent []models.Document `json:"recent"`
}

// Home returns category counts, the active categories and the most recent uploads.
func (s *DocumentService) Home(ctx context.Context) (*dto.HomeResponse, bool, error) {
	data, hit, err := cached(ctx, s.cache, cacheKeyHome, s.loadHome)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.HomeResponse{Greeting: greeting(s.now().In(s.cfg.Location))}
	for _, cat := range models.Categories() {
		count := data.Counts[cat.Key]
		if count > 0 || cat.Key == models.DefaultCategoryKey {
			resp.Categories = append(resp.Categories, dto.CategorySummary{Category: cat, Count: count})
		}
	}
	resp.Recent = make([]dto.DocumentView, 0, len(data.Recent))
	for _, doc := range data.Recent {
		resp.Recent = append(resp.Recent, s.view(doc, false))
	}
	return resp, hit, nil
}

func (s *DocumentService) loadHome(ctx context.Context) (homeData, error) {
	var data homeData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.repo.CountByCategory(gctx)
		data.Counts = counts
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.ListRecent(gctx, recentDocumentLimit)
		data.Recent = recent
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load home failed", zap.Error(err))
		return homeData{}, appErrors.WrapAs(appErrors.ErrDatabase, err, "")
	}
	return data, nil
}

// Categories returns the full catalog with counts, including empty categories.
func (s *DocumentService) Categories(ctx context.Context) ([]dto.CategorySummary, bool, error) {
	counts, hit, err := cached(ctx, s.cache, cacheKeyCategories, func(ctx context.Context) (map[string]int, error) {
		counts, err := s.repo.CountByCategory(ctx)
		if err != nil {
			s.logger.Error("count categories failed", zap.Error(err))
			return nil, appErrors.WrapAs(appErrors.ErrDatabase, err, "")
		}
		return counts, nil
	})
	if err != nil {
		return nil, false, err
	}
	catalog := models.Categories()
	out := make([]dto.CategorySummary, 0, len(catalog))
	for _, cat := range catalog {
		out = append(out, dto.CategorySummary{Category: cat, Count: counts[cat.Key]})
	}
	return out, hit, nil
}

// ListDocuments returns every document of a category ordered year desc, month desc, created_at desc.
func (s *DocumentService) ListDocuments(ctx context.Context, categoryKey string) ([]models.Document, bool, error) {
	return cached(ctx, s.cache, cacheKeyDocumentsPref+categoryKey, func(ctx context.Context) ([]models.Document, error) {
		docs, err := s.repo.List(ctx, models.DocumentFilter{Category: categoryKey})
		if err != nil {
			s.logger.Error("list documents failed", zap.String("category", categoryKey), zap.Error(err))
			return nil, appErrors.WrapAs(appErrors.ErrDatabase, err, "")
		}
		if docs == nil {
			docs = []models.Document{}
		}
		return docs, nil
	})
}

// CategoryDocuments resolves a slug and lists its documents, optionally keeping only one month.
// Available months always come from the unfiltered list.
func (s *DocumentService) CategoryDocuments(ctx context.Context, slug string, month int) (*dto.CategoryDocumentsResponse, *models.Pagination, bool, error) {
	cat, ok := models.CategoryFromSlug(slug)
	if !ok {
		return nil, nil, false, appErrors.Clone(appErrors.ErrNotFound, "Kategori tidak ditemukan")
	}
	if month < 0 || month > 12 {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "Bulan tidak valid")
	}
	docs, hit, err := s.ListDocuments(ctx, cat.Key)
	if err != nil {
		return nil, nil, false, err
	}

	resp := &dto.CategoryDocumentsResponse{
		Category:        cat,
		Documents:       make([]dto.DocumentView, 0, len(docs)),
		AvailableMonths: availableMonths(docs),
		SelectedMonth:   month,
	}
	for _, doc := range docs {
		if month > 0 && doc.Month != month {
			continue
		}
		resp.Documents = append(resp.Documents, s.view(doc, false))
	}
	if len(resp.Documents) == 0 {
		if month > 0 {
			resp.EmptyMessage = "Tidak ada dokumen di bulan ini"
		} else {
			resp.EmptyMessage = "Belum ada dokumen"
		}
	}
	return resp, &models.Pagination{Total: len(docs), Shown: len(resp.Documents)}, hit, nil
}

// GetDocument returns one document.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		s.logger.Error("get document failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrDatabase, err, "")
	}
	return doc, nil
}

// Describe returns a document with routing and a signed download link.
func (s *DocumentService) Describe(ctx context.Context, id string) (*dto.DocumentView, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.view(*doc, true)
	return &view, nil
}

// Route decides where a document opens: the internal flipbook for PDFs, the office viewer otherwise.
func (s *DocumentService) Route(ctx context.Context, id string) (*models.Document, dto.DocumentRoute, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, dto.DocumentRoute{}, err
	}
	return doc, s.route(*doc), nil
}

// Upload validates and stores a new document: object first, then the row. A failed insert removes
// the object again, falling back to a queued cleanup.
func (s *DocumentService) Upload(ctx context.Context, req dto.UploadDocumentRequest, file *dto.UploadFile) (resp *dto.UploadDocumentResponse, err error) {
	defer func() {
		s.metrics.RecordUpload(uploadOutcome(err))
	}()

	if !s.verifier.Verify(req.SecretKey) {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if file == nil || file.Content == nil || file.Size <= 0 || strings.TrimSpace(file.Name) == "" {
		return nil, appErrors.ErrValidation
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "")
	}
	contentType := resolveContentType(file)
	if _, ok := s.mimeSet[contentType]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Format file tidak didukung")
	}
	if file.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File terlalu besar (maks %dMB)", s.cfg.MaxFileSize/(1024*1024)))
	}

	var pageCount *int
	if contentType == mimePDF && s.inspector != nil {
		count, err := s.inspector.PageCount(file.Content)
		if err != nil {
			s.logger.Warn("rejecting unreadable pdf", zap.String("file_name", file.Name), zap.Error(err))
			return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "File PDF rusak atau tidak dapat dibaca")
		}
		pageCount = &count
	}
	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "")
	}

	now := s.now()
	path := ObjectPath(req.Category, req.Year, req.Month, now, file.Name)
	if err := s.objects.Put(ctx, path, file.Content, contentType); err != nil {
		s.logger.Error("store object failed", zap.String("path", path), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "Gagal mengunggah file ke storage")
	}

	doc := &models.Document{
		Title:     req.Title,
		Category:  req.Category,
		Month:     req.Month,
		Year:      req.Year,
		FileURL:   s.objects.PublicURL(path),
		FileName:  file.Name,
		FileSize:  file.Size,
		PageCount: pageCount,
		CreatedAt: now.UTC(),
	}
	if req.Description != "" {
		doc.Description = &req.Description
	}
	if ext := models.FileTypeFromName(file.Name); ext != "" {
		doc.FileType = &ext
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("insert document failed, rolling back object", zap.String("path", path), zap.Error(err))
		s.rollbackObject(ctx, path)
		return nil, appErrors.WrapAs(appErrors.ErrDatabase, err, "Gagal menyimpan data dokumen")
	}

	s.invalidate(ctx)
	s.logger.Info("document uploaded", zap.String("id", doc.ID), zap.String("path", path), zap.Int64("size", doc.FileSize))
	return &dto.UploadDocumentResponse{Success: true, FileURL: doc.FileURL, Document: s.view(*doc, false)}, nil
}

// Delete removes the object and then the row. The row is kept whenever the object could not be removed.
func (s *DocumentService) Delete(ctx context.Context, id, secret string) error {
	if !s.verifier.Verify(secret) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "Secret key salah")
	}
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "Document ID tidak ditemukan")
	}
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	path, err := s.objects.PathFromURL(doc.FileURL)
	if err != nil {
		s.logger.Warn("document url outside store", zap.String("id", id), zap.String("file_url", doc.FileURL), zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrValidation, err, "Format URL file tidak valid")
	}
	if err := s.objects.Delete(ctx, path); err != nil {
		s.logger.Error("delete object failed, keeping row", zap.String("id", id), zap.String("path", path), zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorage, err, "Gagal menghapus file dari storage")
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("delete row failed after object removal", zap.String("id", id), zap.Error(err))
		if s.cleanup != nil {
			s.cleanup.ScheduleRowDelete(id, err)
		}
		return appErrors.WrapAs(appErrors.ErrDatabase, err, "Gagal menghapus data dari database")
	}
	s.invalidate(ctx)
	s.logger.Info("document deleted", zap.String("id", id), zap.String("path", path))
	return nil
}

// Download opens the object behind a signed token for streaming.
func (s *DocumentService) Download(ctx context.Context, id, token string) (*DocumentDownload, error) {
	if s.signer == nil {
		return nil, appErrors.ErrNotFound
	}
	tokenID, tokenPath, _, err := s.signer.Parse(token)
	if err != nil || tokenID != id {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Link unduhan tidak valid atau kedaluwarsa")
	}
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := s.objects.PathFromURL(doc.FileURL)
	if err != nil || path != tokenPath {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Link unduhan tidak valid atau kedaluwarsa")
	}
	rc, info, err := s.objects.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "File tidak ditemukan")
		}
		s.logger.Error("open object failed", zap.String("path", path), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "")
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &DocumentDownload{Content: rc, Filename: doc.FileName, ContentType: contentType, Size: info.Size}, nil
}

// Export renders a category's document index as csv or pdf.
func (s *DocumentService) Export(ctx context.Context, slug, format string) (*dto.ExportFile, error) {
	renderer, ok := s.exporters[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Format ekspor tidak didukung")
	}
	cat, ok := models.CategoryFromSlug(slug)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Kategori tidak ditemukan")
	}
	docs, _, err := s.ListDocuments(ctx, cat.Key)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:    cat.Label,
		Subtitle: fmt.Sprintf("%d dokumen, diekspor %s", len(docs), s.now().In(s.cfg.Location).Format("02-01-2006 15:04")),
		Columns: []export.Column{
			{Key: "title", Label: "Judul", Width: 4},
			{Key: "period", Label: "Periode", Width: 1.6},
			{Key: "type", Label: "Tipe", Width: 0.8},
			{Key: "pages", Label: "Halaman", Width: 0.9},
			{Key: "size", Label: "Ukuran", Width: 1},
			{Key: "uploaded", Label: "Diupload", Width: 1.4},
		},
		Rows: make([]map[string]string, 0, len(docs)),
	}
	for _, doc := range docs {
		pages := ""
		if doc.PageCount != nil {
			pages = fmt.Sprintf("%d", *doc.PageCount)
		}
		data.Rows = append(data.Rows, map[string]string{
			"title":    doc.Title,
			"period":   doc.Period(),
			"type":     doc.Kind().String(),
			"pages":    pages,
			"size":     humanSize(doc.FileSize),
			"uploaded": doc.CreatedAt.In(s.cfg.Location).Format("02-01-2006"),
		})
	}
	content, err := renderer.Render(data)
	if err != nil {
		s.logger.Error("render export failed", zap.String("category", cat.Key), zap.String("format", format), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", cat.Slug, s.now().In(s.cfg.Location).Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *DocumentService) view(doc models.Document, signed bool) dto.DocumentView {
	kind := doc.Kind()
	view := dto.DocumentView{
		Document: doc,
		Kind:     kind.Info(),
		Period:   doc.Period(),
		ViewURL:  s.route(doc).Location,
	}
	if !signed || s.signer == nil {
		return view
	}
	path, err := s.objects.PathFromURL(doc.FileURL)
	if err != nil {
		return view
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, path)
	if err != nil {
		s.logger.Warn("sign download failed", zap.String("id", doc.ID), zap.Error(err))
		return view
	}
	view.DownloadURL = fmt.Sprintf("%s/documents/%s/download?token=%s", s.cfg.APIPrefix, doc.ID, url.QueryEscape(token))
	view.DownloadExpiresAt = &expiresAt
	return view
}

func (s *DocumentService) route(doc models.Document) dto.DocumentRoute {
	if doc.Kind().Info().Route == models.RouteFlipbook {
		return dto.DocumentRoute{Route: models.RouteFlipbook, Location: "/view/" + doc.ID}
	}
	return dto.DocumentRoute{Route: models.RouteOfficeViewer, Location: OfficeViewerURL(s.cfg.OfficeViewerURL, doc.FileURL)}
}

func (s *DocumentService) rollbackObject(ctx context.Context, path string) {
	if err := s.objects.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.logger.Error("rollback object failed", zap.String("path", path), zap.Error(err))
		if s.cleanup != nil {
			s.cleanup.ScheduleObjectDelete(path, err)
		}
	}
}

func (s *DocumentService) invalidate(ctx context.Context) {
	s.cache.Invalidate(context.WithoutCancel(ctx), cacheKeyHome, cacheKeyCategories, cacheKeyDocumentsPref+"*")
}

// ObjectPath builds "{category}/{year}/{MM}/{unix_ms}_{sanitized name}".
func ObjectPath(category string, year, month int, at time.Time, filename string) string {
	return fmt.Sprintf("%s/%d/%02d/%d_%s", category, year, month, at.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// OfficeViewerURL points the external office viewer at fileURL.
func OfficeViewerURL(base, fileURL string) string {
	return base + "?" + url.Values{"src": {fileURL}}.Encode()
}

func resolveContentType(file *dto.UploadFile) string {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(file.ContentType, ";", 2)[0]))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch models.ParseFileKind(models.FileTypeFromName(file.Name)) {
	case models.FileKindPDF:
		return mimePDF
	case models.FileKindPPT:
		return mimePPT
	case models.FileKindPPTX:
		return mimePPTX
	default:
		return declared
	}
}

func availableMonths(docs []models.Document) []dto.MonthOption {
	seen := make(map[int]struct{})
	months := make([]int, 0, 12)
	for _, doc := range docs {
		if _, ok := seen[doc.Month]; ok {
			continue
		}
		seen[doc.Month] = struct{}{}
		months = append(months, doc.Month)
	}
	sort.Ints(months)
	out := make([]dto.MonthOption, 0, len(months))
	for _, m := range months {
		out = append(out, dto.MonthOption{Value: m, Label: models.MonthName(m)})
	}
	return out
}

func greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 11:
		return "Selamat Pagi"
	case hour < 15:
		return "Selamat Siang"
	default:
		return "Selamat Sore"
	}
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func uploadOutcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}
