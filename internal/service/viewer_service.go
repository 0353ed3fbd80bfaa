package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/infodoc-api/internal/models"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
)

var errSessionNotFound = appErrors.Clone(appErrors.ErrNotFound, "Sesi viewer tidak ditemukan")

type documentLookup interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

// ViewerServiceConfig bounds the number of open sessions and concurrent loads.
type ViewerServiceConfig struct {
	MaxSessions        int
	SessionTTL         time.Duration
	MaxConcurrentLoads int
}

// ViewerService owns the open flipbook sessions. Idle sessions expire and the least recently used
// one is evicted once MaxSessions is reached; eviction closes the session.
type ViewerService struct {
	documents documentLookup
	raster    *viewer.Rasterizer
	sessions  *expirable.LRU[string, *viewer.Session]
	loads     *semaphore.Weighted
	metrics   *MetricsService
	logger    *zap.Logger
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewViewerService constructs the service; call Shutdown to abandon every session.
func NewViewerService(documents documentLookup, raster *viewer.Rasterizer, metrics *MetricsService, logger *zap.Logger, cfg ViewerServiceConfig) *ViewerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 64
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if cfg.MaxConcurrentLoads <= 0 {
		cfg.MaxConcurrentLoads = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ViewerService{
		documents: documents,
		raster:    raster,
		loads:     semaphore.NewWeighted(int64(cfg.MaxConcurrentLoads)),
		metrics:   metrics,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.sessions = expirable.NewLRU[string, *viewer.Session](cfg.MaxSessions, s.evicted, cfg.SessionTTL)
	return s
}

// Open starts a session for a PDF document. Sessions are headless unless a page-turn widget will
// report flips back.
func (s *ViewerService) Open(ctx context.Context, documentID string, headless bool) (viewer.State, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return viewer.State{}, err
	}
	if doc.Kind().Info().Route != models.RouteFlipbook {
		return viewer.State{}, appErrors.Clone(appErrors.ErrValidation, "Hanya dokumen PDF yang dapat dibuka di viewer")
	}

	session := viewer.NewSession(s.ctx, viewer.SessionConfig{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Title:      doc.Title,
		Locator:    doc.FileURL,
		Headless:   headless,
	}, s.raster, s.hooks(), s.logger)

	s.sessions.Add(session.ID(), session)
	s.metrics.SetActiveViewerSessions(s.active.Add(1))
	if err := session.Start(); err != nil {
		s.sessions.Remove(session.ID())
		return viewer.State{}, appErrors.WrapAs(appErrors.ErrInternal, err, "")
	}
	s.logger.Info("viewer opened", zap.String("session_id", session.ID()), zap.String("document_id", doc.ID), zap.Bool("headless", headless))
	return session.Snapshot(), nil
}

// State returns the session state. With wait > 0 it long-polls until the revision passes since.
func (s *ViewerService) State(ctx context.Context, id string, since uint64, wait time.Duration) (viewer.State, error) {
	session, err := s.get(id)
	if err != nil {
		return viewer.State{}, err
	}
	if wait <= 0 {
		return session.Snapshot(), nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	state, err := session.Wait(waitCtx, since)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return state, err
	}
	return state, nil
}

// Page returns rendered page n (1-based).
func (s *ViewerService) Page(id string, n int) (viewer.RenderedPage, error) {
	session, err := s.get(id)
	if err != nil {
		return viewer.RenderedPage{}, err
	}
	page, err := session.Page(n)
	if err != nil {
		return viewer.RenderedPage{}, mapViewerError(err)
	}
	return page, nil
}

// Next turns one page forward.
func (s *ViewerService) Next(id string) (viewer.State, error) {
	return s.command(id, (*viewer.Session).Next)
}

// Prev turns one page back.
func (s *ViewerService) Prev(id string) (viewer.State, error) {
	return s.command(id, (*viewer.Session).Prev)
}

// Retry reloads the document from page 1.
func (s *ViewerService) Retry(id string) (viewer.State, error) {
	return s.command(id, (*viewer.Session).Retry)
}

// JumpTo requests a page index.
func (s *ViewerService) JumpTo(id string, index int) (viewer.State, error) {
	return s.command(id, func(session *viewer.Session) (viewer.State, error) {
		return session.JumpTo(index)
	})
}

// Flip records where the widget landed.
func (s *ViewerService) Flip(id string, index int) (viewer.State, error) {
	return s.command(id, func(session *viewer.Session) (viewer.State, error) {
		return session.Flip(index)
	})
}

// Close discards a session.
func (s *ViewerService) Close(id string) error {
	if !s.sessions.Remove(id) {
		return errSessionNotFound
	}
	return nil
}

// CloseDocument discards every session showing documentID.
func (s *ViewerService) CloseDocument(documentID string) int {
	closed := 0
	for _, session := range s.sessions.Values() {
		if session.DocumentID() == documentID && s.sessions.Remove(session.ID()) {
			closed++
		}
	}
	return closed
}

// ActiveSessions counts open sessions.
func (s *ViewerService) ActiveSessions() int64 {
	return s.active.Load()
}

// Shutdown cancels every load and closes every session.
func (s *ViewerService) Shutdown() {
	s.cancel()
	s.sessions.Purge()
}

func (s *ViewerService) command(id string, fn func(*viewer.Session) (viewer.State, error)) (viewer.State, error) {
	session, err := s.get(id)
	if err != nil {
		return viewer.State{}, err
	}
	state, err := fn(session)
	if err != nil {
		return state, mapViewerError(err)
	}
	return state, nil
}

// get returns a live session and refreshes its expiry.
func (s *ViewerService) get(id string) (*viewer.Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok || session.Closed() {
		return nil, errSessionNotFound
	}
	s.sessions.Add(id, session)
	return session, nil
}

func (s *ViewerService) hooks() viewer.LoadHooks {
	return viewer.LoadHooks{
		Acquire: func(ctx context.Context) (func(), error) {
			if err := s.loads.Acquire(ctx, 1); err != nil {
				return nil, err
			}
			return func() { s.loads.Release(1) }, nil
		},
		OnPage: func(page viewer.RenderedPage) {
			s.metrics.ObservePageRendered(len(page.Image))
		},
		OnDone: func(outcome viewer.LoadOutcome, elapsed time.Duration) {
			s.metrics.ObserveViewerLoad(string(outcome), elapsed)
		},
	}
}

func (s *ViewerService) evicted(id string, session *viewer.Session) {
	session.Close()
	s.metrics.SetActiveViewerSessions(s.active.Add(-1))
	s.logger.Debug("viewer closed", zap.String("session_id", id))
}

func mapViewerError(err error) error {
	switch {
	case errors.Is(err, viewer.ErrNotReady):
		return appErrors.ErrNotReady
	case errors.Is(err, viewer.ErrOutOfRange):
		return appErrors.WrapAs(appErrors.ErrOutOfRange, err, "")
	case errors.Is(err, viewer.ErrClosed):
		return errSessionNotFound
	default:
		return appErrors.WrapAs(appErrors.ErrInternal, err, "")
	}
}
