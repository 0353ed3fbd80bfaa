package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const decodeFailureMessage = "Gagal memuat PDF. Coba refresh halaman."

var (
	// ErrNotReady rejects page access and navigation before a load has completed.
	ErrNotReady = errors.New("viewer not ready")
	// ErrClosed rejects calls on a discarded session.
	ErrClosed = errors.New("viewer closed")
)

// LoadOutcome labels how a load attempt ended.
type LoadOutcome string

const (
	OutcomeReady      LoadOutcome = "ready"
	OutcomeError      LoadOutcome = "error"
	OutcomeSuperseded LoadOutcome = "superseded"
)

// LoadHooks lets the owner bound and observe loads. Every field is optional.
type LoadHooks struct {
	// Acquire blocks until the load may start and returns its release func.
	Acquire func(ctx context.Context) (func(), error)
	OnPage  func(RenderedPage)
	OnDone  func(LoadOutcome, time.Duration)
}

// SessionConfig identifies the document a session shows.
type SessionConfig struct {
	ID         string
	DocumentID string
	Title      string
	Locator    string
	// Headless confirms navigation commands immediately instead of waiting for a widget report.
	Headless bool
}

// PageInfo describes a rendered page without its image.
type PageInfo struct {
	Number int `json:"number"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// State is what the viewer shell renders.
type State struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	Message      string     `json:"message,omitempty"`
	TotalPages   int        `json:"total_pages"`
	LoadedPages  int        `json:"loaded_pages"`
	CurrentIndex int        `json:"current_index"`
	Indicator    string     `json:"indicator,omitempty"`
	CanPrev      bool       `json:"can_prev"`
	CanNext      bool       `json:"can_next"`
	PendingFlip  *int       `json:"pending_flip,omitempty"`
	Headless     bool       `json:"headless"`
	Revision     uint64     `json:"revision"`
	Generation   uint64     `json:"generation"`
	Pages        []PageInfo `json:"pages,omitempty"`
}

// Session is one open viewer: a single background load feeding a Sequence, and a Pager once the
// sequence is ready. Safe for concurrent use.
type Session struct {
	cfg    SessionConfig
	raster *Rasterizer
	hooks  LoadHooks
	logger *zap.Logger
	parent context.Context

	mu         sync.Mutex
	seq        *Sequence
	pager      *Pager
	widget     *commandWidget
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	revision   uint64
	changed    chan struct{}
}

// NewSession prepares a session; call Start to begin loading. Cancelling parent abandons any load.
func NewSession(parent context.Context, cfg SessionConfig, raster *Rasterizer, hooks LoadHooks, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		cfg:     cfg,
		raster:  raster,
		hooks:   hooks,
		logger:  logger.With(zap.String("session_id", cfg.ID), zap.String("document_id", cfg.DocumentID)),
		parent:  parent,
		seq:     NewSequence(),
		widget:  &commandWidget{},
		changed: make(chan struct{}),
	}
	s.seq.OnChange(func(SequenceSnapshot) { s.bumpLocked() })
	return s
}

// ID of the session.
func (s *Session) ID() string {
	return s.cfg.ID
}

// DocumentID of the document being shown.
func (s *Session) DocumentID() string {
	return s.cfg.DocumentID
}

// Start launches the first load.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.restartLocked()
	return nil
}

// Retry discards whatever the current load produced and starts again from page 1. Any in-flight
// load is cancelled and its results ignored.
func (s *Session) Retry() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, ErrClosed
	}
	s.restartLocked()
	return s.snapshotLocked(), nil
}

// Close abandons any load. Late completions are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pager = nil
	s.seq.Reset()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until the revision moves past since, the session closes, or ctx ends. The state is
// returned in every case together with ctx's error when it ended the wait.
func (s *Session) Wait(ctx context.Context, since uint64) (State, error) {
	for {
		s.mu.Lock()
		if s.revision > since || s.closed {
			state := s.snapshotLocked()
			s.mu.Unlock()
			return state, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case <-changed:
		}
	}
}

// Page returns the image for page number n (1-based) once the session is ready.
func (s *Session) Page(n int) (RenderedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return RenderedPage{}, err
	}
	page, ok := s.seq.Page(n)
	if !ok {
		return RenderedPage{}, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, n, s.seq.Snapshot().Total)
	}
	return page, nil
}

// Next turns one page forward; saturates on the last page.
func (s *Session) Next() (State, error) {
	return s.navigate(func(p *Pager) error {
		p.Next()
		return nil
	})
}

// Prev turns one page back; saturates on the first page.
func (s *Session) Prev() (State, error) {
	return s.navigate(func(p *Pager) error {
		p.Prev()
		return nil
	})
}

// JumpTo requests index j. Out-of-range requests leave the state untouched.
func (s *Session) JumpTo(j int) (State, error) {
	return s.navigate(func(p *Pager) error {
		return p.JumpTo(j)
	})
}

// Flip records the index the page-turn widget landed on.
func (s *Session) Flip(index int) (State, error) {
	return s.navigate(func(p *Pager) error {
		if err := p.OnFlip(index); err != nil {
			return err
		}
		s.widget.clear()
		return nil
	})
}

func (s *Session) navigate(fn func(*Pager) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if err := fn(s.pager); err != nil {
		return s.snapshotLocked(), err
	}
	s.bumpLocked()
	return s.snapshotLocked(), nil
}

func (s *Session) readyLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.seq.Snapshot().Status != StatusReady || s.pager == nil {
		return ErrNotReady
	}
	return nil
}

func (s *Session) restartLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.pager = nil
	s.widget.clear()
	s.seq.Reset()

	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	go s.load(ctx, s.generation)
}

func (s *Session) load(ctx context.Context, gen uint64) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		if s.hooks.OnDone != nil {
			s.hooks.OnDone(outcome, time.Since(start))
		}
	}()

	if s.hooks.Acquire != nil {
		release, err := s.hooks.Acquire(ctx)
		if err != nil {
			outcome = s.fail(gen, &DecodeError{Err: err})
			return
		}
		defer release()
	}

	stream, err := s.raster.Open(ctx, s.cfg.Locator)
	if err != nil {
		outcome = s.fail(gen, err)
		return
	}
	defer stream.Close() //nolint:errcheck

	if !s.apply(gen, func() error { return s.seq.BeginLoad(stream.Total()) }) {
		outcome = s.settled(gen)
		return
	}
	for {
		page, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			outcome = s.fail(gen, err)
			return
		}
		if s.hooks.OnPage != nil {
			s.hooks.OnPage(page)
		}
		if !s.apply(gen, func() error { return s.seq.AppendPage(page) }) {
			outcome = s.settled(gen)
			return
		}
	}
	if !s.apply(gen, s.completeLocked) {
		outcome = s.settled(gen)
		return
	}
	s.logger.Info("viewer ready", zap.Int("pages", stream.Total()), zap.Duration("elapsed", time.Since(start)))
	outcome = OutcomeReady
}

func (s *Session) completeLocked() error {
	if err := s.seq.CompleteLoad(); err != nil {
		return err
	}
	total := s.seq.Snapshot().Total
	if s.cfg.Headless {
		s.pager = NewHeadlessPager(total)
	} else {
		s.pager = NewPager(total, s.widget)
	}
	s.bumpLocked()
	return nil
}

// apply runs fn if gen is still the live load. A failing fn fails the load.
func (s *Session) apply(gen uint64, fn func() error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return false
	}
	if err := fn(); err != nil {
		s.failLocked(err)
		return false
	}
	return true
}

func (s *Session) fail(gen uint64, err error) LoadOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return OutcomeSuperseded
	}
	s.failLocked(err)
	return OutcomeError
}

func (s *Session) failLocked(err error) {
	s.logger.Warn("viewer load failed", zap.Uint64("generation", s.generation), zap.Error(err))
	s.pager = nil
	s.seq.FailLoad(err)
}

// settled reports the outcome of a load that apply refused to continue.
func (s *Session) settled(gen uint64) LoadOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return OutcomeSuperseded
	}
	return OutcomeError
}

func (s *Session) bumpLocked() {
	s.revision++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) snapshotLocked() State {
	snap := s.seq.Snapshot()
	state := State{
		ID:          s.cfg.ID,
		DocumentID:  s.cfg.DocumentID,
		Title:       s.cfg.Title,
		Status:      snap.Status,
		TotalPages:  snap.Total,
		LoadedPages: snap.Loaded,
		Headless:    s.cfg.Headless,
		Revision:    s.revision,
		Generation:  s.generation,
	}
	switch snap.Status {
	case StatusLoading:
		state.Message = fmt.Sprintf("Memuat %s...", s.cfg.Title)
	case StatusError:
		state.Message = decodeFailureMessage
	case StatusReady:
		if s.pager != nil {
			state.CurrentIndex = s.pager.Current()
			state.Indicator = s.pager.Indicator()
			state.CanPrev = s.pager.CanPrev()
			state.CanNext = s.pager.CanNext()
		}
		if s.widget.pending != nil {
			pending := *s.widget.pending
			state.PendingFlip = &pending
		}
		pages := s.seq.Pages()
		state.Pages = make([]PageInfo, len(pages))
		for i, p := range pages {
			state.Pages[i] = PageInfo{Number: p.Number, Width: p.Width, Height: p.Height}
		}
	}
	return state
}
