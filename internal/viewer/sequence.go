package viewer

import (
	"errors"
	"fmt"
)

// Status is the lifecycle of a page sequence.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

var (
	// ErrOutOfOrder rejects a page whose number is not the next expected one.
	ErrOutOfOrder = errors.New("page appended out of order")
	// ErrIncomplete rejects completing a load before every page arrived.
	ErrIncomplete = errors.New("page sequence incomplete")
	// ErrNotLoading rejects mutations outside an active load.
	ErrNotLoading = errors.New("page sequence is not loading")
	// ErrEmptyDocument rejects documents reporting no pages.
	ErrEmptyDocument = errors.New("document has no pages")
)

// SequenceSnapshot is a read-only view of a Sequence.
type SequenceSnapshot struct {
	Status Status
	Total  int
	Loaded int
	Err    error
}

// Sequence accumulates rendered pages in order. It is not safe for concurrent use; Session
// serializes access.
type Sequence struct {
	status   Status
	total    int
	pages    []RenderedPage
	err      error
	onChange func(SequenceSnapshot)
}

// NewSequence returns an empty sequence in the loading state.
func NewSequence() *Sequence {
	return &Sequence{status: StatusLoading}
}

// OnChange registers the observer called after every transition.
func (s *Sequence) OnChange(fn func(SequenceSnapshot)) {
	s.onChange = fn
}

// Reset discards all pages and any error and waits for BeginLoad.
func (s *Sequence) Reset() {
	s.status = StatusLoading
	s.total = 0
	s.pages = nil
	s.err = nil
	s.notify()
}

// BeginLoad starts an empty sequence sized for total pages.
func (s *Sequence) BeginLoad(total int) error {
	if total < 1 {
		return ErrEmptyDocument
	}
	s.status = StatusLoading
	s.total = total
	s.pages = make([]RenderedPage, 0, total)
	s.err = nil
	s.notify()
	return nil
}

// AppendPage adds the next page. Its number must be exactly len+1.
func (s *Sequence) AppendPage(page RenderedPage) error {
	if s.status != StatusLoading || s.total == 0 {
		return ErrNotLoading
	}
	want := len(s.pages) + 1
	if page.Number != want || want > s.total {
		return fmt.Errorf("%w: got page %d, want %d of %d", ErrOutOfOrder, page.Number, want, s.total)
	}
	s.pages = append(s.pages, page)
	s.notify()
	return nil
}

// CompleteLoad marks the sequence ready once every page is present.
func (s *Sequence) CompleteLoad() error {
	if s.status != StatusLoading || s.total == 0 {
		return ErrNotLoading
	}
	if len(s.pages) != s.total {
		return fmt.Errorf("%w: %d of %d pages", ErrIncomplete, len(s.pages), s.total)
	}
	s.status = StatusReady
	s.notify()
	return nil
}

// FailLoad drops partial pages and keeps err for display.
func (s *Sequence) FailLoad(err error) {
	s.status = StatusError
	s.pages = nil
	s.err = err
	s.notify()
}

// Snapshot reports the current state.
func (s *Sequence) Snapshot() SequenceSnapshot {
	return SequenceSnapshot{Status: s.status, Total: s.total, Loaded: len(s.pages), Err: s.err}
}

// Pages returns the ordered pages, or nil unless the sequence is ready.
func (s *Sequence) Pages() []RenderedPage {
	if s.status != StatusReady {
		return nil
	}
	out := make([]RenderedPage, len(s.pages))
	copy(out, s.pages)
	return out
}

// Page returns page number n (1-based) of a ready sequence.
func (s *Sequence) Page(n int) (RenderedPage, bool) {
	if s.status != StatusReady || n < 1 || n > len(s.pages) {
		return RenderedPage{}, false
	}
	return s.pages[n-1], true
}

func (s *Sequence) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}
