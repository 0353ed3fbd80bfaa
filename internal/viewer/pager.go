package viewer

import (
	"errors"
	"fmt"
)

// ErrOutOfRange rejects page indexes outside 0..total-1.
var ErrOutOfRange = errors.New("page index out of range")

// Widget is the page-turn surface. Pager only sends it commands; the widget reports the page it
// actually landed on through Pager.OnFlip.
type Widget interface {
	FlipTo(index int)
}

// Pager mirrors the widget's current page. Its index only changes through OnFlip.
type Pager struct {
	total   int
	current int
	widget  Widget
}

// NewPager starts at index 0. total must be at least 1.
func NewPager(total int, widget Widget) *Pager {
	if total < 1 {
		total = 1
	}
	return &Pager{total: total, widget: widget}
}

// Total page count.
func (p *Pager) Total() int { return p.total }

// Current 0-based index.
func (p *Pager) Current() int { return p.current }

// CanPrev reports whether Prev would move.
func (p *Pager) CanPrev() bool { return p.current > 0 }

// CanNext reports whether Next would move.
func (p *Pager) CanNext() bool { return p.current < p.total-1 }

// Indicator renders "{index+1} / {total}".
func (p *Pager) Indicator() string {
	return fmt.Sprintf("%d / %d", p.current+1, p.total)
}

// Next asks the widget to turn forward. It is a no-op on the last page.
func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	p.widget.FlipTo(p.current + 1)
	return true
}

// Prev asks the widget to turn back. It is a no-op on the first page.
func (p *Pager) Prev() bool {
	if !p.CanPrev() {
		return false
	}
	p.widget.FlipTo(p.current - 1)
	return true
}

// JumpTo asks the widget to open index j.
func (p *Pager) JumpTo(j int) error {
	if j < 0 || j >= p.total {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, j, p.total-1)
	}
	p.widget.FlipTo(j)
	return nil
}

// OnFlip records the index the widget reports. Reports outside the range are rejected.
func (p *Pager) OnFlip(index int) error {
	if index < 0 || index >= p.total {
		return fmt.Errorf("%w: widget reported %d", ErrOutOfRange, index)
	}
	p.current = index
	return nil
}

// HeadlessWidget confirms every command immediately. It drives clients that have no animated surface.
type HeadlessWidget struct {
	confirm func(int) error
}

// FlipTo confirms index straight back to the pager.
func (w *HeadlessWidget) FlipTo(index int) {
	if w.confirm != nil {
		_ = w.confirm(index)
	}
}

// NewHeadlessPager returns a pager whose commands take effect synchronously.
func NewHeadlessPager(total int) *Pager {
	w := &HeadlessWidget{}
	p := NewPager(total, w)
	w.confirm = p.OnFlip
	return p
}

// commandWidget holds the last requested index until a remote widget confirms it.
type commandWidget struct {
	pending *int
}

func (w *commandWidget) FlipTo(index int) {
	w.pending = &index
}

func (w *commandWidget) clear() {
	w.pending = nil
}
