// Package viewer turns a hosted PDF into an ordered set of page images and tracks which page a
// reader is on.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/noah-isme/infodoc-api/pkg/pdfrender"
)

// DefaultScale matches the flipbook's original render resolution.
const DefaultScale = 2.0

// RenderedPage is one rasterized page. Number starts at 1.
type RenderedPage struct {
	Number int
	Image  []byte
	Width  int
	Height int
}

// DecodeError aborts a load. Page is 0 when the document itself could not be fetched or opened.
type DecodeError struct {
	Page int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("decode document: %v", e.Err)
	}
	return fmt.Sprintf("decode page %d: %v", e.Page, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RasterizerConfig controls output resolution.
type RasterizerConfig struct {
	Scale float64
	// MaxWidth clamps the surface width in pixels, keeping the aspect ratio. Zero disables it.
	MaxWidth int
}

// Rasterizer fetches a document and renders it page by page.
type Rasterizer struct {
	fetcher  pdfrender.Fetcher
	engine   pdfrender.Engine
	scale    float64
	maxWidth int
}

// NewRasterizer wires a fetcher and an engine.
func NewRasterizer(fetcher pdfrender.Fetcher, engine pdfrender.Engine, cfg RasterizerConfig) *Rasterizer {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.MaxWidth < 0 {
		cfg.MaxWidth = 0
	}
	return &Rasterizer{fetcher: fetcher, engine: engine, scale: cfg.Scale, maxWidth: cfg.MaxWidth}
}

// Open fetches and parses the document behind locator. Every call starts over from page 1.
func (r *Rasterizer) Open(ctx context.Context, locator string) (*PageStream, error) {
	data, err := r.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Err: err}
	}
	doc, err := r.engine.Open(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &PageStream{doc: doc, total: doc.NumPages(), next: 1, scale: r.scale, maxWidth: r.maxWidth}, nil
}

// PageStream yields pages strictly in order. It cannot be rewound; after an error every call
// returns that error.
type PageStream struct {
	doc      pdfrender.Document
	total    int
	next     int
	scale    float64
	maxWidth int
	err      error
}

// Total is the page count reported by the document.
func (s *PageStream) Total() int {
	return s.total
}

// Next renders the following page, returning io.EOF after the last one.
func (s *PageStream) Next(ctx context.Context) (RenderedPage, error) {
	if s.err != nil {
		return RenderedPage{}, s.err
	}
	if s.next > s.total {
		s.err = io.EOF
		s.release()
		return RenderedPage{}, io.EOF
	}
	number := s.next
	if err := ctx.Err(); err != nil {
		return RenderedPage{}, s.abort(number, err)
	}
	page, err := s.render(number)
	if err != nil {
		return RenderedPage{}, s.abort(number, err)
	}
	s.next++
	return page, nil
}

// Close releases the engine document. It is safe to call more than once.
func (s *PageStream) Close() error {
	if s.err == nil {
		s.err = errors.New("page stream closed")
	}
	return s.release()
}

func (s *PageStream) render(number int) (RenderedPage, error) {
	bounds, err := s.doc.Bounds(number)
	if err != nil {
		return RenderedPage{}, err
	}
	width, height := surfaceSize(bounds, s.scale, s.maxWidth)
	if width == 0 || height == 0 {
		return RenderedPage{}, fmt.Errorf("page has empty bounds %v", bounds)
	}

	src, err := s.doc.Render(number, s.scale)
	if err != nil {
		return RenderedPage{}, err
	}

	surface := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(surface, surface.Bounds(), image.White, image.Point{}, draw.Src)
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Draw(surface, surface.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(surface, surface.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, surface); err != nil {
		return RenderedPage{}, fmt.Errorf("encode png: %w", err)
	}
	return RenderedPage{Number: number, Image: buf.Bytes(), Width: width, Height: height}, nil
}

func (s *PageStream) abort(page int, err error) error {
	s.err = &DecodeError{Page: page, Err: err}
	s.release()
	return s.err
}

func (s *PageStream) release() error {
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.doc = nil
	return err
}

func surfaceSize(bounds image.Rectangle, scale float64, maxWidth int) (int, int) {
	width := int(math.Round(float64(bounds.Dx()) * scale))
	height := int(math.Round(float64(bounds.Dy()) * scale))
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if maxWidth > 0 && width > maxWidth {
		height = int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
		width = maxWidth
		if height < 1 {
			height = 1
		}
	}
	return width, height
}
