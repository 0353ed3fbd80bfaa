// Package pdfrender wraps the PDF libraries used by the portal: a rasterization engine for the viewer,
// a structural inspector for uploads, and fetchers that load document bytes from a locator.
package pdfrender

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// BaseDPI is the PDF user-space resolution; a render scale of 1 maps one point to one pixel.
const BaseDPI = 72.0

// ErrPageRange is returned for page numbers outside 1..NumPages.
var ErrPageRange = errors.New("page number out of range")

// Engine opens PDF bytes for rendering.
type Engine interface {
	Open(data []byte) (Document, error)
}

// Document is an opened PDF. Pages are numbered from 1.
type Document interface {
	NumPages() int
	// Bounds returns the page size in points.
	Bounds(page int) (image.Rectangle, error)
	// Render draws the page at scale (1 = 72 dpi).
	Render(page int, scale float64) (image.Image, error)
	Close() error
}

// FitzEngine renders through MuPDF.
type FitzEngine struct{}

// NewFitzEngine returns the MuPDF-backed engine.
func NewFitzEngine() *FitzEngine {
	return &FitzEngine{}
}

// Open parses data as a PDF.
func (FitzEngine) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Bounds(page int) (image.Rectangle, error) {
	if err := d.check(page); err != nil {
		return image.Rectangle{}, err
	}
	rect, err := d.doc.Bound(page - 1)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("page %d bounds: %w", page, err)
	}
	return rect, nil
}

func (d *fitzDocument) Render(page int, scale float64) (image.Image, error) {
	if err := d.check(page); err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	img, err := d.doc.ImageDPI(page-1, BaseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

func (d *fitzDocument) check(page int) error {
	if page < 1 || page > d.doc.NumPage() {
		return fmt.Errorf("%w: %d", ErrPageRange, page)
	}
	return nil
}
