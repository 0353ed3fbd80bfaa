package pdfrender

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrCorruptPDF marks uploads that pdfcpu cannot parse.
var ErrCorruptPDF = errors.New("corrupt pdf")

// Inspector reads structural facts from a PDF without rendering it.
type Inspector struct {
	conf *model.Configuration
}

// NewInspector configures pdfcpu with relaxed validation, matching what browsers tolerate.
func NewInspector() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// PageCount returns the number of pages in the PDF read from rs.
func (i *Inspector) PageCount(rs io.ReadSeeker) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind pdf: %w", err)
	}
	count, err := api.PageCount(rs, i.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}
	if count < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrCorruptPDF)
	}
	return count, nil
}

// PageCountBytes is PageCount over an in-memory document.
func (i *Inspector) PageCountBytes(data []byte) (int, error) {
	return i.PageCount(bytes.NewReader(data))
}
