package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/noah-isme/infodoc-api/pkg/pdfrender"
)

type fakeEngine struct {
	pages  int
	size   image.Rectangle
	failAt int

	mu     sync.Mutex
	opened int
	closed int
}

func newFakeEngine(pages int) *fakeEngine {
	return &fakeEngine{pages: pages, size: image.Rect(0, 0, 60, 80)}
}

func (e *fakeEngine) Open(data []byte) (pdfrender.Document, error) {
	if string(data) == "corrupt" {
		return nil, errors.New("no header")
	}
	e.mu.Lock()
	e.opened++
	e.mu.Unlock()
	return &fakeDocument{engine: e}, nil
}

func (e *fakeEngine) counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened, e.closed
}

type fakeDocument struct {
	engine *fakeEngine
}

func (d *fakeDocument) NumPages() int { return d.engine.pages }

func (d *fakeDocument) Bounds(page int) (image.Rectangle, error) {
	if page < 1 || page > d.engine.pages {
		return image.Rectangle{}, pdfrender.ErrPageRange
	}
	return d.engine.size, nil
}

func (d *fakeDocument) Render(page int, scale float64) (image.Image, error) {
	if page == d.engine.failAt {
		return nil, fmt.Errorf("broken content stream on page %d", page)
	}
	w := int(float64(d.engine.size.Dx()) * scale)
	h := int(float64(d.engine.size.Dy()) * scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(page), A: 255})
	}
	return img, nil
}

func (d *fakeDocument) Close() error {
	d.engine.mu.Lock()
	d.engine.closed++
	d.engine.mu.Unlock()
	return nil
}

// gateFetcher serves documents by locator and can hold a fetch until released.
type gateFetcher struct {
	mu    sync.Mutex
	docs  map[string][]byte
	gates map[string]chan struct{}
	calls int
}

func newGateFetcher() *gateFetcher {
	return &gateFetcher{docs: map[string][]byte{}, gates: map[string]chan struct{}{}}
}

func (f *gateFetcher) set(locator string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[locator] = data
}

func (f *gateFetcher) hold(locator string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[locator] = gate
	return gate
}

func (f *gateFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[locator]
	delete(f.gates, locator)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.docs[locator]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

func (f *gateFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
