package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterizerStreamsPagesInOrder(t *testing.T) {
	engine := newFakeEngine(3)
	fetcher := newGateFetcher()
	fetcher.set("doc", []byte("%PDF"))
	raster := NewRasterizer(fetcher, engine, RasterizerConfig{})

	stream, err := raster.Open(context.Background(), "doc")
	require.NoError(t, err)
	require.Equal(t, 3, stream.Total())

	for want := 1; want <= 3; want++ {
		page, err := stream.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, page.Number)
		assert.Equal(t, 120, page.Width)
		assert.Equal(t, 160, page.Height)

		img, err := png.Decode(bytes.NewReader(page.Image))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 120, 160), img.Bounds())
	}

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	opened, closed := engine.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestRasterizerClampsWidth(t *testing.T) {
	engine := newFakeEngine(1)
	fetcher := newGateFetcher()
	fetcher.set("doc", []byte("%PDF"))
	raster := NewRasterizer(fetcher, engine, RasterizerConfig{Scale: 2, MaxWidth: 60})

	stream, err := raster.Open(context.Background(), "doc")
	require.NoError(t, err)
	page, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, page.Width)
	assert.Equal(t, 80, page.Height)
}

func TestRasterizerFetchFailureIsDecodeError(t *testing.T) {
	raster := NewRasterizer(newGateFetcher(), newFakeEngine(1), RasterizerConfig{})

	_, err := raster.Open(context.Background(), "missing")
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 0, decodeErr.Page)
	assert.Contains(t, decodeErr.Error(), "404")
}

func TestRasterizerCorruptDocument(t *testing.T) {
	fetcher := newGateFetcher()
	fetcher.set("doc", []byte("corrupt"))
	raster := NewRasterizer(fetcher, newFakeEngine(1), RasterizerConfig{})

	_, err := raster.Open(context.Background(), "doc")
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
}

func TestRasterizerPageFailureAbortsStream(t *testing.T) {
	engine := newFakeEngine(3)
	engine.failAt = 2
	fetcher := newGateFetcher()
	fetcher.set("doc", []byte("%PDF"))
	raster := NewRasterizer(fetcher, engine, RasterizerConfig{})

	stream, err := raster.Open(context.Background(), "doc")
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 2, decodeErr.Page)
	assert.Contains(t, errors.Unwrap(err).Error(), "broken content stream")

	_, again := stream.Next(context.Background())
	assert.Equal(t, err, again)

	_, closed := engine.counts()
	assert.Equal(t, 1, closed)
}

func TestRasterizerStopsOnCancel(t *testing.T) {
	fetcher := newGateFetcher()
	fetcher.set("doc", []byte("%PDF"))
	raster := NewRasterizer(fetcher, newFakeEngine(2), RasterizerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := raster.Open(ctx, "doc")
	require.NoError(t, err)
	cancel()

	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSurfaceSize(t *testing.T) {
	w, h := surfaceSize(image.Rect(0, 0, 595, 842), 2, 0)
	assert.Equal(t, 1190, w)
	assert.Equal(t, 1684, h)

	w, h = surfaceSize(image.Rect(0, 0, 595, 842), 2, 595)
	assert.Equal(t, 595, w)
	assert.Equal(t, 842, h)

	w, h = surfaceSize(image.Rectangle{}, 2, 0)
	assert.Zero(t, w)
	assert.Zero(t, h)
}
