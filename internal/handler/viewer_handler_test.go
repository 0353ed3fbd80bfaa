package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infodoc-api/internal/service"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
)

type viewerServiceMock struct {
	since   uint64
	wait    time.Duration
	index   int
	calls   []string
	pageErr error
}

func (m *viewerServiceMock) State(ctx context.Context, id string, since uint64, wait time.Duration) (viewer.State, error) {
	m.since, m.wait = since, wait
	if id != "sess-1" {
		return viewer.State{}, appErrors.ErrNotFound
	}
	return viewer.State{ID: id, Revision: since + 1}, nil
}

func (m *viewerServiceMock) Page(id string, n int) (viewer.RenderedPage, error) {
	if m.pageErr != nil {
		return viewer.RenderedPage{}, m.pageErr
	}
	return viewer.RenderedPage{Number: n, Image: []byte("\x89PNG")}, nil
}

func (m *viewerServiceMock) record(name string) (viewer.State, error) {
	m.calls = append(m.calls, name)
	return viewer.State{ID: "sess-1"}, nil
}

func (m *viewerServiceMock) Next(id string) (viewer.State, error)  { return m.record("next") }
func (m *viewerServiceMock) Prev(id string) (viewer.State, error)  { return m.record("prev") }
func (m *viewerServiceMock) Retry(id string) (viewer.State, error) { return m.record("retry") }

func (m *viewerServiceMock) JumpTo(id string, index int) (viewer.State, error) {
	m.index = index
	return m.record("jump")
}

func (m *viewerServiceMock) Flip(id string, index int) (viewer.State, error) {
	m.index = index
	return m.record("flip")
}

func (m *viewerServiceMock) Close(id string) error {
	m.calls = append(m.calls, "close")
	return nil
}

func newViewerRouter(svc *viewerServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewViewerHandler(svc, 5*time.Second)
	r := gin.New()
	g := r.Group("/viewer/sessions/:sid")
	g.GET("", h.State)
	g.DELETE("", h.Close)
	g.GET("/pages/:n", h.Page)
	g.POST("/next", h.Next)
	g.POST("/prev", h.Prev)
	g.POST("/retry", h.Retry)
	g.POST("/jump", h.Jump)
	g.POST("/flip", h.Flip)
	return r
}

func TestViewerHandlerStateLongPollOnlyWithSince(t *testing.T) {
	svc := &viewerServiceMock{}
	r := newViewerRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.wait)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1?since=7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(7), svc.since)
	assert.Equal(t, 5*time.Second, svc.wait)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1?since=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewerHandlerPage(t *testing.T) {
	svc := &viewerServiceMock{}
	r := newViewerRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1/pages/2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1/pages/dua", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.pageErr = appErrors.ErrNotReady
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/viewer/sessions/sess-1/pages/1", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestViewerHandlerCommands(t *testing.T) {
	svc := &viewerServiceMock{}
	r := newViewerRouter(svc)

	for _, cmd := range []string{"next", "prev", "retry"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/viewer/sessions/sess-1/"+cmd, nil))
		require.Equal(t, http.StatusOK, w.Code, cmd)
	}

	req := httptest.NewRequest(http.MethodPost, "/viewer/sessions/sess-1/jump", strings.NewReader(`{"index":0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.index)

	req = httptest.NewRequest(http.MethodPost, "/viewer/sessions/sess-1/flip", strings.NewReader(`{"index":4}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.index)

	req = httptest.NewRequest(http.MethodPost, "/viewer/sessions/sess-1/jump", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/viewer/sessions/sess-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, []string{"next", "prev", "retry", "jump", "flip", "close"}, svc.calls)
}

func TestMetricsHandlerReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	failing := false
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error {
			if failing {
				return assert.AnError
			}
			return nil
		},
	})
	r := gin.New()
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	r.GET("/system/metrics", h.Summary)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	failing = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewer_active_sessions")
}
