package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/infodoc-api/internal/dto"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
	"github.com/noah-isme/infodoc-api/pkg/response"
)

const defaultLongPoll = 25 * time.Second

type viewerService interface {
	State(ctx context.Context, id string, since uint64, wait time.Duration) (viewer.State, error)
	Page(id string, n int) (viewer.RenderedPage, error)
	Next(id string) (viewer.State, error)
	Prev(id string) (viewer.State, error)
	Retry(id string) (viewer.State, error)
	JumpTo(id string, index int) (viewer.State, error)
	Flip(id string, index int) (viewer.State, error)
	Close(id string) error
}

// ViewerHandler exposes flipbook sessions.
type ViewerHandler struct {
	service  viewerService
	longPoll time.Duration
}

// NewViewerHandler constructs the handler. longPoll caps how long a state request with ?since waits.
func NewViewerHandler(service viewerService, longPoll time.Duration) *ViewerHandler {
	if longPoll <= 0 {
		longPoll = defaultLongPoll
	}
	return &ViewerHandler{service: service, longPoll: longPoll}
}

// State godoc
// @Summary Viewer session state
// @Description With since, blocks until the revision moves past it or the poll window ends.
// @Tags Viewer
// @Produce json
// @Param sid path string true "Session ID"
// @Param since query int false "Last seen revision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /viewer/sessions/{sid} [get]
func (h *ViewerHandler) State(c *gin.Context) {
	var (
		since uint64
		wait  time.Duration
	)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Parameter since tidak valid"))
			return
		}
		since, wait = parsed, h.longPoll
	}
	state, err := h.service.State(c.Request.Context(), c.Param("sid"), since, wait)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Page godoc
// @Summary Rendered page image
// @Tags Viewer
// @Produce png
// @Param sid path string true "Session ID"
// @Param n path int true "Page number (1-based)"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Router /viewer/sessions/{sid}/pages/{n} [get]
func (h *ViewerHandler) Page(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Nomor halaman tidak valid"))
		return
	}
	page, err := h.service.Page(c.Param("sid"), n)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Image(c, "image/png", page.Image)
}

// Next godoc
// @Summary Turn to the next page
// @Tags Viewer
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /viewer/sessions/{sid}/next [post]
func (h *ViewerHandler) Next(c *gin.Context) {
	h.reply(c, h.service.Next)
}

// Prev godoc
// @Summary Turn to the previous page
// @Tags Viewer
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /viewer/sessions/{sid}/prev [post]
func (h *ViewerHandler) Prev(c *gin.Context) {
	h.reply(c, h.service.Prev)
}

// Retry godoc
// @Summary Reload the document from page 1
// @Tags Viewer
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /viewer/sessions/{sid}/retry [post]
func (h *ViewerHandler) Retry(c *gin.Context) {
	h.reply(c, h.service.Retry)
}

// Jump godoc
// @Summary Jump to a page index
// @Tags Viewer
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param payload body dto.ViewerIndexRequest true "Zero-based index"
// @Success 200 {object} response.Envelope
// @Router /viewer/sessions/{sid}/jump [post]
func (h *ViewerHandler) Jump(c *gin.Context) {
	h.indexed(c, h.service.JumpTo)
}

// Flip godoc
// @Summary Report the page the widget landed on
// @Tags Viewer
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param payload body dto.ViewerIndexRequest true "Zero-based index"
// @Success 200 {object} response.Envelope
// @Router /viewer/sessions/{sid}/flip [post]
func (h *ViewerHandler) Flip(c *gin.Context) {
	h.indexed(c, h.service.Flip)
}

// Close godoc
// @Summary Discard a viewer session
// @Tags Viewer
// @Param sid path string true "Session ID"
// @Success 204
// @Router /viewer/sessions/{sid} [delete]
func (h *ViewerHandler) Close(c *gin.Context) {
	if err := h.service.Close(c.Param("sid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ViewerHandler) reply(c *gin.Context, fn func(string) (viewer.State, error)) {
	state, err := fn(c.Param("sid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

func (h *ViewerHandler) indexed(c *gin.Context, fn func(string, int) (viewer.State, error)) {
	var req dto.ViewerIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "Index halaman wajib diisi"))
		return
	}
	h.reply(c, func(id string) (viewer.State, error) {
		return fn(id, *req.Index)
	})
}
