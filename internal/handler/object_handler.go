package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/infodoc-api/pkg/errors"
	"github.com/noah-isme/infodoc-api/pkg/response"
	"github.com/noah-isme/infodoc-api/pkg/storage"
)

type objectReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, storage.ObjectInfo, error)
}

// ObjectHandler publishes stored files under the legacy public URL layout so links already saved
// in file_url keep resolving.
type ObjectHandler struct {
	store objectReader
}

// NewObjectHandler constructs the handler.
func NewObjectHandler(store objectReader) *ObjectHandler {
	return &ObjectHandler{store: store}
}

// Serve streams the object at the *path route parameter inline.
func (h *ObjectHandler) Serve(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	rc, info, err := h.store.Open(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "File tidak ditemukan"))
			return
		}
		response.Error(c, appErrors.WrapAs(appErrors.ErrStorage, err, ""))
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(3600))
	c.DataFromReader(http.StatusOK, size, contentType, rc, nil)
}
