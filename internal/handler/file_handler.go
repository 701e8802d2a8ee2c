package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/wassup/internal/filestore"
)

// FileHandler serves avatars kept by a store that can open its own
// objects. Remote stores hand out their own URLs instead.
type FileHandler struct {
	opener filestore.Opener
}

func NewFileHandler(store filestore.Store) *FileHandler {
	opener, _ := store.(filestore.Opener)
	return &FileHandler{opener: opener}
}

func (h *FileHandler) Enabled() bool {
	return h != nil && h.opener != nil
}

func (h *FileHandler) Get(c *gin.Context) {
	key := c.Param("key")
	file, err := h.opener.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	c.Header("Content-Type", filestore.ContentTypeOf(key))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
