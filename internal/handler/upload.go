package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/service"
)

// multipartOverhead leaves room for form fields and part headers next to
// the file itself.
const multipartOverhead = 64 * 1024

type UploadOptions struct {
	Dir   string
	Limit int64
}

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	if bytes <= 0 {
		return "0MB"
	}
	value := bytes / mb
	if value <= 0 {
		value = 1
	}
	return strconv.FormatInt(value, 10) + "MB"
}

func (o UploadOptions) tooLarge() error {
	return appErr.New(appErr.ErrInvalid, "file too large, max "+formatUploadLimit(o.Limit))
}

// limitBody caps multipart request bodies before gin parses them.
func (o UploadOptions) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if o.Limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, o.Limit+multipartOverhead)
		}
		c.Next()
	}
}

// bindError turns a form parse failure into a client error.
func (o UploadOptions) bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return o.tooLarge()
	}
	return appErr.New(appErr.ErrInvalid, "invalid request")
}

// spool copies the multipart file field into a temp file under Dir. The
// returned cleanup removes it and must always be called.
func (o UploadOptions) spool(c *gin.Context, field string) (*service.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, appErr.New(appErr.ErrInvalid, field+" is required")
		}
		return nil, noop, o.bindError(err)
	}
	if o.Limit > 0 && header.Size > o.Limit {
		return nil, noop, o.tooLarge()
	}
	src, err := header.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(o.Dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return nil, noop, fmt.Errorf("create temp file: %w", err)
	}
	path := dst.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logutil.GetLogger(c.Request.Context()).Error("remove temp upload failed", zap.String("path", path), zap.Error(err))
		}
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("spool upload: %w", err)
	}
	return &service.Upload{Filename: filepath.Base(header.Filename), Path: path, Size: size}, cleanup, nil
}
