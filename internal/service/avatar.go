package service

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/filestore"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
)

// Upload is a multipart file already spooled to local disk. The handler
// owns the file and removes it once the request finishes.
type Upload struct {
	Filename string
	Path     string
	Size     int64
}

// avatarTypes are the raster formats browsers render inline without
// running script.
var avatarTypes = []string{"image/png", "image/vnd.mozilla.apng", "image/jpeg", "image/gif", "image/webp"}

type AvatarUploader struct {
	store filestore.Store
}

func NewAvatarUploader(store filestore.Store) *AvatarUploader {
	return &AvatarUploader{store: store}
}

// Upload stores the file under a key derived from owner and returns the
// key and its public URL. Content that is not a supported image is
// rejected with ErrInvalid; any storage failure is ErrUploadFailed.
func (u *AvatarUploader) Upload(ctx context.Context, owner string, file *Upload) (string, string, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("owner", owner), zap.String("file", file.Filename))
	f, err := os.Open(file.Path)
	if err != nil {
		logger.Error("open avatar failed", zap.Error(err))
		return "", "", appErr.New(appErr.ErrUploadFailed, "avatar upload failed")
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		logger.Error("detect avatar type failed", zap.Error(err))
		return "", "", appErr.New(appErr.ErrUploadFailed, "avatar upload failed")
	}
	if !mimetype.EqualsAny(mtype.String(), avatarTypes...) {
		logger.Warn("reject avatar content", zap.String("mime", mtype.String()))
		return "", "", appErr.New(appErr.ErrInvalid, "avatar must be a png, jpeg, gif or webp image")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		logger.Error("rewind avatar failed", zap.Error(err))
		return "", "", appErr.New(appErr.ErrUploadFailed, "avatar upload failed")
	}

	// the key takes the detected extension so the served type matches the bytes
	key := buildAvatarKey(owner, mtype.Extension())
	if err := u.store.Save(ctx, key, f, file.Size); err != nil {
		logger.Error("save avatar failed", zap.String("key", key), zap.Error(err))
		return "", "", appErr.New(appErr.ErrUploadFailed, "avatar upload failed")
	}
	return key, u.store.URL(key), nil
}

// Discard removes an uploaded avatar whose owning write failed.
func (u *AvatarUploader) Discard(ctx context.Context, key string) {
	if err := u.store.Delete(ctx, key); err != nil {
		logutil.GetLogger(ctx).Error("discard avatar failed", zap.String("key", key), zap.Error(err))
	}
}

func buildAvatarKey(owner, ext string) string {
	ext = strings.ToLower(ext)
	base := randomHex(8)
	if owner != "" {
		base = owner + "_" + base
	}
	return base + ext
}
