package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Suhaibinator/SRelease/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// StorageProvider defines the interface for interacting with the image storage backend.
// This allows swapping between Minio and the local filesystem.
type StorageProvider interface {
	// UploadFile stores data under objectName.
	// size is the total size of the data, required by MinIO.
	// contentType is the MIME type recorded for the object.
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error

	// DownloadFile opens a stored object. The returned Object must be closed by the caller.
	// A missing object yields an error wrapping errs.ErrNotFound.
	DownloadFile(ctx context.Context, objectName string) (*Object, error)

	// DeleteFile removes an object. Deleting a missing object is not an error.
	DeleteFile(ctx context.Context, objectName string) error

	// FileExists checks if an object exists.
	FileExists(ctx context.Context, objectName string) (bool, error)
}

// Object is an opened stored object.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// ImageTypes maps the accepted upload MIME types to the extension used in keys.
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ContentTypeForKey returns the image MIME type implied by a key's extension.
func ContentTypeForKey(objectName string) string {
	ext := strings.ToLower(path.Ext(objectName))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for mimeType, e := range ImageTypes {
		if e == ext {
			return mimeType
		}
	}
	return "application/octet-stream"
}

// InitStorage initializes the storage provider selected by config.
func InitStorage(cfg config.Config, log *zap.Logger) (StorageProvider, error) {
	storageType := strings.ToLower(cfg.StorageType)
	log.Info("Initializing storage provider", zap.String("type", storageType))

	var (
		provider StorageProvider
		err      error
	)
	switch storageType {
	case "minio":
		provider, err = NewMinioStorage(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Minio storage: %w", err)
		}
	case "local":
		provider, err = NewLocalStorage(afero.NewOsFs(), cfg.LocalStoragePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE: %s. Must be 'minio' or 'local'", cfg.StorageType)
	}

	log.Info("Storage provider initialized", zap.String("type", storageType))
	return provider, nil
}
