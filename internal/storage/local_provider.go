package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalStorage implements StorageProvider on a filesystem rooted at a base path.
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage creates the base directory on fs and confines all access to it.
func NewLocalStorage(fs afero.Fs, basePath string, log *zap.Logger) (*LocalStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage path cannot be empty")
	}

	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		log.Error("Failed to create local storage directory", zap.String("path", basePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	log.Info("Local storage initialized", zap.String("path", basePath))
	return &LocalStorage{fs: afero.NewBasePathFs(fs, basePath)}, nil
}

// cleanName rejects object names that would escape the base path.
func cleanName(objectName string) (string, error) {
	name := filepath.Clean(objectName)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid object name: %s", objectName)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("object name cannot be an absolute path: %s", objectName)
	}
	if name == ".." || len(name) > 2 && name[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("object name escapes storage root: %s", objectName)
	}
	return name, nil
}

// UploadFile writes data to the filesystem. size and contentType are not needed locally.
func (l *LocalStorage) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	name, err := cleanName(objectName)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory structure for %s: %w", name, err)
		}
	}

	file, err := l.fs.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", name, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		// Remove partially written file on error
		_ = l.fs.Remove(name)
		return fmt.Errorf("failed to write data to local file %s: %w", name, err)
	}
	return nil
}

// DownloadFile opens a stored file.
func (l *LocalStorage) DownloadFile(ctx context.Context, objectName string) (*Object, error) {
	name, err := cleanName(objectName)
	if err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(name)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("object %s not found locally: %w", objectName, errs.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat local file %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("object %s not found locally: %w", objectName, errs.ErrNotFound)
	}

	file, err := l.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s not found locally: %w", objectName, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open local file %s: %w", name, err)
	}

	// Caller is responsible for closing the file.
	return &Object{ReadCloser: file, ContentType: ContentTypeForKey(name), Size: info.Size()}, nil
}

// DeleteFile removes a file. Missing files are ignored.
func (l *LocalStorage) DeleteFile(ctx context.Context, objectName string) error {
	name, err := cleanName(objectName)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove local file %s: %w", name, err)
	}
	return nil
}

// FileExists checks if a file exists.
func (l *LocalStorage) FileExists(ctx context.Context, objectName string) (bool, error) {
	name, err := cleanName(objectName)
	if err != nil {
		return false, err
	}
	exists, err := afero.Exists(l.fs, name)
	if err != nil {
		return false, fmt.Errorf("failed to stat local file %s: %w", name, err)
	}
	return exists, nil
}
