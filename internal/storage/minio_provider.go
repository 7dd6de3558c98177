package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Suhaibinator/SRelease/internal/config"
	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStorage implements the StorageProvider interface using MinIO.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects to MinIO and creates the bucket if needed.
func NewMinioStorage(cfg config.Config, log *zap.Logger) (*MinioStorage, error) {
	ctx := context.Background()

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Error("Failed to initialize MinIO client", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	log.Info("MinIO client initialized", zap.String("endpoint", cfg.MinioEndpoint))

	exists, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		log.Error("Failed to check if MinIO bucket exists", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
		return nil, fmt.Errorf("failed to check MinIO bucket existence: %w", err)
	}

	if !exists {
		log.Info("MinIO bucket does not exist. Creating...", zap.String("bucket", cfg.MinioBucket))
		err = minioClient.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}) // Use default region
		if err != nil {
			log.Error("Failed to create MinIO bucket", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
			return nil, fmt.Errorf("failed to create MinIO bucket: %w", err)
		}
		log.Info("Successfully created MinIO bucket", zap.String("bucket", cfg.MinioBucket))
	} else {
		log.Info("MinIO bucket already exists", zap.String("bucket", cfg.MinioBucket))
	}

	return &MinioStorage{
		client: minioClient,
		bucket: cfg.MinioBucket,
	}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// UploadFile uploads data to MinIO.
func (m *MinioStorage) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload object %s to minio: %w", objectName, err)
	}
	return nil
}

// DownloadFile retrieves an object from MinIO.
func (m *MinioStorage) DownloadFile(ctx context.Context, objectName string) (*Object, error) {
	object, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from minio: %w", objectName, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	info, err := object.Stat()
	if err != nil {
		object.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("object %s not found in minio: %w", objectName, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s in minio: %w", objectName, err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = ContentTypeForKey(objectName)
	}
	// The caller is responsible for closing the object reader.
	return &Object{ReadCloser: object, ContentType: contentType, Size: info.Size}, nil
}

// DeleteFile removes an object from MinIO.
func (m *MinioStorage) DeleteFile(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object %s from minio: %w", objectName, err)
	}
	return nil
}

// FileExists checks if an object exists in MinIO.
func (m *MinioStorage) FileExists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s in minio: %w", objectName, err)
	}
	return true, nil
}
