package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/noah-isme/grievance-api/pkg/config"
)

// ObjectStore issues presigned URLs for citizen attachments.
type ObjectStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewObjectStore connects to MinIO and makes sure the attachment bucket exists.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	ttl := cfg.UploadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

// PresignUpload returns a PUT URL for objectName valid for the configured TTL.
func (s *ObjectStore) PresignUpload(ctx context.Context, objectName string) (string, time.Time, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, s.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign upload: %w", err)
	}
	return u.String(), time.Now().Add(s.ttl), nil
}

// PresignDownload returns a GET URL for an existing object.
func (s *ObjectStore) PresignDownload(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u.String(), nil
}
