package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/yeremiapane/qrmenu/config"
)

// ImageStorage hands out upload URLs for product pictures. The bytes go
// straight from the browser to object storage.
type ImageStorage interface {
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

type minioImageStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioImageStorage connects and makes sure the bucket exists.
func NewMinioImageStorage(ctx context.Context, cfg config.MinioConfig) (ImageStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	found, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !found {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}
	return &minioImageStorage{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (m *minioImageStorage) PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedPutObject(ctx, m.bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *minioImageStorage) PublicURL(key string) string {
	return m.publicURL + "/" + m.bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

func (m *minioImageStorage) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}
