// Package objectstore locates protected media objects and mints time-boxed
// presigned URLs for them.
package objectstore

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds object storage configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	KeyPrefix string
}

// Locator resolves asset identifiers to objects in one bucket. It never
// reads object bodies; existence checks and presigned references are its
// whole surface.
type Locator struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewLocator connects to the object store and verifies the bucket exists.
func NewLocator(ctx context.Context, cfg Config) (*Locator, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &Locator{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

// Exists reports whether the asset's object is present. A missing key is a
// definite false, not an error.
func (l *Locator) Exists(ctx context.Context, assetID string) (bool, error) {
	_, err := l.client.StatObject(ctx, l.bucket, l.objectKey(assetID), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", assetID, err)
	}
	return true, nil
}

// SignReference mints a presigned GET URL valid for the given ttl.
func (l *Locator) SignReference(ctx context.Context, assetID string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	url, err := l.client.PresignedGetObject(ctx, l.bucket, l.objectKey(assetID), ttl, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign object %s: %w", assetID, err)
	}
	return url.String(), expiresAt, nil
}

func (l *Locator) objectKey(assetID string) string {
	if l.prefix == "" {
		return assetID
	}
	return path.Join(l.prefix, assetID)
}
