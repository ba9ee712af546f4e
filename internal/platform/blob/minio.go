package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type minioSigner struct {
	log    *logger.Logger
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewMinIOSigner(ctx context.Context, log *logger.Logger, cfg Config) (Signer, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("minio requires BLOB_ENDPOINT and BLOB_BUCKET")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	serviceLog := log.With("service", "MinIOSigner")
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		serviceLog.Warn("minio bucket check failed (continuing)", "bucket", cfg.Bucket, "error", err)
	} else if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		serviceLog.Info("created media bucket", "bucket", cfg.Bucket)
	}
	return &minioSigner{log: serviceLog, client: client, bucket: cfg.Bucket, ttl: cfg.URLTTL}, nil
}

func (s *minioSigner) PresignGet(ctx context.Context, key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *minioSigner) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return u.String(), nil
}
