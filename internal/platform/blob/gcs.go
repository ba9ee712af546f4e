package blob

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type gcsSigner struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	ttl    time.Duration
}

func gcsClientOptions(cfg Config) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		return append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		return append(opts, option.WithCredentialsFile(path))
	}
	return opts
}

func NewGCSSigner(ctx context.Context, log *logger.Logger, cfg Config) (Signer, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing BLOB_BUCKET for gcs")
	}
	client, err := storage.NewClient(ctx, gcsClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsSigner{
		log:    log.With("service", "GCSSigner"),
		client: client,
		bucket: cfg.Bucket,
		ttl:    cfg.URLTTL,
	}, nil
}

func (s *gcsSigner) PresignGet(ctx context.Context, key string) (string, error) {
	return s.sign(key, http.MethodGet, "")
}

func (s *gcsSigner) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	return s.sign(key, http.MethodPut, contentType)
}

func (s *gcsSigner) sign(key, method, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	u, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      method,
		ContentType: contentType,
		Expires:     time.Now().Add(s.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign gcs url %s: %w", key, err)
	}
	return u, nil
}
