package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const (
	ProviderGCS    = "gcs"
	ProviderMinIO  = "minio"
	ProviderStatic = "static"

	DefaultURLTTL = 6 * time.Hour
)

// Signer hands out time-limited URLs for media objects so workers and
// clients transfer bytes without going through the API.
type Signer interface {
	PresignGet(ctx context.Context, key string) (string, error)
	PresignPut(ctx context.Context, key string, contentType string) (string, error)
}

type Config struct {
	Provider string
	Bucket   string
	URLTTL   time.Duration

	// GCS
	CredentialsJSON string
	CredentialsFile string

	// MinIO / S3 compatible
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Static serves unsigned URLs under BaseURL; for local development.
	BaseURL string
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Signer, error) {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGCS:
		return NewGCSSigner(ctx, log, cfg)
	case ProviderMinIO:
		return NewMinIOSigner(ctx, log, cfg)
	case "", ProviderStatic:
		return NewStaticSigner(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported BLOB_PROVIDER %q", cfg.Provider)
	}
}

type staticSigner struct {
	base string
}

func NewStaticSigner(base string) Signer {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "http://localhost:9000/media"
	}
	return &staticSigner{base: base}
}

func (s *staticSigner) PresignGet(ctx context.Context, key string) (string, error) {
	return s.url(key)
}

func (s *staticSigner) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	return s.url(key)
}

func (s *staticSigner) url(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	return s.base + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}
