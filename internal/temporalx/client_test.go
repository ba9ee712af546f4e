package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("TEMPORAL_NAMESPACE_RETENTION_DAYS", "9000")
	t.Setenv("TEMPORAL_AUTO_REGISTER_NAMESPACE", "true")
	t.Setenv("TEMPORAL_BACKOFF_MS", "100")
	t.Setenv("TEMPORAL_BACKOFF_MAX_MS", "300")

	cfg := LoadConfig()
	if !cfg.Enabled() || cfg.Namespace != "enrichment" || cfg.TaskQueue != "enrichment-reconcile" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Retention != maxRetentionDays*24*time.Hour {
		t.Fatalf("retention not clamped: %s", cfg.Retention)
	}
	if !cfg.AutoRegisterNamespace {
		t.Fatalf("auto register not read")
	}
	if d := cfg.RetryDelay(1); d != 100*time.Millisecond {
		t.Fatalf("RetryDelay(1) = %s", d)
	}
	if d := cfg.RetryDelay(5); d != 300*time.Millisecond {
		t.Fatalf("RetryDelay(5) = %s", d)
	}
}

func TestNewClientDisabled(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := NewClient(context.Background(), log, Config{})
	if err != nil || c != nil {
		t.Fatalf("disabled client: c=%v err=%v", c, err)
	}
	if err := EnsureNamespace(context.Background(), log, Config{Namespace: "enrichment"}); err != nil {
		t.Fatalf("EnsureNamespace without address: %v", err)
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("expected error without client cert and key")
	}
	if _, err := clientOptions(nil, Config{Address: "x", ClientCertPath: "/nonexistent/cert.pem", ClientKeyPath: "/nonexistent/key.pem"}); err == nil {
		t.Fatalf("expected error for unreadable key pair")
	}
}

func TestIsRetryableRPC(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"exhausted", status.Error(codes.ResourceExhausted, "busy"), true},
		{"permission", status.Error(codes.PermissionDenied, "no"), false},
		{"local deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableRPC(tc.err); got != tc.want {
				t.Fatalf("isRetryableRPC = %v want %v", got, tc.want)
			}
		})
	}
}

func TestPauseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Pause(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if err := Pause(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Pause: %v", err)
	}
}
