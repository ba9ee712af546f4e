package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.Lock.Backend != LockBackendPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Auth.AccessTokenTTLSeconds != 3600 {
		t.Fatalf("access ttl default: %d", cfg.Auth.AccessTokenTTLSeconds)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOCK_BACKEND", "Memory")
	t.Setenv("BLOB_URL_TTL_SECONDS", "60")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9000" || cfg.DB().Driver != "sqlite" || cfg.Lock.Backend != LockBackendMemory {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.BlobSigner().URLTTL != time.Minute {
		t.Fatalf("blob ttl: %v", cfg.BlobSigner().URLTTL)
	}
	if got := cfg.Origins(); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("origins: %v", got)
	}
}

func TestLoadConfigRejectsRedisWithoutAddr(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for redis lock backend without address")
	}
}
