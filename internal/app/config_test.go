package app

import (
	"testing"
	"time"

	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BlobBackend != BlobBackendLocal {
		t.Fatalf("blob backend: want=%q got=%q", BlobBackendLocal, cfg.BlobBackend)
	}
	if cfg.TagRefreshCron != "@every 6h" {
		t.Fatalf("tag refresh cron: got=%q", cfg.TagRefreshCron)
	}
	if cfg.RepairScanMinAge != 10*time.Minute {
		t.Fatalf("scan min age: got=%v", cfg.RepairScanMinAge)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
	if cfg.FingerprintWorkers <= 0 {
		t.Fatalf("fingerprint workers: got=%d", cfg.FingerprintWorkers)
	}
	if cfg.MaxImagePixels != fingerprint.DefaultMaxPixels {
		t.Fatalf("max image pixels: got=%d", cfg.MaxImagePixels)
	}
	if cfg.RedisEnabled() {
		t.Fatalf("redis must be off without REDIS_ADDR")
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET_KEY": ""}},
		{"bad driver", map[string]string{"JWT_SECRET_KEY": "x", "DB_DRIVER": "mysql"}},
		{"bad upload limit", map[string]string{"JWT_SECRET_KEY": "x", "MAX_UPLOAD_BYTES": "0"}},
		{"bad pixel limit", map[string]string{"JWT_SECRET_KEY": "x", "MAX_IMAGE_PIXELS": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
