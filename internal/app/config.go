package app

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type BlobBackend string

const (
	BlobBackendLocal BlobBackend = "local"
	BlobBackendGCS   BlobBackend = "gcs"
	BlobBackendS3    BlobBackend = "s3"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	// DBDriver is "postgres" or "sqlite"; sqlite reads SQLiteDSN.
	DBDriver  string
	SQLiteDSN string

	JWTSecretKey string
	CORSOrigins  []string

	BlobBackend   BlobBackend
	StorageDir    string
	PublicBaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FingerprintWorkers int
	MaxUploadBytes     int64
	MaxImagePixels     int64
	SearchLimit        int

	MetricsAddr string

	WorkerConcurrency int
	TagRefreshCron    string
	RepairScanCron    string
	RepairScanMinAge  time.Duration
	RepairScanLimit   int
	TagFile           string
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:               envutil.String("PORT", "8080"),
		Environment:        envutil.String("ENVIRONMENT", "development"),
		Version:            envutil.String("APP_VERSION", "dev"),
		DBDriver:           strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		SQLiteDSN:          envutil.String("SQLITE_DSN", "file:mediahub.db?cache=shared"),
		JWTSecretKey:       envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:        splitCSV(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		BlobBackend:        BlobBackend(strings.ToLower(envutil.String("BLOB_BACKEND", string(BlobBackendLocal)))),
		StorageDir:         envutil.String("STORAGE_DIR", "./storage"),
		PublicBaseURL:      strings.TrimRight(envutil.String("PUBLIC_BASE_URL", "/storage"), "/"),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisPassword:      envutil.String("REDIS_PASSWORD", ""),
		RedisDB:            envutil.Int("REDIS_DB", 0),
		FingerprintWorkers: envutil.Int("FINGERPRINT_WORKERS", runtime.NumCPU()),
		MaxUploadBytes:     int64(envutil.Int("MAX_UPLOAD_BYTES", 32<<20)),
		MaxImagePixels:     int64(envutil.Int("MAX_IMAGE_PIXELS", fingerprint.DefaultMaxPixels)),
		SearchLimit:        envutil.Int("SEARCH_LIMIT", 128),
		MetricsAddr:        envutil.String("METRICS_ADDR", ":9090"),
		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		TagRefreshCron:     envutil.String("TAG_REFRESH_CRON", "@every 6h"),
		RepairScanCron:     envutil.String("REPAIR_SCAN_CRON", "@every 15m"),
		RepairScanMinAge:   envutil.Seconds("REPAIR_SCAN_MIN_AGE_SECONDS", 10*time.Minute),
		RepairScanLimit:    envutil.Int("REPAIR_SCAN_LIMIT", 500),
		TagFile:            envutil.String("TAG_FILE", "tags.yaml"),
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	if log != nil {
		log.Info("Config loaded",
			"port", cfg.Port,
			"env", cfg.Environment,
			"db_driver", cfg.DBDriver,
			"blob_backend", cfg.BlobBackend,
			"redis", cfg.RedisAddr != "",
			"fingerprint_workers", cfg.FingerprintWorkers,
		)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER=%q; expected postgres or sqlite", c.DBDriver)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive")
	}
	return nil
}

// RedisEnabled reports whether the job queue and tag cache have a broker.
func (c Config) RedisEnabled() bool { return c.RedisAddr != "" }

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
