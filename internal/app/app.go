package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/data/db"
	"github.com/yungbote/mediahub-backend/internal/data/repos"
	"github.com/yungbote/mediahub-backend/internal/jobs"
	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/clip"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
	"github.com/yungbote/mediahub-backend/internal/services"
)

// Core is everything both binaries share: storage, clients, the tag
// vocabulary and the ingestion pipeline.
type Core struct {
	Log    *logger.Logger
	Cfg    Config
	DB     *gorm.DB
	Repos  repos.Set
	Tx     aggregates.TxRunner
	Blobs  blobStore
	Clip   clip.Client
	Index  qdrant.MediaIndex
	Tags   services.TagService
	Media  services.MediaService
	Ingest *ingest.Pipeline
	// Queue is nil without Redis; repairs then stay with the scan.
	Queue *jobs.Queue

	closers []func() error
}

// NewLogger reads LOG_MODE the way every binary does.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func NewCore(ctx context.Context, log *logger.Logger, cfg Config) (*Core, error) {
	c := &Core{Log: log, Cfg: cfg}
	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Core) init(ctx context.Context) error {
	fingerprint.SetMaxPixels(c.Cfg.MaxImagePixels)

	theDB, err := OpenDB(c.Log, c.Cfg)
	if err != nil {
		return err
	}
	c.DB = theDB

	c.Log.Info("Wiring repos...")
	c.Repos = repos.New(theDB, c.Log)
	c.Tx = aggregates.NewGormTxRunner(theDB)

	c.Blobs, err = resolveBlobStore(ctx, c.Log, c.Cfg)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, c.Blobs.Close)

	c.Log.Info("Wiring clients...")
	clipCfg, err := clip.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("clip config: %w", err)
	}
	c.Clip, err = clip.NewClient(c.Log, clipCfg)
	if err != nil {
		return fmt.Errorf("init clip client: %w", err)
	}
	c.Index, err = ResolveMediaIndex(ctx, c.Log, c.Clip.Dim())
	if err != nil {
		return err
	}

	cache, err := services.NewRedisTagCache(c.Log)
	if err != nil {
		return fmt.Errorf("init tag cache: %w", err)
	}
	c.Tags = services.NewTagService(c.Log, c.Repos.Tags, cache, c.Clip)
	c.Media = services.NewMediaService(c.Log, c.Repos.Media, c.Repos.Collections, c.Blobs)

	deps := ingest.Deps{
		Log:         c.Log,
		Tx:          c.Tx,
		Media:       c.Repos.Media,
		Tags:        c.Repos.Tags,
		Collections: c.Repos.Collections,
		Vocabulary:  c.Tags,
		Embedder:    c.Clip,
		Index:       c.Index,
		Blobs:       c.Blobs,
		Hasher:      fingerprint.NewHasher(c.Cfg.FingerprintWorkers),
	}
	if c.Cfg.RedisEnabled() {
		c.Queue = jobs.NewQueue(c.Log, c.RedisOpt())
		c.closers = append(c.closers, c.Queue.Close)
		deps.Repairs = c.Queue
	} else {
		c.Log.Warn("REDIS_ADDR unset; failed side effects wait for the repair scan")
	}
	c.Ingest, err = ingest.NewPipeline(deps)
	if err != nil {
		return fmt.Errorf("init ingest pipeline: %w", err)
	}
	return nil
}

func (c *Core) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Cfg.RedisAddr, Password: c.Cfg.RedisPassword, DB: c.Cfg.RedisDB}
}

// StartCollectors runs the background metric samplers until ctx ends.
func (c *Core) StartCollectors(ctx context.Context) {
	m := observability.Current()
	m.StartServer(ctx, c.Log, c.Cfg.MetricsAddr)
	if c.Cfg.DBDriver == "postgres" {
		m.StartPostgresCollector(ctx, c.Log, c.DB)
	}
	m.StartRedisCollector(ctx, c.Log, c.Cfg.RedisAddr)
	m.StartDegradedCollector(ctx, c.Log, c.DB)
}

func (c *Core) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Log.Warn("close failed", "error", err)
		}
	}
	c.closers = nil
}

// OpenDB connects and migrates the configured database.
func OpenDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	var (
		svc *db.PostgresService
		err error
	)
	switch strings.ToLower(cfg.DBDriver) {
	case "sqlite":
		svc, err = db.NewSQLiteService(log, cfg.SQLiteDSN)
	default:
		svc, err = db.NewPostgresService(log, db.PostgresConfigFromEnv())
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.DBDriver, err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DBDriver, err)
	}
	return svc.DB(), nil
}
