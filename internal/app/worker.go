package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediahub-backend/internal/jobs"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// Worker is the asynq process: repairs, repair scans and tag refreshes.
type Worker struct {
	*Core
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux

	otelShutdown func(context.Context) error
}

func NewWorker(ctx context.Context, log *logger.Logger, cfg Config) (*Worker, error) {
	if !cfg.RedisEnabled() {
		return nil, fmt.Errorf("worker requires REDIS_ADDR")
	}
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "mediahub-worker",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	observability.Init(log)

	core, err := NewCore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	wcfg := jobs.WorkerConfig{
		Concurrency: cfg.WorkerConcurrency,
		RefreshCron: cfg.TagRefreshCron,
		ScanCron:    cfg.RepairScanCron,
		TagFile:     cfg.TagFile,
	}
	scheduler, err := jobs.NewScheduler(log, core.RedisOpt(), wcfg)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	mux := asynq.NewServeMux()
	jobs.NewHandlers(log, jobs.HandlerConfig{
		TagFile:    cfg.TagFile,
		ScanMinAge: cfg.RepairScanMinAge,
		ScanLimit:  cfg.RepairScanLimit,
	}, core.Ingest, core.Tags).Register(mux)

	return &Worker{
		Core:         core,
		server:       jobs.NewServer(log, core.RedisOpt(), wcfg),
		scheduler:    scheduler,
		mux:          mux,
		otelShutdown: otelShutdown,
	}, nil
}

// Run processes tasks and fires schedules until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.StartCollectors(ctx)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	w.Log.Info("Worker running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		w.scheduler.Shutdown()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		w.server.Shutdown()
		return nil
	})
	return g.Wait()
}

func (w *Worker) Close() {
	if w == nil {
		return
	}
	w.Core.Close()
	if w.otelShutdown != nil {
		if err := w.otelShutdown(context.Background()); err != nil {
			w.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	w.Log.Sync()
}
