package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type Repairer interface {
	Repair(ctx context.Context, task ingest.RepairTask) error
	EnqueueDegraded(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

type TagRefresher interface {
	Refresh(ctx context.Context, names []string) (int, error)
}

type HandlerConfig struct {
	TagFile string
	// ScanMinAge keeps the scan away from uploads still inside their own run.
	ScanMinAge time.Duration
	ScanLimit  int
}

type Handlers struct {
	log      *logger.Logger
	cfg      HandlerConfig
	repairer Repairer
	tags     TagRefresher
}

func NewHandlers(log *logger.Logger, cfg HandlerConfig, repairer Repairer, tags TagRefresher) *Handlers {
	if cfg.ScanMinAge <= 0 {
		cfg.ScanMinAge = 10 * time.Minute
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 500
	}
	return &Handlers{
		log:      log.With("component", "JobHandlers"),
		cfg:      cfg,
		repairer: repairer,
		tags:     tags,
	}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeMediaRepair, h.HandleRepair)
	mux.HandleFunc(TypeRepairScan, h.HandleRepairScan)
	mux.HandleFunc(TypeTagsRefresh, h.HandleTagsRefresh)
}

func (h *Handlers) HandleRepair(ctx context.Context, t *asynq.Task) error {
	var task ingest.RepairTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("decode repair payload: %v: %w", err, asynq.SkipRetry)
	}
	metrics := observability.Current()
	err := h.repairer.Repair(ctx, task)
	if errors.Is(err, ingest.ErrBlobLost) {
		metrics.ObserveRepair("blob_lost")
		h.log.Error("Media blob lost; giving up", "media_id", task.MediaID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		metrics.ObserveRepair("retry")
		h.log.Warn("Repair attempt failed", "media_id", task.MediaID, "error", err)
		return err
	}
	metrics.ObserveRepair("ok")
	return nil
}

func (h *Handlers) HandleRepairScan(ctx context.Context, _ *asynq.Task) error {
	n, err := h.repairer.EnqueueDegraded(ctx, h.cfg.ScanMinAge, h.cfg.ScanLimit)
	if err != nil {
		return err
	}
	if n > 0 {
		h.log.Info("Degraded media queued for repair", "count", n)
	}
	return nil
}

func (h *Handlers) HandleTagsRefresh(ctx context.Context, t *asynq.Task) error {
	var p tagsRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode tags payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	path := p.Path
	if path == "" {
		path = h.cfg.TagFile
	}
	if path == "" {
		h.log.Warn("No tag file configured; skipping refresh")
		return nil
	}
	names, err := LoadTagFile(path)
	if err != nil {
		return fmt.Errorf("load tag file: %w", err)
	}
	_, err = h.tags.Refresh(ctx, names)
	return err
}
