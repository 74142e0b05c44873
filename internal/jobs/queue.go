package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// Enqueuer is the part of *asynq.Client the queue uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

var _ Enqueuer = (*asynq.Client)(nil)

// Queue hands ingestion repairs and maintenance work to the worker process.
type Queue struct {
	log    *logger.Logger
	client Enqueuer
}

var _ ingest.RepairQueue = (*Queue)(nil)

func NewQueue(log *logger.Logger, redis asynq.RedisConnOpt) *Queue {
	return newQueue(log, asynq.NewClient(redis))
}

func newQueue(log *logger.Logger, client Enqueuer) *Queue {
	return &Queue{log: log.With("service", "JobQueue"), client: client}
}

func (q *Queue) Close() error { return q.client.Close() }

// EnqueueRepair is a no-op when a repair for the same media is already queued.
func (q *Queue) EnqueueRepair(ctx context.Context, task ingest.RepairTask) error {
	t, err := NewRepairTask(task)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, t)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		q.log.Info("Repair already queued", "media_id", task.MediaID)
		return nil
	}
	if err != nil {
		return err
	}
	q.log.Info("Repair queued", "media_id", task.MediaID, "task_id", info.ID, "queue", info.Queue)
	return nil
}

func (q *Queue) EnqueueTagsRefresh(ctx context.Context, path string) error {
	t, err := NewTagsRefreshTask(path)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, t)
	return err
}

func (q *Queue) EnqueueRepairScan(ctx context.Context) error {
	_, err := q.client.EnqueueContext(ctx, NewRepairScanTask())
	return err
}
