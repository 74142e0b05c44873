package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yungbote/mediahub-backend/internal/media/ingest"
)

const (
	TypeMediaRepair = "media:repair"
	TypeRepairScan  = "media:repair_scan"
	TypeTagsRefresh = "tags:refresh"

	QueueRepair      = "repair"
	QueueMaintenance = "maintenance"
)

type tagsRefreshPayload struct {
	// Path overrides the worker's configured tag file.
	Path string `json:"path,omitempty"`
}

func NewRepairTask(task ingest.RepairTask) (*asynq.Task, error) {
	if task.MediaID == "" || len(task.Steps) == 0 {
		return nil, fmt.Errorf("repair task needs a media id and at least one step")
	}
	b, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMediaRepair, b,
		asynq.Queue(QueueRepair),
		asynq.TaskID("repair:"+task.MediaID),
		asynq.MaxRetry(12),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(time.Hour),
	), nil
}

func NewRepairScanTask() *asynq.Task {
	return asynq.NewTask(TypeRepairScan, nil,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
	)
}

func NewTagsRefreshTask(path string) (*asynq.Task, error) {
	b, err := json.Marshal(tagsRefreshPayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTagsRefresh, b,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}
