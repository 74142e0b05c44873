package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type WorkerConfig struct {
	Concurrency int
	// RefreshCron schedules tags:refresh; empty disables it.
	RefreshCron string
	// ScanCron schedules media:repair_scan; empty disables it.
	ScanCron string
	TagFile  string
}

// asynqLogger routes asynq's own logging through zap.
type asynqLogger struct{ log *logger.Logger }

func (l asynqLogger) Debug(args ...interface{}) { l.log.SugaredLogger.Debug(args...) }
func (l asynqLogger) Info(args ...interface{})  { l.log.SugaredLogger.Info(args...) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.SugaredLogger.Warn(args...) }
func (l asynqLogger) Error(args ...interface{}) { l.log.SugaredLogger.Error(args...) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.SugaredLogger.Fatal(args...) }

var _ asynq.Logger = asynqLogger{}

func NewServer(log *logger.Logger, redis asynq.RedisConnOpt, cfg WorkerConfig) *asynq.Server {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueRepair:      3,
			QueueMaintenance: 1,
		},
		Logger: asynqLogger{log: log.With("component", "AsynqServer")},
	})
}

// NewScheduler registers the periodic maintenance tasks.
func NewScheduler(log *logger.Logger, redis asynq.RedisConnOpt, cfg WorkerConfig) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Logger: asynqLogger{log: log.With("component", "AsynqScheduler")},
	})
	if cfg.RefreshCron != "" {
		t, err := NewTagsRefreshTask(cfg.TagFile)
		if err != nil {
			return nil, err
		}
		if _, err := s.Register(cfg.RefreshCron, t); err != nil {
			return nil, err
		}
		log.Info("Tag refresh scheduled", "cron", cfg.RefreshCron, "file", cfg.TagFile)
	}
	if cfg.ScanCron != "" {
		if _, err := s.Register(cfg.ScanCron, NewRepairScanTask()); err != nil {
			return nil, err
		}
		log.Info("Repair scan scheduled", "cron", cfg.ScanCron)
	}
	return s, nil
}
