package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/openleague/openleague/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	// TaskMaintenanceCleanup prunes expired invites and stale idempotency keys.
	TaskMaintenanceCleanup = "maintenance:cleanup"

	defaultKeyRetentionDays = 30
)

// CleanupPayload configures how far back the key purge reaches.
type CleanupPayload struct {
	KeyRetentionDays int `json:"key_retention_days"`
}

// NewCleanupTask constructs the periodic maintenance task.
func NewCleanupTask(keyRetentionDays int) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{KeyRetentionDays: keyRetentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenanceCleanup, body, asynq.Queue(QueueDefault)), nil
}

// InviteStore removes invitations whose deadline has passed.
type InviteStore interface {
	DeleteExpiredInvites(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyStore removes idempotency keys older than the retention window.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CleanupJob coordinates the nightly maintenance sweep.
type CleanupJob struct {
	Invites InviteStore
	Keys    KeyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCleanupJob constructs the job handler.
func NewCleanupJob(invites InviteStore, keys KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupJob {
	return &CleanupJob{
		Invites: invites,
		Keys:    keys,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the maintenance sweep.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("cleanup: handler not configured")
	}
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.KeyRetentionDays <= 0 {
		payload.KeyRetentionDays = defaultKeyRetentionDays
	}

	tracker := j.metrics().Track(TaskMaintenanceCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("key_retention_days", payload.KeyRetentionDays))

	if j.Invites != nil {
		removed, err := j.Invites.DeleteExpiredInvites(ctx, j.now())
		if err != nil {
			resultErr = err
			logger.Error("prune expired invites", slog.Any("error", err))
			return resultErr
		}
		if removed > 0 {
			logger.Info("pruned expired invites", slog.Int64("count", removed))
		}
	}

	if j.Keys != nil {
		retention := time.Duration(payload.KeyRetentionDays) * 24 * time.Hour
		removed, err := j.Keys.Cleanup(ctx, retention)
		if err != nil {
			resultErr = err
			logger.Error("prune idempotency keys", slog.Any("error", err))
			return resultErr
		}
		if removed > 0 {
			logger.Info("pruned idempotency keys", slog.Int64("count", removed))
		}
	}

	return resultErr
}

func (j *CleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskMaintenanceCleanup))
	}
	return slog.Default().With(slog.String("job", TaskMaintenanceCleanup))
}

func (j *CleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
