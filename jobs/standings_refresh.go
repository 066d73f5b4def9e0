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

// TaskStandingsRefresh identifies standings cache refresh tasks.
const TaskStandingsRefresh = "standings:refresh"

// StandingsRefreshPayload scopes a refresh. DivisionID zero means every
// division in an active season.
type StandingsRefreshPayload struct {
	DivisionID int64 `json:"division_id"`
}

// NewStandingsRefreshTask builds the refresh task.
func NewStandingsRefreshTask(divisionID int64) (*asynq.Task, error) {
	body, err := json.Marshal(StandingsRefreshPayload{DivisionID: divisionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStandingsRefresh, body, asynq.Queue(QueueDefault)), nil
}

// DivisionSource lists the divisions worth refreshing.
type DivisionSource interface {
	ActiveIDs(ctx context.Context) ([]int64, error)
}

// StandingsSource rebuilds one division's cached table.
type StandingsSource interface {
	Refresh(ctx context.Context, divisionID int64) error
}

// StandingsRefreshJob re-warms division standings so the first reads after
// an overnight invalidation are not served cold.
type StandingsRefreshJob struct {
	Divisions DivisionSource
	Standings StandingsSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewStandingsRefreshJob wires dependencies for the refresh handler.
func NewStandingsRefreshJob(divisionsSource DivisionSource, standingsSource StandingsSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *StandingsRefreshJob {
	return &StandingsRefreshJob{
		Divisions: divisionsSource,
		Standings: standingsSource,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes standings refresh tasks.
func (j *StandingsRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("standings refresh: handler not configured")
	}
	var payload StandingsRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskStandingsRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("division_id", payload.DivisionID))
	logger.Info("starting standings refresh")

	ids := []int64{payload.DivisionID}
	if payload.DivisionID == 0 {
		var err error
		ids, err = j.fetchDivisions(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load active divisions", slog.Any("error", err))
			return resultErr
		}
	}
	if len(ids) == 0 {
		logger.Info("no divisions to refresh")
		return resultErr
	}

	start := j.now()
	refreshed := 0
	for _, id := range ids {
		if err := j.refreshDivision(ctx, id); err != nil {
			resultErr = err
			logger.Error("refresh division", slog.Int64("division_id", id), slog.Any("error", err))
			return resultErr
		}
		refreshed++
	}

	logger.Info("completed standings refresh", slog.Int("divisions", refreshed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *StandingsRefreshJob) refreshDivision(ctx context.Context, divisionID int64) error {
	if j.Standings == nil {
		return nil
	}
	// Bound each rebuild so one slow division cannot stall the sweep.
	divCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return j.Standings.Refresh(divCtx, divisionID)
}

func (j *StandingsRefreshJob) fetchDivisions(ctx context.Context) ([]int64, error) {
	if j.Divisions == nil {
		return nil, errors.New("standings refresh: division source not configured")
	}
	return j.Divisions.ActiveIDs(ctx)
}

func (j *StandingsRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStandingsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskStandingsRefresh))
}

func (j *StandingsRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StandingsRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
