// Package cli implements the `openleague jobs` subcommands: queue pokes
// for operators that work without booting the API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/openleague/openleague/jobs"
)

// triggerable maps task names operators may enqueue by hand to
// default-payload constructors. Invite delivery is absent on purpose: it
// needs a real invite id.
var triggerable = map[string]func() (*asynq.Task, error){
	jobs.TaskGameReminders:      func() (*asynq.Task, error) { return jobs.NewGameRemindersTask(), nil },
	jobs.TaskStandingsRefresh:   func() (*asynq.Task, error) { return jobs.NewStandingsRefreshTask(0) },
	jobs.TaskMaintenanceCleanup: func() (*asynq.Task, error) { return jobs.NewCleanupTask(30) },
}

// SupportedTasks lists the names Trigger accepts, sorted for display.
func SupportedTasks() []string {
	names := make([]string, 0, len(triggerable))
	for name := range triggerable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobsCLI bundles the asynq client and inspector behind the queue
// subcommands.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the helpers to Redis at redisAddr. Connections are
// lazy; a bad address surfaces on first use.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{
		client:    asynq.NewClient(opts),
		inspector: asynq.NewInspector(opts),
	}
}

// Close releases both connections.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues a supported task by name with its default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	build, ok := triggerable[name]
	if !ok {
		return nil, fmt.Errorf("jobs cli: unsupported job %q (supported: %s)", name, strings.Join(SupportedTasks(), ", "))
	}
	task, err := build()
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the default queue.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports counters for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
	}
	return stats, nil
}

// ListScheduled returns up to size tasks waiting on their cron slot.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
