package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/openleague/openleague/internal/jobs"
)

type stubInviteStore struct {
	removed int64
	err     error
	cutoff  time.Time
	calls   int
}

func (s *stubInviteStore) DeleteExpiredInvites(_ context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.removed, s.err
}

type stubKeyStore struct {
	olderThan time.Duration
	removed   int64
	err       error
	calls     int
}

func (s *stubKeyStore) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.calls++
	s.olderThan = olderThan
	return s.removed, s.err
}

func newCleanupFixture(t *testing.T) (*CleanupJob, *stubInviteStore, *stubKeyStore) {
	t.Helper()
	invites := &stubInviteStore{removed: 3}
	keys := &stubKeyStore{}
	job := NewCleanupJob(invites, keys, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time {
		return time.Date(2026, 6, 1, 2, 15, 0, 0, time.UTC)
	}
	return job, invites, keys
}

func TestCleanupSweepsBothStores(t *testing.T) {
	job, invites, keys := newCleanupFixture(t)

	task, err := NewCleanupTask(7)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, invites.calls)
	assert.Equal(t, time.Date(2026, 6, 1, 2, 15, 0, 0, time.UTC), invites.cutoff)
	assert.Equal(t, 1, keys.calls)
	assert.Equal(t, 7*24*time.Hour, keys.olderThan)
}

func TestCleanupDefaultsRetention(t *testing.T) {
	job, _, keys := newCleanupFixture(t)

	task, err := NewCleanupTask(0)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Duration(defaultKeyRetentionDays)*24*time.Hour, keys.olderThan)
}

func TestCleanupSkipsRetryOnBadPayload(t *testing.T) {
	job, invites, _ := newCleanupFixture(t)

	task := asynq.NewTask(TaskMaintenanceCleanup, []byte("{"))
	err := job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, invites.calls)
}

func TestCleanupStopsOnInviteError(t *testing.T) {
	job, invites, keys := newCleanupFixture(t)
	invites.err = errors.New("boom")

	task, err := NewCleanupTask(7)
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.Zero(t, keys.calls)
}
