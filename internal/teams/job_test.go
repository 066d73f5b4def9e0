package teams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/mail"
	"github.com/openleague/openleague/jobs"
)

type recordingInviteMailer struct {
	sent []mail.TeamInvite
	err  error
}

func (m *recordingInviteMailer) SendTeamInvite(ctx context.Context, msg mail.TeamInvite) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func seedInvite(t *testing.T, f fixture) Invite {
	t.Helper()
	team, err := f.repo.Create(context.Background(), Team{DivisionID: 1, Name: "Thunder", Status: StatusApproved, CaptainID: 7})
	require.NoError(t, err)
	inv, err := f.repo.CreateInvite(context.Background(), Invite{
		TeamID:    team.ID,
		Email:     "player@example.com",
		Token:     "tok-abc123",
		InvitedBy: 7,
		ExpiresAt: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return inv
}

func TestInviteJobEmailsInvitee(t *testing.T) {
	f := newFixture(t)
	inv := seedInvite(t, f)

	task, err := jobs.NewTeamInviteTask(inv.ID)
	require.NoError(t, err)

	mailer := &recordingInviteMailer{}
	job := NewInviteJob(f.svc, mailer, "https://league.example.com/", nil)

	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "player@example.com", msg.To)
	assert.Equal(t, "Thunder", msg.TeamName)
	assert.Equal(t, "Casey", msg.InviterName)
	assert.Equal(t, "https://league.example.com/invites/tok-abc123", msg.AcceptURL)
	assert.Equal(t, inv.ExpiresAt, msg.ExpiresAt)
}

func TestInviteJobSkipsVanishedInvite(t *testing.T) {
	f := newFixture(t)

	task, err := jobs.NewTeamInviteTask(99)
	require.NoError(t, err)

	mailer := &recordingInviteMailer{}
	job := NewInviteJob(f.svc, mailer, "https://league.example.com", nil)

	// Declined before delivery; retrying would never succeed.
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
	assert.Empty(t, mailer.sent)
}

func TestInviteJobDropsMalformedPayload(t *testing.T) {
	f := newFixture(t)

	mailer := &recordingInviteMailer{}
	job := NewInviteJob(f.svc, mailer, "https://league.example.com", nil)

	bad := asynq.NewTask(jobs.TaskTeamInvite, []byte("not json"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	zero := asynq.NewTask(jobs.TaskTeamInvite, []byte(`{"invite_id":0}`))
	assert.ErrorIs(t, job.Handle(context.Background(), zero), asynq.SkipRetry)

	assert.Empty(t, mailer.sent)
}

func TestInviteJobSurfacesMailFailure(t *testing.T) {
	f := newFixture(t)
	inv := seedInvite(t, f)

	task, err := jobs.NewTeamInviteTask(inv.ID)
	require.NoError(t, err)

	mailer := &recordingInviteMailer{err: errors.New("smtp down")}
	job := NewInviteJob(f.svc, mailer, "https://league.example.com", nil)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
