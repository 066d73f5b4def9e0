package teams

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/openleague/openleague/internal/mail"
	"github.com/openleague/openleague/jobs"
)

// MailPort delivers invitation emails.
type MailPort interface {
	SendTeamInvite(ctx context.Context, msg mail.TeamInvite) error
}

// InviteJob processes team invitation email tasks.
type InviteJob struct {
	service *Service
	mail    MailPort
	baseURL string
	logger  *slog.Logger
}

// NewInviteJob constructs a job handler. baseURL roots the accept link.
func NewInviteJob(service *Service, mailer MailPort, baseURL string, logger *slog.Logger) *InviteJob {
	return &InviteJob{service: service, mail: mailer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *InviteJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.TeamInvitePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.InviteID == 0 {
		return asynq.SkipRetry
	}
	details, err := j.service.InviteDetails(ctx, payload.InviteID)
	if err != nil {
		// Declined or expired before the worker got here.
		if errors.Is(err, ErrInviteNotFound) {
			return asynq.SkipRetry
		}
		if j.logger != nil {
			j.logger.Error("load invite", slog.Int64("invite_id", payload.InviteID), slog.Any("error", err))
		}
		return err
	}
	msg := mail.TeamInvite{
		To:          details.Invite.Email,
		TeamName:    details.Team.Name,
		InviterName: details.InviterName,
		AcceptURL:   j.baseURL + "/invites/" + details.Invite.Token,
		ExpiresAt:   details.Invite.ExpiresAt,
	}
	if err := j.mail.SendTeamInvite(ctx, msg); err != nil {
		if j.logger != nil {
			j.logger.Error("send invite email", slog.Int64("invite_id", payload.InviteID), slog.Any("error", err))
		}
		return err
	}
	return nil
}
