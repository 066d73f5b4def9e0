package games

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/openleague/openleague/internal/mail"
	"github.com/openleague/openleague/internal/teams"
)

// reminderWindow is how far ahead the sweep looks for upcoming games.
const reminderWindow = 24 * time.Hour

// RosterPort exposes the team lookups the reminder sweep needs.
type RosterPort interface {
	Get(ctx context.Context, id int64) (teams.Team, error)
	Roster(ctx context.Context, teamID int64) ([]teams.Member, error)
}

// MailPort delivers reminder emails.
type MailPort interface {
	SendGameReminder(ctx context.Context, msg mail.GameReminder) error
}

// ReminderJob emails both rosters ahead of each scheduled game. Runs on a
// cron schedule; the payload is empty.
type ReminderJob struct {
	service *Service
	teams   RosterPort
	mail    MailPort
	logger  *slog.Logger
}

// NewReminderJob constructs the sweep handler.
func NewReminderJob(service *Service, teamsPort RosterPort, mailer MailPort, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{service: service, teams: teamsPort, mail: mailer, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ReminderJob) Handle(ctx context.Context, _ *asynq.Task) error {
	now := time.Now()
	due, err := j.service.DueForReminder(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return err
	}
	for _, game := range due {
		if err := j.remind(ctx, game); err != nil {
			if j.logger != nil {
				j.logger.Error("game reminder", slog.Int64("game_id", game.ID), slog.Any("error", err))
			}
			continue
		}
		// Marked even when individual sends failed; a re-run would
		// duplicate mail for everyone who already got theirs.
		if err := j.service.MarkReminded(ctx, game.ID); err != nil && j.logger != nil {
			j.logger.Error("mark reminded", slog.Int64("game_id", game.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (j *ReminderJob) remind(ctx context.Context, game Game) error {
	home, err := j.teams.Get(ctx, game.HomeTeamID)
	if err != nil {
		return err
	}
	away, err := j.teams.Get(ctx, game.AwayTeamID)
	if err != nil {
		return err
	}
	j.notifyRoster(ctx, game, home, away.Name)
	j.notifyRoster(ctx, game, away, home.Name)
	return nil
}

func (j *ReminderJob) notifyRoster(ctx context.Context, game Game, team teams.Team, opponent string) {
	roster, err := j.teams.Roster(ctx, team.ID)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("reminder roster", slog.Int64("team_id", team.ID), slog.Any("error", err))
		}
		return
	}
	for _, member := range roster {
		if member.Status != teams.MemberActive || member.UserEmail == "" {
			continue
		}
		msg := mail.GameReminder{
			To:       member.UserEmail,
			TeamName: team.Name,
			Opponent: opponent,
			Location: game.Location,
			StartsAt: game.ScheduledAt,
		}
		if err := j.mail.SendGameReminder(ctx, msg); err != nil && j.logger != nil {
			j.logger.Error("send reminder", slog.String("to", member.UserEmail), slog.Any("error", err))
		}
	}
}
