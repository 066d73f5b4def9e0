package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTeamInvite is the task type for delivering team invitation emails.
	TaskTeamInvite = "teams:invite"
	// TaskGameReminders sweeps upcoming games and emails both rosters.
	TaskGameReminders = "games:reminders"
)

// TeamInvitePayload identifies the invitation to deliver.
type TeamInvitePayload struct {
	InviteID int64 `json:"invite_id"`
}

// NewTeamInviteTask constructs an Asynq task for one invitation email.
func NewTeamInviteTask(inviteID int64) (*asynq.Task, error) {
	body, err := json.Marshal(TeamInvitePayload{InviteID: inviteID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTeamInvite, body, asynq.Queue(QueueDefault)), nil
}

// NewGameRemindersTask constructs the periodic reminder sweep task. The sweep
// window is fixed in the handler, so the task carries no payload.
func NewGameRemindersTask() *asynq.Task {
	return asynq.NewTask(TaskGameReminders, nil, asynq.Queue(QueueDefault))
}
