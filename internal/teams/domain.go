package teams

import (
	"errors"
	"time"
)

// Module-level sentinel errors.
var (
	ErrNotFound       = errors.New("teams: not found")
	ErrMemberNotFound = errors.New("teams: member not found")
	ErrInviteNotFound = errors.New("teams: invite not found")
	ErrInviteExpired  = errors.New("teams: invite expired")
	ErrNotInvitee     = errors.New("teams: invite addressed to another account")
)

// Status tracks a team through registration review.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MemberStatus tracks a roster spot. Only active memberships count as
// team membership facts for permission checks.
type MemberStatus string

const (
	MemberInvited MemberStatus = "invited"
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
)

// Team is a registered roster inside a division.
type Team struct {
	ID         int64     `json:"id"`
	DivisionID int64     `json:"division_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Status     Status    `json:"status"`
	CaptainID  int64     `json:"captain_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Member is one roster spot. UserName and UserEmail are display fields
// joined from the users table.
type Member struct {
	TeamID       int64        `json:"team_id"`
	UserID       int64        `json:"user_id"`
	Status       MemberStatus `json:"status"`
	JerseyNumber int          `json:"jersey_number"`
	JoinedAt     time.Time    `json:"joined_at"`
	UserName     string       `json:"user_name"`
	UserEmail    string       `json:"user_email"`
}

// Invite is a pending roster invitation, redeemed by token.
type Invite struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	InvitedBy int64     `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the invite is past its redemption window.
func (i Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
