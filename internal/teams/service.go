package teams

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/users"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByDivision(ctx context.Context, divisionID int64, status Status) ([]Team, error)
	ListByStatus(ctx context.Context, status Status) ([]Team, error)
	Get(ctx context.Context, id int64) (Team, error)
	Create(ctx context.Context, t Team) (Team, error)
	UpdateProfile(ctx context.Context, id int64, name, color string) (Team, error)
	SetStatus(ctx context.Context, id int64, status Status) (Team, error)
	ApprovedCount(ctx context.Context, divisionID int64) (int, error)
	Members(ctx context.Context, teamID int64) ([]Member, error)
	Member(ctx context.Context, teamID, userID int64) (Member, error)
	AddMember(ctx context.Context, m Member) error
	SetMemberStatus(ctx context.Context, teamID, userID int64, status MemberStatus) error
	SetJersey(ctx context.Context, teamID, userID int64, number int) error
	DeleteMember(ctx context.Context, teamID, userID int64) error
	CreateInvite(ctx context.Context, inv Invite) (Invite, error)
	InviteByToken(ctx context.Context, token string) (Invite, error)
	InviteByID(ctx context.Context, id int64) (Invite, error)
	DeleteInvite(ctx context.Context, id int64) error
}

// DivisionsPort exposes required division integration.
type DivisionsPort interface {
	Get(ctx context.Context, id int64) (divisions.Division, error)
}

// SeasonsPort exposes required season integration.
type SeasonsPort interface {
	Get(ctx context.Context, id int64) (seasons.Season, error)
}

// UsersPort exposes required account lookups.
type UsersPort interface {
	Get(ctx context.Context, id int64) (users.User, error)
	ByEmail(ctx context.Context, email string) (users.User, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates team registration, rosters, and invites.
type Service struct {
	repo      RepositoryPort
	divisions DivisionsPort
	seasons   SeasonsPort
	users     UsersPort
	approvals *shared.ApprovalRecorder
	audit     AuditPort
	inviteTTL time.Duration
}

// NewService constructs the service. inviteTTL bounds invite redemption.
func NewService(repo RepositoryPort, divisionsPort DivisionsPort, seasonsPort SeasonsPort, usersPort UsersPort, approvals *shared.ApprovalRecorder, audit AuditPort, inviteTTL time.Duration) *Service {
	if inviteTTL <= 0 {
		inviteTTL = 7 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		divisions: divisionsPort,
		seasons:   seasonsPort,
		users:     usersPort,
		approvals: approvals,
		audit:     audit,
		inviteTTL: inviteTTL,
	}
}

// ListByDivision returns a division's teams, optionally filtered by status.
func (s *Service) ListByDivision(ctx context.Context, divisionID int64, status Status) ([]Team, error) {
	return s.repo.ListByDivision(ctx, divisionID, status)
}

// PendingRegistrations returns teams waiting for review, oldest first.
func (s *Service) PendingRegistrations(ctx context.Context) ([]Team, error) {
	return s.repo.ListByStatus(ctx, StatusPending)
}

// Get fetches one team.
func (s *Service) Get(ctx context.Context, id int64) (Team, error) {
	return s.repo.Get(ctx, id)
}

// Roster returns the team's non-removed members.
func (s *Service) Roster(ctx context.Context, teamID int64) ([]Member, error) {
	if _, err := s.repo.Get(ctx, teamID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, teamID)
}

// RegisterInput describes a team registration payload.
type RegisterInput struct {
	DivisionID int64
	Name       string
	Color      string
	ActorID    int64
}

// Register files a pending team registration. The actor becomes captain and
// the first active member. Only accepted while the division's season is in
// registration and the deadline has not passed.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Team{}, fmt.Errorf("%w: team name required", httpx.ErrValidation)
	}
	color, err := NormalizeHex(input.Color)
	if err != nil {
		return Team{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	division, err := s.divisions.Get(ctx, input.DivisionID)
	if err != nil {
		return Team{}, err
	}
	season, err := s.seasons.Get(ctx, division.SeasonID)
	if err != nil {
		return Team{}, err
	}
	now := time.Now()
	if season.Status != seasons.StatusRegistration || now.After(season.RegistrationDeadline) {
		return Team{}, fmt.Errorf("%w: registration is closed for this season", httpx.ErrValidation)
	}

	team, err := s.repo.Create(ctx, Team{
		DivisionID: input.DivisionID,
		Name:       name,
		Color:      color,
		Status:     StatusPending,
		CaptainID:  input.ActorID,
	})
	if err != nil {
		return Team{}, err
	}
	if err := s.repo.AddMember(ctx, Member{TeamID: team.ID, UserID: input.ActorID, Status: MemberActive}); err != nil {
		return Team{}, err
	}
	if s.approvals != nil {
		_ = s.approvals.EnsureSubmit(ctx, "TEAM", team.ID, input.ActorID, fmt.Sprintf("team %s registered", team.Name))
	}
	s.recordAudit(ctx, input.ActorID, "team.register", team.ID, map[string]any{"name": team.Name, "division_id": team.DivisionID})
	return team, nil
}

// Approve admits a pending team into its division, enforcing the team cap.
func (s *Service) Approve(ctx context.Context, teamID, actorID int64, note string) (Team, error) {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	if team.Status != StatusPending {
		return Team{}, fmt.Errorf("%w: team is not pending review", httpx.ErrValidation)
	}
	division, err := s.divisions.Get(ctx, team.DivisionID)
	if err != nil {
		return Team{}, err
	}
	count, err := s.repo.ApprovedCount(ctx, team.DivisionID)
	if err != nil {
		return Team{}, err
	}
	if count >= division.MaxTeams {
		return Team{}, fmt.Errorf("%w: division %s is full", httpx.ErrValidation, division.Name)
	}
	team, err = s.repo.SetStatus(ctx, teamID, StatusApproved)
	if err != nil {
		return Team{}, err
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "TEAM", RefID: teamID, ActorID: actorID, Action: shared.ApprovalApprove, Note: note})
	}
	s.recordAudit(ctx, actorID, "team.approve", teamID, nil)
	return team, nil
}

// Reject declines a pending team registration.
func (s *Service) Reject(ctx context.Context, teamID, actorID int64, note string) (Team, error) {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	if team.Status != StatusPending {
		return Team{}, fmt.Errorf("%w: team is not pending review", httpx.ErrValidation)
	}
	team, err = s.repo.SetStatus(ctx, teamID, StatusRejected)
	if err != nil {
		return Team{}, err
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "TEAM", RefID: teamID, ActorID: actorID, Action: shared.ApprovalReject, Note: note})
	}
	s.recordAudit(ctx, actorID, "team.reject", teamID, nil)
	return team, nil
}

// UpdateInput describes a team profile change.
type UpdateInput struct {
	ID      int64
	Name    string
	Color   string
	ActorID int64
}

// UpdateProfile renames a team or changes its color.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateInput) (Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Team{}, fmt.Errorf("%w: team name required", httpx.ErrValidation)
	}
	color, err := NormalizeHex(input.Color)
	if err != nil {
		return Team{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	team, err := s.repo.UpdateProfile(ctx, input.ID, name, color)
	if err != nil {
		return Team{}, err
	}
	s.recordAudit(ctx, input.ActorID, "team.update", team.ID, map[string]any{"name": team.Name})
	return team, nil
}

// SetJersey assigns a jersey number to an active member.
func (s *Service) SetJersey(ctx context.Context, teamID, userID int64, number int, actorID int64) error {
	if number < 0 || number > 99 {
		return fmt.Errorf("%w: jersey number must be between 0 and 99", httpx.ErrValidation)
	}
	if err := s.repo.SetJersey(ctx, teamID, userID, number); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "team.jersey", teamID, map[string]any{"user_id": userID, "number": number})
	return nil
}

// RemoveMember takes a member off the roster. The captain cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID, actorID int64) error {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team.CaptainID == userID {
		return fmt.Errorf("%w: the captain cannot be removed", httpx.ErrValidation)
	}
	if err := s.repo.SetMemberStatus(ctx, teamID, userID, MemberRemoved); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "team.member_remove", teamID, map[string]any{"user_id": userID})
	return nil
}

// InviteInput describes an invitation payload.
type InviteInput struct {
	TeamID  int64
	Email   string
	ActorID int64
}

// Invite creates an invited roster spot for an existing account and an
// invitation token for redeeming it. Rejected teams cannot invite.
func (s *Service) Invite(ctx context.Context, input InviteInput) (Invite, error) {
	team, err := s.repo.Get(ctx, input.TeamID)
	if err != nil {
		return Invite{}, err
	}
	if team.Status == StatusRejected {
		return Invite{}, fmt.Errorf("%w: team registration was rejected", httpx.ErrValidation)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return Invite{}, fmt.Errorf("%w: email required", httpx.ErrValidation)
	}
	invitee, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return Invite{}, fmt.Errorf("%w: no account with that email", httpx.ErrValidation)
		}
		return Invite{}, err
	}
	if member, err := s.repo.Member(ctx, input.TeamID, invitee.ID); err == nil {
		switch member.Status {
		case MemberActive:
			return Invite{}, fmt.Errorf("%w: already on the roster", httpx.ErrValidation)
		case MemberInvited:
			return Invite{}, fmt.Errorf("%w: already invited", httpx.ErrValidation)
		}
	} else if !errors.Is(err, ErrMemberNotFound) {
		return Invite{}, err
	}

	if err := s.repo.AddMember(ctx, Member{TeamID: input.TeamID, UserID: invitee.ID, Status: MemberInvited}); err != nil {
		// A removed member rejoining keeps their old row.
		if errors.Is(err, httpx.ErrDuplicate) {
			if err := s.repo.SetMemberStatus(ctx, input.TeamID, invitee.ID, MemberInvited); err != nil {
				return Invite{}, err
			}
		} else {
			return Invite{}, err
		}
	}
	invite, err := s.repo.CreateInvite(ctx, Invite{
		TeamID:    input.TeamID,
		UserID:    invitee.ID,
		Email:     invitee.Email,
		Token:     uuid.NewString(),
		InvitedBy: input.ActorID,
		ExpiresAt: time.Now().Add(s.inviteTTL),
	})
	if err != nil {
		return Invite{}, err
	}
	s.recordAudit(ctx, input.ActorID, "team.invite", input.TeamID, map[string]any{"user_id": invitee.ID})
	return invite, nil
}

// InviteByToken resolves an invitation for display. Expired invites resolve
// with ErrInviteExpired.
func (s *Service) InviteByToken(ctx context.Context, token string) (Invite, Team, error) {
	invite, err := s.repo.InviteByToken(ctx, token)
	if err != nil {
		return Invite{}, Team{}, err
	}
	team, err := s.repo.Get(ctx, invite.TeamID)
	if err != nil {
		return Invite{}, Team{}, err
	}
	if invite.Expired(time.Now()) {
		return invite, team, ErrInviteExpired
	}
	return invite, team, nil
}

// AcceptInvite turns an invited roster spot active. Only the invited
// account may redeem the token.
func (s *Service) AcceptInvite(ctx context.Context, token string, userID int64) (Team, error) {
	invite, err := s.repo.InviteByToken(ctx, token)
	if err != nil {
		return Team{}, err
	}
	if invite.UserID != userID {
		return Team{}, ErrNotInvitee
	}
	if invite.Expired(time.Now()) {
		return Team{}, ErrInviteExpired
	}
	if err := s.repo.SetMemberStatus(ctx, invite.TeamID, userID, MemberActive); err != nil {
		return Team{}, err
	}
	if err := s.repo.DeleteInvite(ctx, invite.ID); err != nil {
		return Team{}, err
	}
	team, err := s.repo.Get(ctx, invite.TeamID)
	if err != nil {
		return Team{}, err
	}
	s.recordAudit(ctx, userID, "team.invite_accept", invite.TeamID, nil)
	return team, nil
}

// DeclineInvite drops the invitation and the invited roster spot.
func (s *Service) DeclineInvite(ctx context.Context, token string, userID int64) error {
	invite, err := s.repo.InviteByToken(ctx, token)
	if err != nil {
		return err
	}
	if invite.UserID != userID {
		return ErrNotInvitee
	}
	if err := s.repo.DeleteMember(ctx, invite.TeamID, userID); err != nil && !errors.Is(err, ErrMemberNotFound) {
		return err
	}
	if err := s.repo.DeleteInvite(ctx, invite.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, userID, "team.invite_decline", invite.TeamID, nil)
	return nil
}

// InviteDetails carries everything the invite email needs.
type InviteDetails struct {
	Invite      Invite
	Team        Team
	InviterName string
}

// InviteDetails loads an invitation with its team and inviter, for the
// notification job.
func (s *Service) InviteDetails(ctx context.Context, inviteID int64) (InviteDetails, error) {
	invite, err := s.repo.InviteByID(ctx, inviteID)
	if err != nil {
		return InviteDetails{}, err
	}
	team, err := s.repo.Get(ctx, invite.TeamID)
	if err != nil {
		return InviteDetails{}, err
	}
	details := InviteDetails{Invite: invite, Team: team}
	if inviter, err := s.users.Get(ctx, invite.InvitedBy); err == nil {
		details.InviterName = inviter.Name
	}
	return details, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, teamID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "team",
		EntityID: strconv.FormatInt(teamID, 10),
		Meta:     meta,
	})
}
