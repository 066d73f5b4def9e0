package authz

// Permission identifies a named action a role may perform. The set is closed:
// every permission the platform checks is declared here.
type Permission string

// League administration permissions.
const (
	PermViewLeagues     Permission = "view:leagues"
	PermManageLeagues   Permission = "manage:leagues"
	PermManageSeasons   Permission = "manage:seasons"
	PermManageDivisions Permission = "manage:divisions"
)

// Scheduling and scoring permissions.
const (
	PermViewSchedule Permission = "view:schedule"
	PermManageGames  Permission = "manage:games"
	// PermUpdateScores allows score entry on any game.
	PermUpdateScores Permission = "update:scores"
	// PermUpdateAssignedGameScore allows score entry only on games the
	// requester is assigned to officiate. Context-qualified.
	PermUpdateAssignedGameScore Permission = "update:assigned_game_score"
)

// Team permissions. The own_team variants are context-qualified: they apply
// only to a team the requester belongs to.
const (
	PermManageTeams    Permission = "manage:teams"
	PermManageOwnTeam  Permission = "manage:own_team"
	PermMessageOwnTeam Permission = "message:own_team"
	PermInviteToTeam   Permission = "invite:to_team"
	PermRegisterTeam   Permission = "register:team"
)

// Platform permissions.
const (
	PermApproveRegistrations Permission = "approve:registrations"
	PermManageUsers          Permission = "manage:users"
	PermViewReports          Permission = "view:reports"
)

// AllPermissions lists every declared permission. Handy for seeding and for
// validating role table entries in tests.
func AllPermissions() []Permission {
	return []Permission{
		PermViewLeagues,
		PermManageLeagues,
		PermManageSeasons,
		PermManageDivisions,
		PermViewSchedule,
		PermManageGames,
		PermUpdateScores,
		PermUpdateAssignedGameScore,
		PermManageTeams,
		PermManageOwnTeam,
		PermMessageOwnTeam,
		PermInviteToTeam,
		PermRegisterTeam,
		PermApproveRegistrations,
		PermManageUsers,
		PermViewReports,
	}
}
