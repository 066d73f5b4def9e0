package authz

import "strings"

// Role is a user's standing on the platform. Exactly one role per user; the
// set is closed.
type Role string

const (
	// RoleAdmin administers the whole platform.
	RoleAdmin Role = "admin"
	// RoleLeagueManager runs seasons, divisions, and schedules.
	RoleLeagueManager Role = "league_manager"
	// RoleTeamCaptain manages a roster and speaks for a team.
	RoleTeamCaptain Role = "team_captain"
	// RolePlayer is a rostered participant.
	RolePlayer Role = "player"
	// RoleReferee officiates games assigned to them.
	RoleReferee Role = "referee"
)

// baseGrants is the static role table: each role's baseline permission set
// before context qualifiers apply. Slice order is the table's enumeration
// order and is what UserPermissions preserves. Built once; never mutated.
var baseGrants = map[Role][]Permission{
	RoleAdmin: {
		PermViewLeagues,
		PermManageLeagues,
		PermManageSeasons,
		PermManageDivisions,
		PermViewSchedule,
		PermManageGames,
		PermUpdateScores,
		PermManageTeams,
		PermApproveRegistrations,
		PermManageUsers,
		PermViewReports,
	},
	RoleLeagueManager: {
		PermViewLeagues,
		PermManageSeasons,
		PermManageDivisions,
		PermViewSchedule,
		PermManageGames,
		PermUpdateScores,
		PermManageTeams,
		PermApproveRegistrations,
		PermViewReports,
	},
	RoleTeamCaptain: {
		PermViewLeagues,
		PermViewSchedule,
		PermRegisterTeam,
		PermManageOwnTeam,
		PermMessageOwnTeam,
		PermInviteToTeam,
	},
	RolePlayer: {
		PermViewLeagues,
		PermViewSchedule,
		PermMessageOwnTeam,
	},
	RoleReferee: {
		PermViewLeagues,
		PermViewSchedule,
		PermUpdateAssignedGameScore,
	},
}

// AllRoles lists every declared role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleLeagueManager, RoleTeamCaptain, RolePlayer, RoleReferee}
}

// ParseRole normalizes a stored role value. Unknown values come back as-is so
// evaluation fails closed on them rather than erroring.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether the role is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := baseGrants[r]
	return ok
}

// BaseGrants returns the role's baseline permission set in table order. The
// returned slice is a copy; callers may not reach the table itself. An
// unknown role yields an empty set.
func BaseGrants(r Role) []Permission {
	grants := baseGrants[r]
	out := make([]Permission, len(grants))
	copy(out, grants)
	return out
}
