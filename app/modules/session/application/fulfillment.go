package sessionservice

import (
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
)

// RoleCount pairs accepted headcount with the mode's requirement for one role.
type RoleCount struct {
	Accepted int `json:"accepted"`
	Required int `json:"required"`
}

// Fulfillment is the roster progress of a session. Role-restricted modes
// track per-role counts; everything else tracks total headcount against the
// team size.
type Fulfillment struct {
	Mode           gamerules.GameMode           `json:"mode"`
	RoleRestricted bool                         `json:"role_restricted"`
	Roles          map[gamerules.Role]RoleCount `json:"roles,omitempty"`
	Accepted       int                          `json:"accepted"`
	TeamSize       int                          `json:"team_size"`
}

// ComputeFulfillment derives roster progress from the accepted entries.
func ComputeFulfillment(mode gamerules.GameMode, roster []sessiondb.RosterEntry) Fulfillment {
	f := Fulfillment{
		Mode:           mode,
		RoleRestricted: gamerules.RoleRestricted(mode),
		Accepted:       len(roster),
		TeamSize:       gamerules.TeamSize(mode),
	}
	if !f.RoleRestricted {
		return f
	}

	f.Roles = map[gamerules.Role]RoleCount{}
	for role, required := range gamerules.RoleRequirements(mode) {
		f.Roles[role] = RoleCount{Required: required}
	}
	for _, entry := range roster {
		count := f.Roles[entry.Role]
		count.Accepted++
		f.Roles[entry.Role] = count
	}
	return f
}

// RoleFull reports whether the given role slot has reached its requirement.
func (f Fulfillment) RoleFull(role gamerules.Role) bool {
	if !f.RoleRestricted {
		return f.Full()
	}
	count, ok := f.Roles[role]
	if !ok {
		return false
	}
	return count.Accepted >= count.Required
}

// Full reports whether the whole roster target has been reached.
func (f Fulfillment) Full() bool {
	if f.RoleRestricted {
		for _, count := range f.Roles {
			if count.Accepted < count.Required {
				return false
			}
		}
		return true
	}
	return f.TeamSize > 0 && f.Accepted >= f.TeamSize
}
