package profiledb

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// User is a member profile. One row per platform user; created once by the
// setup command, never auto-created.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID         sharedtypes.UserID   `bun:"user_id,pk" json:"user_id"`
	Username       string               `bun:"username,notnull" json:"username"`
	PreferredRoles sharedtypes.RoleList `bun:"preferred_roles,type:text" json:"preferred_roles"`
	Timezone       string               `bun:"timezone,notnull" json:"timezone"`
	CreatedAt      time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Accounts []*GameAccount `bun:"rel:has-many,join:user_id=user_id" json:"accounts,omitempty"`
}

// GameAccount is one of a user's game accounts with up to four independent
// (rank, division) pairs: one per queue role plus the role-agnostic alt mode.
type GameAccount struct {
	bun.BaseModel `bun:"table:game_accounts,alias:ga"`

	ID          sharedtypes.AccountID `bun:"id,pk,autoincrement" json:"id"`
	UserID      sharedtypes.UserID    `bun:"user_id,notnull,unique:game_accounts_owner_name" json:"user_id"`
	AccountName string                `bun:"account_name,notnull,unique:game_accounts_owner_name" json:"account_name"`
	IsPrimary   bool                  `bun:"is_primary,notnull,default:false" json:"is_primary"`

	TankRank        gamerules.Rank     `bun:"tank_rank,nullzero" json:"tank_rank,omitempty"`
	TankDivision    gamerules.Division `bun:"tank_division,nullzero" json:"tank_division,omitempty"`
	DPSRank         gamerules.Rank     `bun:"dps_rank,nullzero" json:"dps_rank,omitempty"`
	DPSDivision     gamerules.Division `bun:"dps_division,nullzero" json:"dps_division,omitempty"`
	SupportRank     gamerules.Rank     `bun:"support_rank,nullzero" json:"support_rank,omitempty"`
	SupportDivision gamerules.Division `bun:"support_division,nullzero" json:"support_division,omitempty"`
	AltRank         gamerules.Rank     `bun:"alt_rank,nullzero" json:"alt_rank,omitempty"`
	AltDivision     gamerules.Division `bun:"alt_division,nullzero" json:"alt_division,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// RoleRank returns the account's (rank, division) pair for a queue role. The
// placeholder role maps to the alt-mode pair.
func (a *GameAccount) RoleRank(role gamerules.Role) (gamerules.Rank, gamerules.Division) {
	switch role {
	case gamerules.RoleTank:
		return a.TankRank, a.TankDivision
	case gamerules.RoleDPS:
		return a.DPSRank, a.DPSDivision
	case gamerules.RoleSupport:
		return a.SupportRank, a.SupportDivision
	default:
		return a.AltRank, a.AltDivision
	}
}
