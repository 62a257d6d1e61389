package sessiondb

import (
	"time"

	"github.com/uptrace/bun"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// Status is the session lifecycle state. CANCELLED and COMPLETED are
// terminal; the session row itself is never deleted.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Session is a scheduled group-play event.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID          sharedtypes.SessionID `bun:"id,pk,autoincrement" json:"id"`
	CreatorID   sharedtypes.UserID    `bun:"creator_id,notnull" json:"creator_id"`
	GuildID     sharedtypes.GuildID   `bun:"guild_id,notnull" json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `bun:"channel_id,notnull" json:"channel_id"`
	GameMode    gamerules.GameMode    `bun:"game_mode,notnull" json:"game_mode"`
	ScheduledAt time.Time             `bun:"scheduled_at,notnull" json:"scheduled_at"`
	Timezone    string                `bun:"timezone,notnull" json:"timezone"`
	Description string                `bun:"description,nullzero" json:"description,omitempty"`
	MaxRankDiff int                   `bun:"max_rank_diff,nullzero" json:"max_rank_diff,omitempty"`
	Status      Status                `bun:"status,notnull,default:'OPEN'" json:"status"`
	MessageID   sharedtypes.MessageID `bun:"message_id,nullzero" json:"message_id,omitempty"`
	CreatedAt   time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// QueueEntry is a user's pending request to join a session. The account IDs
// and preferred roles are snapshots taken at join time.
type QueueEntry struct {
	bun.BaseModel `bun:"table:session_queue,alias:sq"`

	ID             int64                     `bun:"id,pk,autoincrement" json:"id"`
	SessionID      sharedtypes.SessionID     `bun:"session_id,notnull,unique:session_queue_member" json:"session_id"`
	UserID         sharedtypes.UserID        `bun:"user_id,notnull,unique:session_queue_member" json:"user_id"`
	AccountIDs     sharedtypes.AccountIDList `bun:"account_ids,type:text" json:"account_ids"`
	PreferredRoles sharedtypes.RoleList      `bun:"preferred_roles,type:text" json:"preferred_roles"`
	IsStreaming    bool                      `bun:"is_streaming,notnull,default:false" json:"is_streaming"`
	Note           string                    `bun:"note,nullzero" json:"note,omitempty"`
	JoinedAt       time.Time                 `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joined_at"`

	User *profiledb.User `bun:"rel:belongs-to,join:user_id=user_id" json:"user,omitempty"`
}

// RosterEntry is a creator-approved participant assignment.
type RosterEntry struct {
	bun.BaseModel `bun:"table:session_roster,alias:sr"`

	ID          int64                 `bun:"id,pk,autoincrement" json:"id"`
	SessionID   sharedtypes.SessionID `bun:"session_id,notnull,unique:session_roster_assignment" json:"session_id"`
	UserID      sharedtypes.UserID    `bun:"user_id,notnull,unique:session_roster_assignment" json:"user_id"`
	AccountID   sharedtypes.AccountID `bun:"account_id,notnull" json:"account_id"`
	Role        gamerules.Role        `bun:"role,notnull,unique:session_roster_assignment" json:"role"`
	IsStreaming bool                  `bun:"is_streaming,notnull,default:false" json:"is_streaming"`
	SelectedBy  sharedtypes.UserID    `bun:"selected_by,nullzero" json:"selected_by,omitempty"`
	SelectedAt  time.Time             `bun:"selected_at,nullzero,notnull,default:current_timestamp" json:"selected_at"`

	User    *profiledb.User        `bun:"rel:belongs-to,join:user_id=user_id" json:"user,omitempty"`
	Account *profiledb.GameAccount `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
}
