package sharedtypes

// Scalar identifier types shared across modules. Discord-assigned IDs are
// snowflake strings; store-assigned IDs are autoincrement integers.
type (
	// UserID is the platform-assigned identifier of a user.
	UserID string

	// GuildID identifies the hosting community.
	GuildID string

	// ChannelID identifies the posting location of a session announcement.
	ChannelID string

	// MessageID identifies a rendered session announcement.
	MessageID string

	// SessionID is the store-assigned identifier of a session.
	SessionID int64

	// AccountID is the store-assigned identifier of a game account.
	AccountID int64
)
