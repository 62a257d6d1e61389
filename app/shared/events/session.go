package events

import sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"

// Session topics. Services publish these after the store transaction commits;
// the Discord announcer consumes them to refresh public embeds. A failed
// publish or render never rolls state back.
const (
	SessionCreated   = "session.created"
	SessionUpdated   = "session.updated"
	SessionCompleted = "session.completed"
	SessionCancelled = "session.cancelled"
)

// SessionCreatedPayload announces a freshly stored session.
type SessionCreatedPayload struct {
	SessionID sharedtypes.SessionID `json:"session_id"`
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
}

// SessionUpdatedPayload signals any committed queue, roster or status
// mutation on an active session.
type SessionUpdatedPayload struct {
	SessionID sharedtypes.SessionID `json:"session_id"`
}

// SessionCompletedPayload is published by the sweeper for each session it
// transitions to COMPLETED.
type SessionCompletedPayload struct {
	SessionID sharedtypes.SessionID `json:"session_id"`
}

// SessionCancelledPayload signals a creator-initiated cancellation.
type SessionCancelledPayload struct {
	SessionID sharedtypes.SessionID `json:"session_id"`
}
