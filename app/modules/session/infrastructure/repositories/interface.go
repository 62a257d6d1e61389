package sessiondb

import (
	"context"
	"time"

	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// SessionDB is the storage contract for sessions, their queue and roster.
// Multi-row mutations (accept, cancel) are transactional: no intermediate
// state is ever observable by a concurrent reader.
type SessionDB interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id sharedtypes.SessionID) (*Session, error)
	SetAnnouncement(ctx context.Context, id sharedtypes.SessionID, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error

	// UpdateStatusIf flips the status only when the current status is from;
	// it reports whether a row was actually updated.
	UpdateStatusIf(ctx context.Context, id sharedtypes.SessionID, from, to Status) (bool, error)

	// CancelSession atomically marks the session CANCELLED and destroys its
	// queue and roster. Only OPEN or CLOSED sessions can be cancelled.
	CancelSession(ctx context.Context, id sharedtypes.SessionID) (bool, error)

	ListActiveByGuild(ctx context.Context, guildID sharedtypes.GuildID) ([]Session, error)
	ListActiveByCreator(ctx context.Context, creatorID sharedtypes.UserID) ([]Session, error)
	ListExpiredOpen(ctx context.Context, now time.Time) ([]Session, error)

	InsertQueueEntry(ctx context.Context, entry *QueueEntry) error
	GetQueueEntry(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (*QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (bool, error)
	SetStreaming(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID, streaming bool) (bool, error)
	ListQueue(ctx context.Context, sessionID sharedtypes.SessionID) ([]QueueEntry, error)
	CountQueue(ctx context.Context, sessionID sharedtypes.SessionID) (int, error)

	// AcceptQueueEntry inserts the roster entry and deletes the user's queue
	// entry in one transaction; both succeed or neither does.
	AcceptQueueEntry(ctx context.Context, entry *RosterEntry) error
	ListRoster(ctx context.Context, sessionID sharedtypes.SessionID) ([]RosterEntry, error)
}
