package sessionservice

import (
	"context"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// Board is the full display projection of one session: the row itself, its
// pending queue in join order, the accepted roster and the derived role
// fulfillment. Everything the command surface renders comes from here.
type Board struct {
	Session     *sessiondb.Session      `json:"session"`
	Queue       []sessiondb.QueueEntry  `json:"queue"`
	QueueCount  int                     `json:"queue_count"`
	Roster      []sessiondb.RosterEntry `json:"roster"`
	Fulfillment Fulfillment             `json:"fulfillment"`
}

// GetBoard loads the session with its queue and roster and computes
// fulfillment. Works for any status so cancelled and completed sessions can
// still be rendered.
func (s *SessionService) GetBoard(ctx context.Context, sessionID sharedtypes.SessionID) (*Board, error) {
	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	queue, err := s.SessionDB.ListQueue(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := s.SessionDB.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Board{
		Session:     session,
		Queue:       queue,
		QueueCount:  len(queue),
		Roster:      roster,
		Fulfillment: ComputeFulfillment(session.GameMode, roster),
	}, nil
}

// ListActiveSessions returns the guild's OPEN and CLOSED sessions ordered by
// scheduled time.
func (s *SessionService) ListActiveSessions(ctx context.Context, guildID sharedtypes.GuildID) ([]sessiondb.Session, error) {
	return s.SessionDB.ListActiveByGuild(ctx, guildID)
}

// ListOwnSessions returns the creator's active sessions, for the management
// command's session picker.
func (s *SessionService) ListOwnSessions(ctx context.Context, creatorID sharedtypes.UserID) ([]sessiondb.Session, error) {
	return s.SessionDB.ListActiveByCreator(ctx, creatorID)
}

// RankCompatible reports whether the account's (rank, division) in the given
// role is within the session's allowed spread of the reference pair. A session
// with no rank restriction, or an account with no rank recorded for the role,
// is always compatible. Advisory only: it annotates the management view and
// never blocks a queue join.
func RankCompatible(session *sessiondb.Session, account *profiledb.GameAccount, role gamerules.Role, refRank gamerules.Rank, refDiv gamerules.Division) bool {
	if session.MaxRankDiff <= 0 {
		return true
	}
	rank, div := account.RoleRank(role)
	if rank == "" {
		return true
	}
	return gamerules.IsRankCompatible(refRank, refDiv, rank, div, session.MaxRankDiff)
}
