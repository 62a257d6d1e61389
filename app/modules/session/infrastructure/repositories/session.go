package sessiondb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/dbutil"
)

// SessionDBImpl is the bun-backed implementation of SessionDB.
type SessionDBImpl struct {
	DB *bun.DB
}

var _ SessionDB = (*SessionDBImpl)(nil)

// CreateSession inserts a new session and fills in the generated ID.
func (db *SessionDBImpl) CreateSession(ctx context.Context, session *Session) error {
	slog.DebugContext(ctx, "Executing SessionDBImpl.CreateSession",
		slog.String("creator_id", string(session.CreatorID)),
		slog.String("game_mode", string(session.GameMode)),
	)

	err := db.DB.NewInsert().
		Model(session).
		ExcludeColumn("id").
		Returning("id").
		Scan(ctx, &session.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession fetches a session by ID.
func (db *SessionDBImpl) GetSession(ctx context.Context, id sharedtypes.SessionID) (*Session, error) {
	session := new(Session)
	err := db.DB.NewSelect().
		Model(session).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: #%d", apperrors.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return session, nil
}

// SetAnnouncement records where the public embed for this session lives so it
// can be edited later.
func (db *SessionDBImpl) SetAnnouncement(ctx context.Context, id sharedtypes.SessionID, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	_, err := db.DB.NewUpdate().
		Model((*Session)(nil)).
		Set("channel_id = ?", channelID).
		Set("message_id = ?", messageID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set announcement: %w", err)
	}
	return nil
}

// UpdateStatusIf performs a compare-and-set on the status column.
func (db *SessionDBImpl) UpdateStatusIf(ctx context.Context, id sharedtypes.SessionID, from, to Status) (bool, error) {
	res, err := db.DB.NewUpdate().
		Model((*Session)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// CancelSession flips the status to CANCELLED and clears queue and roster in
// a single transaction. Partial cancellation must never be observable.
func (db *SessionDBImpl) CancelSession(ctx context.Context, id sharedtypes.SessionID) (bool, error) {
	var cancelled bool
	err := db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*Session)(nil)).
			Set("status = ?", StatusCancelled).
			Where("id = ?", id).
			Where("status IN (?)", bun.In([]Status{StatusOpen, StatusClosed})).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark session cancelled: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		cancelled = true

		if _, err := tx.NewDelete().
			Model((*QueueEntry)(nil)).
			Where("session_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear session queue: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*RosterEntry)(nil)).
			Where("session_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear session roster: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		slog.InfoContext(ctx, "Session cancelled", slog.Int64("session_id", int64(id)))
	}
	return cancelled, nil
}

// ListActiveByGuild returns the guild's OPEN and CLOSED sessions ordered by
// scheduled time.
func (db *SessionDBImpl) ListActiveByGuild(ctx context.Context, guildID sharedtypes.GuildID) ([]Session, error) {
	var sessions []Session
	err := db.DB.NewSelect().
		Model(&sessions).
		Where("guild_id = ?", guildID).
		Where("status IN (?)", bun.In([]Status{StatusOpen, StatusClosed})).
		Order("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild sessions: %w", err)
	}
	return sessions, nil
}

// ListActiveByCreator returns the creator's OPEN and CLOSED sessions; used by
// the manage/cancel autocomplete.
func (db *SessionDBImpl) ListActiveByCreator(ctx context.Context, creatorID sharedtypes.UserID) ([]Session, error) {
	var sessions []Session
	err := db.DB.NewSelect().
		Model(&sessions).
		Where("creator_id = ?", creatorID).
		Where("status IN (?)", bun.In([]Status{StatusOpen, StatusClosed})).
		Order("scheduled_at ASC").
		Limit(25).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator sessions: %w", err)
	}
	return sessions, nil
}

// ListExpiredOpen returns OPEN sessions whose scheduled time has passed.
// CLOSED sessions are deliberately excluded: a paused session does not
// auto-complete.
func (db *SessionDBImpl) ListExpiredOpen(ctx context.Context, now time.Time) ([]Session, error) {
	var sessions []Session
	err := db.DB.NewSelect().
		Model(&sessions).
		Where("status = ?", StatusOpen).
		Where("scheduled_at <= ?", now).
		Order("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return sessions, nil
}
