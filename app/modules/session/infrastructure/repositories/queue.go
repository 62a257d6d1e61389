package sessiondb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/dbutil"
)

// InsertQueueEntry adds a pending join request. The (session, user) unique
// constraint is the authority on duplicates: two overlapping joins cannot
// both pass, the loser surfaces as ErrAlreadyInQueue.
func (db *SessionDBImpl) InsertQueueEntry(ctx context.Context, entry *QueueEntry) error {
	slog.DebugContext(ctx, "Executing SessionDBImpl.InsertQueueEntry",
		slog.Int64("session_id", int64(entry.SessionID)),
		slog.String("user_id", string(entry.UserID)),
	)

	err := db.DB.NewInsert().
		Model(entry).
		ExcludeColumn("id").
		Returning("id").
		Scan(ctx, &entry.ID)
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: session #%d", apperrors.ErrAlreadyInQueue, entry.SessionID)
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

// GetQueueEntry fetches the pending entry for (session, user).
func (db *SessionDBImpl) GetQueueEntry(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (*QueueEntry, error) {
	entry := new(QueueEntry)
	err := db.DB.NewSelect().
		Model(entry).
		Where("session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: session #%d", apperrors.ErrNotInQueue, sessionID)
		}
		return nil, fmt.Errorf("failed to fetch queue entry: %w", err)
	}
	return entry, nil
}

// DeleteQueueEntry removes the entry for (session, user); the bool reports
// whether anything was actually deleted.
func (db *SessionDBImpl) DeleteQueueEntry(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (bool, error) {
	res, err := db.DB.NewDelete().
		Model((*QueueEntry)(nil)).
		Where("session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete queue entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// SetStreaming updates the streaming flag on an existing queue entry.
func (db *SessionDBImpl) SetStreaming(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID, streaming bool) (bool, error) {
	res, err := db.DB.NewUpdate().
		Model((*QueueEntry)(nil)).
		Set("is_streaming = ?", streaming).
		Where("session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to set streaming flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// ListQueue returns the session's queue in FIFO order with user profiles
// attached.
func (db *SessionDBImpl) ListQueue(ctx context.Context, sessionID sharedtypes.SessionID) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := db.DB.NewSelect().
		Model(&entries).
		Relation("User").
		Where("sq.session_id = ?", sessionID).
		Order("sq.joined_at ASC", "sq.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return entries, nil
}

// CountQueue returns the number of pending entries for the session.
func (db *SessionDBImpl) CountQueue(ctx context.Context, sessionID sharedtypes.SessionID) (int, error) {
	count, err := db.DB.NewSelect().
		Model((*QueueEntry)(nil)).
		Where("session_id = ?", sessionID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return count, nil
}
