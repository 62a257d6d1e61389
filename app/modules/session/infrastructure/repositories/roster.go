package sessiondb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/dbutil"
)

// AcceptQueueEntry moves a user from queue to roster. The roster insert and
// the queue delete run in one transaction so the user is never observable in
// both places, or in neither. A second accept for the same (session, user,
// role) hits the unique constraint and surfaces as ErrAlreadyAccepted.
func (db *SessionDBImpl) AcceptQueueEntry(ctx context.Context, entry *RosterEntry) error {
	slog.DebugContext(ctx, "Executing SessionDBImpl.AcceptQueueEntry",
		slog.Int64("session_id", int64(entry.SessionID)),
		slog.String("user_id", string(entry.UserID)),
		slog.String("role", string(entry.Role)),
	)

	err := db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewInsert().
			Model(entry).
			ExcludeColumn("id").
			Returning("id").
			Scan(ctx, &entry.ID); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*QueueEntry)(nil)).
			Where("session_id = ?", entry.SessionID).
			Where("user_id = ?", entry.UserID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to remove queue entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s as %s", apperrors.ErrAlreadyAccepted, entry.UserID, entry.Role)
		}
		return fmt.Errorf("failed to accept queue entry: %w", err)
	}
	return nil
}

// ListRoster returns accepted participants in acceptance order with user and
// account details attached.
func (db *SessionDBImpl) ListRoster(ctx context.Context, sessionID sharedtypes.SessionID) ([]RosterEntry, error) {
	var entries []RosterEntry
	err := db.DB.NewSelect().
		Model(&entries).
		Relation("User").
		Relation("Account").
		Where("sr.session_id = ?", sessionID).
		Order("sr.selected_at ASC", "sr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return entries, nil
}
