package sessionmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().
			Model((*sessiondb.Session)(nil)).
			IfNotExists().
			ForeignKey(`("creator_id") REFERENCES "users" ("user_id")`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create sessions table: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*sessiondb.QueueEntry)(nil)).
			IfNotExists().
			ForeignKey(`("session_id") REFERENCES "sessions" ("id") ON DELETE CASCADE`).
			ForeignKey(`("user_id") REFERENCES "users" ("user_id")`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create session_queue table: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*sessiondb.RosterEntry)(nil)).
			IfNotExists().
			ForeignKey(`("session_id") REFERENCES "sessions" ("id") ON DELETE CASCADE`).
			ForeignKey(`("user_id") REFERENCES "users" ("user_id")`).
			ForeignKey(`("account_id") REFERENCES "game_accounts" ("id")`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create session_roster table: %w", err)
		}

		if _, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_sessions_sweep ON sessions (status, scheduled_at)
		`); err != nil {
			return fmt.Errorf("failed to create sweep index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []any{
			(*sessiondb.RosterEntry)(nil),
			(*sessiondb.QueueEntry)(nil),
			(*sessiondb.Session)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
		return nil
	})
}
