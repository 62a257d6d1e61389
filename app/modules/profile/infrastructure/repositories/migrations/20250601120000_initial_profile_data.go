package profilemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().
			Model((*profiledb.User)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create users table: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*profiledb.GameAccount)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("user_id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create game_accounts table: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().
			Model((*profiledb.GameAccount)(nil)).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop game_accounts table: %w", err)
		}
		if _, err := db.NewDropTable().
			Model((*profiledb.User)(nil)).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop users table: %w", err)
		}
		return nil
	})
}
