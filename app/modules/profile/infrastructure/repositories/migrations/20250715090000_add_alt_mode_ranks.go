package profilemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Adds the role-agnostic alt-mode rank pair to game_accounts. Fresh installs
// already get the columns from the model-driven create, so each ALTER is
// guarded by a pragma lookup; running the migration twice is a no-op.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for col, typ := range map[string]string{
				"alt_rank":     "TEXT",
				"alt_division": "INTEGER",
			} {
				exists, err := columnExists(ctx, tx, "game_accounts", col)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				stmt := fmt.Sprintf("ALTER TABLE game_accounts ADD COLUMN %s %s DEFAULT NULL", col, typ)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to add %s column: %w", col, err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, col := range []string{"alt_rank", "alt_division"} {
				exists, err := columnExists(ctx, tx, "game_accounts", col)
				if err != nil {
					return err
				}
				if !exists {
					continue
				}
				stmt := fmt.Sprintf("ALTER TABLE game_accounts DROP COLUMN %s", col)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to drop %s column: %w", col, err)
				}
			}
			return nil
		})
	})
}

func columnExists(ctx context.Context, tx bun.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s schema: %w", table, err)
	}
	return count > 0, nil
}
