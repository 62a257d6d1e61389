package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	profilemigrations "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories/migrations"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	sessionmigrations "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories/migrations"
	"github.com/five-stack-club/stackbot/config"
)

// DBService bundles the module stores over one SQLite connection pool.
type DBService struct {
	ProfileDB *profiledb.ProfileDBImpl
	SessionDB *sessiondb.SessionDBImpl
	db        *bun.DB
}

// GetDB returns the underlying database connection pool.
func (dbService *DBService) GetDB() *bun.DB {
	return dbService.db
}

// Close closes the connection pool.
func (dbService *DBService) Close() error {
	return dbService.db.Close()
}

// NewBunDBService opens the SQLite database and initializes the module stores.
func NewBunDBService(ctx context.Context, cfg config.DatabaseConfig) (*DBService, error) {
	sqldb, err := sqliteConn(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	db.RegisterModel(&profiledb.User{})
	db.RegisterModel(&profiledb.GameAccount{})
	db.RegisterModel(&sessiondb.Session{})
	db.RegisterModel(&sessiondb.QueueEntry{})
	db.RegisterModel(&sessiondb.RosterEntry{})

	return &DBService{
		ProfileDB: &profiledb.ProfileDBImpl{DB: db},
		SessionDB: &sessiondb.SessionDBImpl{DB: db},
		db:        db,
	}, nil
}

// Migrators returns one migrator per module migration set, keyed by module
// name. Used by the migration CLI and by Migrate.
func (dbService *DBService) Migrators() map[string]*migrate.Migrator {
	return Migrators(dbService.db)
}

// Migrators builds the per-module migrators for the given connection.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"profile": migrate.NewMigrator(db, profilemigrations.Migrations),
		"session": migrate.NewMigrator(db, sessionmigrations.Migrations),
	}
}

// Migrate initializes the migration tables and applies all pending
// migrations for every module. Called on startup so a fresh database file is
// usable without a separate CLI step.
func (dbService *DBService) Migrate(ctx context.Context) error {
	for moduleName, migrator := range dbService.Migrators() {
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init migrations for %s: %w", moduleName, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", moduleName, err)
		}
	}
	return nil
}

// sqliteConn opens the database file with WAL journaling and foreign keys
// enforced. SQLite allows one writer at a time, so the pool is capped at a
// single connection to turn lock contention into queuing.
func sqliteConn(ctx context.Context, path string) (*sql.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqldb.ExecContext(ctx, pragma); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqldb, nil
}
