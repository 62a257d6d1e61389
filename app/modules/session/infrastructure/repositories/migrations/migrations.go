package sessionmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the session module's migration set.
var Migrations = migrate.NewMigrations()
