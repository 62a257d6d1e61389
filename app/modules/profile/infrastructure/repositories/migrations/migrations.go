package profilemigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the profile module's migration set.
var Migrations = migrate.NewMigrations()
