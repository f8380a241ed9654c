package migrations

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is registered by the timestamped files in this package; bun takes
// each migration's name from its file name.
var Migrations = migrate.NewMigrations()
