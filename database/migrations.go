package database

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// migrate creates the schema. Creates one table:
//   - resolution_logs: history of paths resolved through the HTTP API
func migrate(db *sql.DB, logger zerolog.Logger) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "create_resolution_logs_table",
			sql: `
CREATE TABLE IF NOT EXISTS resolution_logs (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    service_name TEXT,
    method TEXT NOT NULL,
    url TEXT,
    error_message TEXT,
    resolved_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resolution_logs_service ON resolution_logs(service_name);
CREATE INDEX IF NOT EXISTS idx_resolution_logs_resolved_at ON resolution_logs(resolved_at);
			`,
		},
	}

	for _, migration := range migrations {
		logger.Debug().Str("migration", migration.name).Msg("Running migration")
		if _, err := db.Exec(migration.sql); err != nil {
			logger.Error().Err(err).Str("migration", migration.name).Msg("Migration failed")
			return err
		}
	}

	return nil
}
