package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habilitaciones/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_submissions",
		SQL: `CREATE TABLE IF NOT EXISTS submissions (
  id                 UUID        PRIMARY KEY,
  person_type        TEXT        NOT NULL DEFAULT '',
  national_id        TEXT        NOT NULL DEFAULT '',
  tax_id             TEXT        NOT NULL DEFAULT '',
  surname            TEXT        NOT NULL DEFAULT '',
  given_name         TEXT        NOT NULL DEFAULT '',
  domicile           TEXT        NOT NULL DEFAULT '',
  email              TEXT        NOT NULL DEFAULT '',
  phone              TEXT        NOT NULL DEFAULT '',
  section            TEXT        NOT NULL DEFAULT '',
  block              TEXT        NOT NULL DEFAULT '',
  parcel             TEXT        NOT NULL DEFAULT '',
  address            TEXT        NOT NULL DEFAULT '',
  premises           TEXT        NOT NULL DEFAULT '',
  neighborhood       TEXT        NOT NULL DEFAULT '',
  covered_area       TEXT        NOT NULL DEFAULT '',
  semi_covered_area  TEXT        NOT NULL DEFAULT '',
  total_area         TEXT        NOT NULL DEFAULT '',
  georeference       TEXT        NOT NULL DEFAULT '',
  category           TEXT        NOT NULL DEFAULT '',
  sub_category       TEXT        NOT NULL DEFAULT '',
  main_activity      TEXT        NOT NULL DEFAULT '',
  secondary_activity TEXT        NOT NULL DEFAULT '',
  other_activity     TEXT        NOT NULL DEFAULT '',
  file_urls          JSONB       NOT NULL DEFAULT '[]'::jsonb,
  status             TEXT        NULL CHECK (status IN ('pendiente', 'en_revision', 'finalizado')),
  notes              TEXT        NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_submissions_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions (created_at, id);`,
	},
	{
		Name: "create_index_submissions_status_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_submissions_status_created_at ON submissions (status, created_at, id);`,
	},
	{
		Name: "create_index_submissions_surname",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_submissions_surname ON submissions (surname, id);`,
	},
	{
		Name: "create_index_submissions_national_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_submissions_national_id ON submissions (national_id, id);`,
	},
	{
		Name: "create_index_submissions_email",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_submissions_email ON submissions (email, id);`,
	},
}

// EnsureMigrated checks if the 'submissions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logging.Logger, dbHost string) error {
	log = log.With("database")
	start := time.Now()

	log.Log(map[string]any{
		"event":   "db_migration_check",
		"status":  "starting",
		"db_host": dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.submissions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed", fmt.Errorf("failed to check sentinel table: %w", err), map[string]any{
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip", map[string]any{
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	log.Log(map[string]any{
		"event":   "db_migration_start",
		"status":  "in_progress",
		"db_host": dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed", err, map[string]any{
				"migration_step":   step.Name,
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step", map[string]any{
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Info("db_migration_success", map[string]any{
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
