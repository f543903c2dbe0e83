package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS photos (
					id TEXT PRIMARY KEY,
					asset_id TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					analyzed BOOLEAN DEFAULT 0,
					analyzed_at DATETIME,
					analysis TEXT
				)`,
				`CREATE INDEX idx_photos_analyzed ON photos(analyzed)`,

				`CREATE TABLE IF NOT EXISTS labels (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT 'other',
					usage_count INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				// Name is indexed but deliberately not unique; duplicate rows
				// sharing a name are detected and merged by the ledger.
				`CREATE INDEX idx_labels_name ON labels(name)`,

				`CREATE TABLE IF NOT EXISTS photo_labels (
					photo_id TEXT NOT NULL,
					label_id INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (photo_id, label_id),
					FOREIGN KEY (photo_id) REFERENCES photos(id),
					FOREIGN KEY (label_id) REFERENCES labels(id)
				)`,
				`CREATE INDEX idx_photo_labels_label ON photo_labels(label_id)`,

				`CREATE TABLE IF NOT EXISTS classifications (
					photo_id TEXT PRIMARY KEY,
					asset_id TEXT NOT NULL,
					score REAL NOT NULL DEFAULT 0,
					labels TEXT,
					reasoning TEXT,
					computed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (photo_id) REFERENCES photos(id)
				)`,
				`CREATE INDEX idx_classifications_score ON classifications(score)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add photo thumbnails",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE photos ADD COLUMN thumbnail BLOB`); err != nil {
				return fmt.Errorf("failed to add thumbnail column: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add label colors",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE labels ADD COLUMN color TEXT`); err != nil {
				return fmt.Errorf("failed to add color column: %w", err)
			}

			// Backfill from the category palette
			result, err := tx.Exec(`
				UPDATE labels SET color = CASE category
					WHEN 'object' THEN '#8E8E93'
					WHEN 'person' THEN '#FF9500'
					WHEN 'animal' THEN '#34C759'
					WHEN 'food' THEN '#FF3B30'
					WHEN 'vehicle' THEN '#007AFF'
					WHEN 'building' THEN '#A2845E'
					WHEN 'nature' THEN '#30D158'
					WHEN 'technology' THEN '#5856D6'
					WHEN 'postal' THEN '#FF6B35'
					ELSE '#C7C7CC'
				END
				WHERE color IS NULL
			`)
			if err != nil {
				return fmt.Errorf("failed to backfill label colors: %w", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}

			slog.Info("Backfilled label colors", "labels_updated", rowsAffected)
			return nil
		},
	},
	{
		Version:     4,
		Description: "Track label application source",
		Up: func(tx *sql.Tx) error {
			// Record whether a label was applied by hand, by the detector,
			// or carried in from an import.
			if _, err := tx.Exec(`ALTER TABLE photo_labels ADD COLUMN source TEXT DEFAULT 'MANUAL'`); err != nil {
				return fmt.Errorf("failed to add source column: %w", err)
			}

			if _, err := tx.Exec(`CREATE INDEX idx_photo_labels_source ON photo_labels(source)`); err != nil {
				return fmt.Errorf("failed to create source index: %w", err)
			}

			return nil
		},
	},
	{
		Version:     5,
		Description: "Add checkpoint metadata table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					description TEXT,
					file_size INTEGER DEFAULT 0,
					row_counts TEXT,
					schema_version INTEGER DEFAULT 0,
					is_auto BOOLEAN DEFAULT 0,
					parent_checkpoint TEXT
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version currently recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
