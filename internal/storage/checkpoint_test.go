package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckpointDB(t *testing.T) (*sql.DB, string, func()) {
	tmpDir, err := os.MkdirTemp("", "checkpoint-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)

	// Create test tables
	queries := []string{
		`CREATE TABLE photos (
			id TEXT PRIMARY KEY,
			asset_id TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			analyzed BOOLEAN DEFAULT 0
		)`,
		`CREATE TABLE labels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			usage_count INTEGER DEFAULT 0
		)`,
		`CREATE TABLE photo_labels (
			photo_id TEXT NOT NULL,
			label_id INTEGER NOT NULL,
			PRIMARY KEY (photo_id, label_id)
		)`,
		`CREATE TABLE classifications (
			photo_id TEXT PRIMARY KEY,
			score REAL NOT NULL
		)`,
		`CREATE TABLE checkpoint_metadata (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			description TEXT,
			file_size INTEGER,
			row_counts TEXT,
			schema_version INTEGER,
			is_auto BOOLEAN DEFAULT 0,
			parent_checkpoint TEXT
		)`,
	}

	for _, query := range queries {
		_, err := db.Exec(query)
		require.NoError(t, err)
	}

	// Set schema version
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", ExpectedSchemaVersion))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, dbPath, cleanup
}

func insertCheckpointData(t *testing.T, db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO photos (id, asset_id, analyzed)
		VALUES
		('photo-1', 'asset-1', 1),
		('photo-2', 'asset-2', 0),
		('photo-3', 'asset-3', 1)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO labels (name, usage_count)
		VALUES
		('pakke', 3),
		('postkasse', 1)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO photo_labels (photo_id, label_id)
		VALUES
		('photo-1', 1),
		('photo-3', 1)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO classifications (photo_id, score)
		VALUES ('photo-1', 0.25)
	`)
	require.NoError(t, err)
}

func TestCheckpointManager_Create(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	insertCheckpointData(t, db)

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		errType     error
		name        string
		tag         string
		description string
		wantErr     bool
	}{
		{
			name:        "Create checkpoint with tag",
			tag:         "test-checkpoint",
			description: "Test checkpoint",
			wantErr:     false,
		},
		{
			name:        "Create checkpoint without tag (auto-generated)",
			tag:         "",
			description: "Auto checkpoint",
			wantErr:     false,
		},
		{
			name:        "Create checkpoint with invalid tag (path traversal)",
			tag:         "../invalid",
			description: "Invalid checkpoint",
			wantErr:     true,
		},
		{
			name:        "Create duplicate checkpoint",
			tag:         "test-checkpoint",
			description: "Duplicate checkpoint",
			wantErr:     true,
			errType:     ErrCheckpointExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := manager.Create(ctx, tt.tag, tt.description)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, info)

			if tt.tag != "" {
				assert.Equal(t, tt.tag, info.ID)
			} else {
				assert.Contains(t, info.ID, "checkpoint-")
			}

			assert.Equal(t, tt.description, info.Description)
			assert.Greater(t, info.FileSize, int64(0))
			assert.Equal(t, 3, info.Photos)
			assert.Equal(t, 2, info.Labels)
			assert.Equal(t, 1, info.Classifications)
			assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
			assert.False(t, info.IsAuto)

			// Verify checkpoint file exists
			checkpointPath := filepath.Join(filepath.Dir(dbPath), "checkpoints", info.ID+".db")
			_, err = os.Stat(checkpointPath)
			assert.NoError(t, err)

			// Verify metadata file exists
			metadataPath := filepath.Join(filepath.Dir(dbPath), "checkpoints", info.ID+".meta.json")
			_, err = os.Stat(metadataPath)
			assert.NoError(t, err)
		})
	}
}

func TestCheckpointManager_List(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create multiple checkpoints
	_, err = manager.Create(ctx, "checkpoint-1", "First checkpoint")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // Ensure different timestamps

	_, err = manager.Create(ctx, "checkpoint-2", "Second checkpoint")
	require.NoError(t, err)

	// List checkpoints
	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)

	assert.Len(t, checkpoints, 2)

	// Should be sorted by creation time (newest first)
	assert.Equal(t, "checkpoint-2", checkpoints[0].ID)
	assert.Equal(t, "checkpoint-1", checkpoints[1].ID)

	assert.Equal(t, "Second checkpoint", checkpoints[0].Description)
	assert.Equal(t, "First checkpoint", checkpoints[1].Description)
}

func TestCheckpointManager_Restore(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	insertCheckpointData(t, db)

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create a checkpoint
	_, err = manager.Create(ctx, "restore-test", "Checkpoint for restore test")
	require.NoError(t, err)

	// Modify the database
	_, err = db.Exec("DELETE FROM photos WHERE id = 'photo-1'")
	require.NoError(t, err)

	// Verify photo was deleted
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM photos").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Close DB before restore
	db.Close()

	// Restore checkpoint
	err = manager.Restore(ctx, "restore-test")
	require.NoError(t, err)

	// Reopen database to verify restore
	db, err = sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	// Verify photo was restored
	err = db.QueryRow("SELECT COUNT(*) FROM photos").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Test restore non-existent checkpoint
	err = manager.Restore(ctx, "non-existent")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_Delete(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create a checkpoint
	_, err = manager.Create(ctx, "delete-test", "Checkpoint for delete test")
	require.NoError(t, err)

	// Verify checkpoint exists
	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)

	// Delete checkpoint
	err = manager.Delete(ctx, "delete-test")
	require.NoError(t, err)

	// Verify checkpoint was deleted
	checkpoints, err = manager.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 0)

	// Verify files were deleted
	checkpointPath := filepath.Join(filepath.Dir(dbPath), "checkpoints", "delete-test.db")
	_, err = os.Stat(checkpointPath)
	assert.True(t, os.IsNotExist(err))

	// Test delete non-existent checkpoint
	err = manager.Delete(ctx, "non-existent")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_AutoCheckpoint(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create auto checkpoint
	err = manager.AutoCheckpoint(ctx, "cleanup")
	require.NoError(t, err)

	// Verify auto checkpoint was created
	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)
	assert.True(t, checkpoints[0].IsAuto)
	assert.Contains(t, checkpoints[0].ID, "auto-cleanup-")
	assert.Contains(t, checkpoints[0].Description, "Automatic checkpoint before cleanup")
}

func TestCheckpointManager_IntegrityCheck(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create a checkpoint
	_, err = manager.Create(ctx, "integrity-test", "Checkpoint for integrity test")
	require.NoError(t, err)

	// Corrupt the checkpoint file
	checkpointPath := filepath.Join(filepath.Dir(dbPath), "checkpoints", "integrity-test.db")

	// Write garbage to the file
	err = os.WriteFile(checkpointPath, []byte("corrupted data"), 0644)
	require.NoError(t, err)

	// Attempt to restore corrupted checkpoint
	err = manager.Restore(ctx, "integrity-test")
	assert.ErrorIs(t, err, ErrCheckpointCorrupted)
}

func TestCheckpointManager_CollectRowCounts(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	insertCheckpointData(t, db)

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	rowCounts, err := manager.collectRowCounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, rowCounts["photos"])
	assert.Equal(t, 2, rowCounts["labels"])
	assert.Equal(t, 2, rowCounts["photo_labels"])
	assert.Equal(t, 1, rowCounts["classifications"])
}

func TestCheckpointManager_CleanupOldAutoCheckpoints(t *testing.T) {
	db, dbPath, cleanup := setupCheckpointDB(t)
	defer cleanup()

	manager, err := NewCheckpointManager(db, dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	// Create multiple auto checkpoints
	for i := 0; i < 7; i++ {
		err = manager.AutoCheckpoint(ctx, fmt.Sprintf("test-%d", i))
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond) // Ensure different timestamps
	}

	// List all checkpoints
	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)

	// Should have only 5 auto checkpoints (cleanup keeps 5 most recent)
	autoCount := 0
	for _, cp := range checkpoints {
		if cp.IsAuto {
			autoCount++
		}
	}
	assert.Equal(t, 5, autoCount)
}
