package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/config"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
	"github.com/eivindbakke/merkelapp/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := config.DatabasePath()

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openCheckpoints builds a checkpoint manager for the given storage. The
// storage must be the SQLite implementation; checkpoints snapshot its file.
func openCheckpoints(store service.Storage) (*storage.CheckpointManager, error) {
	sqliteStore, ok := store.(*storage.SQLiteStorage)
	if !ok {
		return nil, fmt.Errorf("storage is not SQLite")
	}
	manager, err := sqliteStore.NewCheckpointManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return manager, nil
}

// resolvePhoto finds a photo by its library ID, falling back to the imported
// file path so commands accept whichever the user has at hand.
func resolvePhoto(ctx context.Context, store service.Storage, ref string) (*model.Photo, error) {
	photo, err := store.GetPhotoByID(ctx, ref)
	if err == nil {
		return photo, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	photo, err = store.GetPhotoByAssetID(ctx, ref)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("photo %q not found", ref)
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}
