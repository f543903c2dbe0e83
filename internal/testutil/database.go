// Package testutil provides test utilities for the merkelapp project.
// It offers type-safe APIs, proper test isolation, and elegant abstractions
// for test data management.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
	"github.com/eivindbakke/merkelapp/internal/storage"
	"github.com/eivindbakke/merkelapp/internal/testutil/labels"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
	Labels  labels.Labels
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithBuilder(t, nil)
}

// SetupTestDBWithBuilder creates a test database seeded through a label builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b labels.Builder) labels.Builder {
//		return b.WithVocabulary().WithLabel(labels.LabelDog)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(labels.Builder) labels.Builder) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Seed labels if a builder was configured
	var seeded labels.Labels
	if configure != nil {
		builder := configure(labels.NewBuilder(t))
		seeded, err = builder.Build(ctx, store)
		if err != nil {
			t.Fatalf("failed to seed labels: %v", err)
		}
	}

	// Register cleanup
	t.Cleanup(func() {
		store.Close()
	})

	return &TestDB{
		Storage: store,
		Labels:  seeded,
		t:       t,
	}
}

// MustLabel returns the seeded label with the given name or fails the test.
func (db *TestDB) MustLabel(name labels.LabelName) model.Label {
	db.t.Helper()
	return db.Labels.MustFind(db.t, name)
}

// SeedPhoto creates and persists a photo with the given ID, failing the
// test on error. The asset ID is derived from the photo ID.
func (db *TestDB) SeedPhoto(ctx context.Context, id string) model.Photo {
	db.t.Helper()

	photo := model.Photo{
		ID:        id,
		AssetID:   "asset-" + id,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Storage.SavePhoto(ctx, &photo); err != nil {
		db.t.Fatalf("failed to seed photo %q: %v", id, err)
	}
	return photo
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return nil
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Configure      func(labels.Builder) labels.Builder
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	// Run migrations unless skipped
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Seed labels
	var seeded labels.Labels
	if opts.Configure != nil {
		builder := opts.Configure(labels.NewBuilder(t))
		seeded, err = builder.Build(ctx, store)
		if err != nil {
			t.Fatalf("failed to seed labels: %v", err)
		}
	}

	// Run custom setup
	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	// Register cleanup
	t.Cleanup(func() {
		store.Close()
	})

	return &TestDB{
		Storage: store,
		Labels:  seeded,
		t:       t,
	}
}
