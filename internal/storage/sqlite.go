package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	cache "github.com/patrickmn/go-cache"
)

// Label lookups by name are hot during import and analysis, so resolved
// labels are cached briefly. Identity fields never change outside a merge,
// which flushes the cache wholesale.
const (
	labelCacheTTL   = 5 * time.Minute
	labelCachePurge = 10 * time.Minute
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	labelCache *cache.Cache
	dbPath     string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:         db,
		dbPath:     dbPath,
		labelCache: cache.New(labelCacheTTL, labelCachePurge),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) SavePhoto(ctx context.Context, photo *model.Photo) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePhoto(photo); err != nil {
		return err
	}
	return t.storage.savePhotoTx(ctx, t.tx, photo)
}

func (t *sqliteTransaction) GetPhotoByID(ctx context.Context, id string) (*model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getPhotoByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetPhotoByAssetID(ctx context.Context, assetID string) (*model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(assetID, "assetID"); err != nil {
		return nil, err
	}
	return t.storage.getPhotoByAssetIDTx(ctx, t.tx, assetID)
}

func (t *sqliteTransaction) GetPhotos(ctx context.Context, filter service.PhotoFilter) ([]model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getPhotosTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) DeletePhoto(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.deletePhotoTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) MarkPhotoAnalyzed(ctx context.Context, id string, analysis []byte, analyzedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.markPhotoAnalyzedTx(ctx, t.tx, id, analysis, analyzedAt)
}

func (t *sqliteTransaction) CountPhotos(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.countPhotosTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateLabel(ctx context.Context, label *model.Label) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLabel(label); err != nil {
		return err
	}
	return t.storage.createLabelTx(ctx, t.tx, label)
}

func (t *sqliteTransaction) GetOrCreateLabel(ctx context.Context, name string, category model.LabelCategory) (*model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getOrCreateLabelTx(ctx, t.tx, name, category)
}

func (t *sqliteTransaction) GetLabelByID(ctx context.Context, id int64) (*model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getLabelByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetLabelsByName(ctx context.Context, name string) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getLabelsByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetAllLabels(ctx context.Context) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getAllLabelsTx(ctx, t.tx)
}

func (t *sqliteTransaction) DeleteLabel(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return t.storage.deleteLabelTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) AdjustLabelUsage(ctx context.Context, id int64, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return t.storage.adjustLabelUsageTx(ctx, t.tx, id, delta)
}

func (t *sqliteTransaction) SetLabelUsage(ctx context.Context, id int64, usageCount int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return t.storage.setLabelUsageTx(ctx, t.tx, id, usageCount)
}

func (t *sqliteTransaction) AddPhotoLabel(ctx context.Context, photoID string, labelID int64, source model.LabelSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return err
	}
	return t.storage.addPhotoLabelTx(ctx, t.tx, photoID, labelID, source)
}

func (t *sqliteTransaction) RemovePhotoLabel(ctx context.Context, photoID string, labelID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return err
	}
	return t.storage.removePhotoLabelTx(ctx, t.tx, photoID, labelID)
}

func (t *sqliteTransaction) GetPhotoLabels(ctx context.Context, photoID string) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return nil, err
	}
	return t.storage.getPhotoLabelsTx(ctx, t.tx, photoID)
}

func (t *sqliteTransaction) GetPhotoIDsForLabel(ctx context.Context, labelID int64) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return nil, err
	}
	return t.storage.getPhotoIDsForLabelTx(ctx, t.tx, labelID)
}

func (t *sqliteTransaction) RepointPhotoLabels(ctx context.Context, fromLabelID, toLabelID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(fromLabelID, "fromLabelID"); err != nil {
		return err
	}
	if err := validateID(toLabelID, "toLabelID"); err != nil {
		return err
	}
	return t.storage.repointPhotoLabelsTx(ctx, t.tx, fromLabelID, toLabelID)
}

func (t *sqliteTransaction) SaveClassification(ctx context.Context, result *model.ClassificationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(result); err != nil {
		return err
	}
	return t.storage.saveClassificationTx(ctx, t.tx, result)
}

func (t *sqliteTransaction) GetClassification(ctx context.Context, photoID string) (*model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return nil, err
	}
	return t.storage.getClassificationTx(ctx, t.tx, photoID)
}

func (t *sqliteTransaction) GetClassifications(ctx context.Context) ([]model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getClassificationsTx(ctx, t.tx)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
