// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// PhotoFilter defines filtering options for photo queries.
type PhotoFilter struct {
	Analyzed *bool
	MinScore *float64
	Limit    int
	Offset   int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Photo operations
	SavePhoto(ctx context.Context, photo *model.Photo) error
	GetPhotoByID(ctx context.Context, id string) (*model.Photo, error)
	GetPhotoByAssetID(ctx context.Context, assetID string) (*model.Photo, error)
	GetPhotos(ctx context.Context, filter PhotoFilter) ([]model.Photo, error)
	DeletePhoto(ctx context.Context, id string) error
	MarkPhotoAnalyzed(ctx context.Context, id string, analysis []byte, analyzedAt time.Time) error
	CountPhotos(ctx context.Context) (int, error)

	// Label operations
	CreateLabel(ctx context.Context, label *model.Label) error
	GetOrCreateLabel(ctx context.Context, name string, category model.LabelCategory) (*model.Label, error)
	GetLabelByID(ctx context.Context, id int64) (*model.Label, error)
	GetLabelsByName(ctx context.Context, name string) ([]model.Label, error)
	GetAllLabels(ctx context.Context) ([]model.Label, error)
	DeleteLabel(ctx context.Context, id int64) error
	AdjustLabelUsage(ctx context.Context, id int64, delta int) error
	SetLabelUsage(ctx context.Context, id int64, usageCount int) error

	// Photo-label link operations
	AddPhotoLabel(ctx context.Context, photoID string, labelID int64, source model.LabelSource) error
	RemovePhotoLabel(ctx context.Context, photoID string, labelID int64) error
	GetPhotoLabels(ctx context.Context, photoID string) ([]model.Label, error)
	GetPhotoIDsForLabel(ctx context.Context, labelID int64) ([]string, error)
	RepointPhotoLabels(ctx context.Context, fromLabelID, toLabelID int64) error

	// Classification operations
	SaveClassification(ctx context.Context, result *model.ClassificationResult) error
	GetClassification(ctx context.Context, photoID string) (*model.ClassificationResult, error)
	GetClassifications(ctx context.Context) ([]model.ClassificationResult, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// DetectionSuggestion is one label the detector proposes for a photo, after
// vocabulary aliasing but before the user confirms it.
type DetectionSuggestion struct {
	PhotoID    string
	Label      string
	Confidence float64
	InVocab    bool
}

// AnalysisStats shows the results of an analysis run.
type AnalysisStats struct {
	TotalPhotos   int
	Analyzed      int
	AutoLabeled   int
	UserConfirmed int
	SkippedPhotos int
	FailedPhotos  int
	Duration      time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ScoreSummary aggregates classification results across the library.
type ScoreSummary struct {
	ByConfidence map[string]int
	TotalScored  int
	Confirmed    int
	AverageScore float64
}
