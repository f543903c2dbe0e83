// Package ledger maintains the label ledger: the many-to-many relation
// between photos and labels, the usage count carried by every label, and
// the cleanup operations over that relation. Every mutation runs inside a
// single transaction and either lands completely or not at all.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eivindbakke/merkelapp/internal/classify"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Ledger serializes all label bookkeeping for one store. Mutating
// operations hold the writer lock; statistics and duplicate scans run
// concurrently with each other but never mid-mutation.
type Ledger struct {
	storage    service.Storage
	classifier *classify.Classifier
	mu         sync.RWMutex
}

// New creates a ledger over the given storage.
func New(storage service.Storage) *Ledger {
	return &Ledger{
		storage:    storage,
		classifier: classify.New(),
	}
}

// AddLabel attaches a label to a photo and increments the label's usage
// count. If the photo already references a label with the same normalized
// name the call is a no-op and returns the existing label. The label record
// is created on first use.
func (l *Ledger) AddLabel(ctx context.Context, photoID, name string, source model.LabelSource) (*model.Label, error) {
	normalized := model.NormalizeLabelName(name)
	if normalized == "" {
		return nil, fmt.Errorf("label name cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	photo, err := tx.GetPhotoByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo: %w", err)
	}

	current, err := tx.GetPhotoLabels(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo labels: %w", err)
	}
	for i := range current {
		if current[i].Name == normalized {
			// Same name already attached, nothing to do.
			existing := current[i]
			return &existing, nil
		}
	}

	label, err := tx.GetOrCreateLabel(ctx, normalized, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve label: %w", err)
	}
	if err := tx.AddPhotoLabel(ctx, photoID, label.ID, source); err != nil {
		return nil, fmt.Errorf("failed to attach label: %w", err)
	}
	if err := tx.AdjustLabelUsage(ctx, label.ID, 1); err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}

	if _, err := l.reclassify(ctx, tx, photo); err != nil {
		return nil, err
	}

	// Re-read so the returned label carries the post-increment counts.
	label, err = tx.GetLabelByID(ctx, label.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload label: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("Attached label",
		"photo", photoID,
		"label", label.Name,
		"source", source,
		"usage_count", label.UsageCount)

	return label, nil
}

// RemoveLabel detaches a label from a photo and decrements its usage count,
// floored at zero. Removing a label the photo does not reference is a no-op.
func (l *Ledger) RemoveLabel(ctx context.Context, photoID, name string) error {
	normalized := model.NormalizeLabelName(name)
	if normalized == "" {
		return fmt.Errorf("label name cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	photo, err := tx.GetPhotoByID(ctx, photoID)
	if err != nil {
		return fmt.Errorf("failed to load photo: %w", err)
	}

	current, err := tx.GetPhotoLabels(ctx, photoID)
	if err != nil {
		return fmt.Errorf("failed to load photo labels: %w", err)
	}
	var attached *model.Label
	for i := range current {
		if current[i].Name == normalized {
			attached = &current[i]
			break
		}
	}
	if attached == nil {
		// Not attached, nothing to do.
		return nil
	}

	if err := tx.RemovePhotoLabel(ctx, photoID, attached.ID); err != nil {
		return fmt.Errorf("failed to detach label: %w", err)
	}
	if err := tx.AdjustLabelUsage(ctx, attached.ID, -1); err != nil {
		return fmt.Errorf("failed to decrement usage: %w", err)
	}

	if _, err := l.reclassify(ctx, tx, photo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("Detached label", "photo", photoID, "label", normalized)

	return nil
}

// DeletePhoto removes a photo together with its label links and
// classification, decrementing the usage count of every attached label.
func (l *Ledger) DeletePhoto(ctx context.Context, photoID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetPhotoByID(ctx, photoID); err != nil {
		return fmt.Errorf("failed to load photo: %w", err)
	}

	attached, err := tx.GetPhotoLabels(ctx, photoID)
	if err != nil {
		return fmt.Errorf("failed to load photo labels: %w", err)
	}
	for i := range attached {
		if err := tx.AdjustLabelUsage(ctx, attached[i].ID, -1); err != nil {
			return fmt.Errorf("failed to decrement usage for %q: %w", attached[i].Name, err)
		}
	}

	if err := tx.DeletePhoto(ctx, photoID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Deleted photo", "photo", photoID, "labels_released", len(attached))

	return nil
}

// reclassify recomputes the photo's classification from its current label
// set and writes the result back within the same transaction.
func (l *Ledger) reclassify(ctx context.Context, tx service.Transaction, photo *model.Photo) (*model.ClassificationResult, error) {
	attached, err := tx.GetPhotoLabels(ctx, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels for classification: %w", err)
	}

	res := l.classifier.Classify(model.LabelCounts(attached))
	result := &model.ClassificationResult{
		PhotoID:    photo.ID,
		AssetID:    photo.AssetID,
		Score:      res.Score,
		Labels:     res.Labels,
		Reasoning:  res.Reasoning,
		ComputedAt: time.Now(),
	}
	if err := tx.SaveClassification(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save classification: %w", err)
	}

	return result, nil
}
