package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eivindbakke/merkelapp/internal/classify"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Rescore recomputes the classification for a single photo from its
// current label set and returns the stored result.
func (l *Ledger) Rescore(ctx context.Context, photoID string) (*model.ClassificationResult, error) {
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

	result, err := l.reclassify(ctx, tx, photo)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return result, nil
}

// RescoreAll recomputes classifications for every photo in the store,
// all within one transaction. Returns the number of photos scored.
func (l *Ledger) RescoreAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	photos, err := tx.GetPhotos(ctx, service.PhotoFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load photos: %w", err)
	}

	for i := range photos {
		if _, err := l.reclassify(ctx, tx, &photos[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Rescored photos", "count", len(photos))

	return len(photos), nil
}

// Summary aggregates all stored classifications into per-confidence
// buckets for display.
func (l *Ledger) Summary(ctx context.Context) (*service.ScoreSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	classifications, err := l.storage.GetClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifications: %w", err)
	}

	summary := &service.ScoreSummary{ByConfidence: make(map[string]int)}
	var sum float64
	for i := range classifications {
		score := classifications[i].Score
		summary.TotalScored++
		summary.ByConfidence[classify.ConfidenceLevel(score)]++
		if score == 1.0 {
			summary.Confirmed++
		}
		sum += score
	}
	if summary.TotalScored > 0 {
		summary.AverageScore = sum / float64(summary.TotalScored)
	}

	return summary, nil
}
