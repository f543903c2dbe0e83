package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// Statistics reports label counts from a full scan of the label table.
func (l *Ledger) Statistics(ctx context.Context) (*model.LabelStatistics, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	labels, err := l.storage.GetAllLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	stats := &model.LabelStatistics{TotalLabels: len(labels)}
	for i := range labels {
		if labels[i].IsUnused() {
			stats.UnusedLabels++
		} else {
			stats.UsedLabels++
		}
		if labels[i].IsPopular() {
			stats.PopularLabels++
		}
	}

	return stats, nil
}

// FindDuplicates returns every label name carried by two or more records,
// mapped to those records ordered oldest first.
func (l *Ledger) FindDuplicates(ctx context.Context) (map[string][]model.Label, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.findDuplicates(ctx)
}

func (l *Ledger) findDuplicates(ctx context.Context) (map[string][]model.Label, error) {
	labels, err := l.storage.GetAllLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	byName := make(map[string][]model.Label)
	for _, label := range labels {
		byName[label.Name] = append(byName[label.Name], label)
	}

	duplicates := make(map[string][]model.Label)
	for name, group := range byName {
		if len(group) >= 2 {
			duplicates[name] = group
		}
	}

	return duplicates, nil
}

// MergeDuplicates consolidates every duplicate group into its oldest record:
// usage counts are summed onto the survivor, photo links are re-pointed, and
// the other records are deleted. Returns the number of records deleted.
func (l *Ledger) MergeDuplicates(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.mergeDuplicates(ctx)
}

func (l *Ledger) mergeDuplicates(ctx context.Context) (int, error) {
	duplicates, err := l.findDuplicates(ctx)
	if err != nil {
		return 0, err
	}
	if len(duplicates) == 0 {
		return 0, nil
	}

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for name, group := range duplicates {
		// GetAllLabels orders each group oldest first, so the survivor
		// is the record with the earliest creation timestamp.
		survivor := group[0]
		total := survivor.UsageCount

		for _, dup := range group[1:] {
			total += dup.UsageCount
			if err := tx.RepointPhotoLabels(ctx, dup.ID, survivor.ID); err != nil {
				return 0, fmt.Errorf("failed to re-point links for %q: %w", name, err)
			}
			if err := tx.DeleteLabel(ctx, dup.ID); err != nil {
				return 0, fmt.Errorf("failed to delete duplicate of %q: %w", name, err)
			}
			deleted++
		}

		if err := tx.SetLabelUsage(ctx, survivor.ID, total); err != nil {
			return 0, fmt.Errorf("failed to update usage for %q: %w", name, err)
		}

		slog.Debug("Merged duplicate label",
			"name", name,
			"survivor", survivor.ID,
			"absorbed", len(group)-1,
			"usage_count", total)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Merged duplicate labels", "groups", len(duplicates), "deleted", deleted)

	return deleted, nil
}

// DeleteUnused deletes every label with no photo references and a zero
// usage count. Returns the number of labels deleted.
func (l *Ledger) DeleteUnused(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deleteUnused(ctx)
}

func (l *Ledger) deleteUnused(ctx context.Context) (int, error) {
	labels, err := l.storage.GetAllLabels(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load labels: %w", err)
	}

	var unused []model.Label
	for i := range labels {
		if labels[i].IsUnused() {
			unused = append(unused, labels[i])
		}
	}
	if len(unused) == 0 {
		return 0, nil
	}

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range unused {
		if err := tx.DeleteLabel(ctx, unused[i].ID); err != nil {
			return 0, fmt.Errorf("failed to delete unused label %q: %w", unused[i].Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Deleted unused labels", "count", len(unused))

	return len(unused), nil
}

// FullCleanup merges duplicates and then deletes unused labels. The order
// matters: merging can zero out a duplicate before deletion, and an unused
// duplicate of a used label must be absorbed by the merge rather than
// independently deleted.
func (l *Ledger) FullCleanup(ctx context.Context) (*model.CleanupResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged, err := l.mergeDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := l.deleteUnused(ctx)
	if err != nil {
		return nil, err
	}

	return &model.CleanupResult{
		MergedLabels:  merged,
		DeletedLabels: deleted,
	}, nil
}
