package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
)

func TestSQLiteStorage_SaveClassification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	savePhotos(t, store, createTestPhotos(1))

	result := model.ClassificationResult{
		PhotoID:   "photo-001",
		AssetID:   "asset-001",
		Score:     0.25,
		Labels:    []string{"pakke", "postkasse"},
		Reasoning: "pakke: 1, postkasse: 1 → Pakke og postkasse oppdaget",
	}
	if err := store.SaveClassification(ctx, &result); err != nil {
		t.Fatalf("SaveClassification() error = %v", err)
	}

	got, err := store.GetClassification(ctx, "photo-001")
	if err != nil {
		t.Fatalf("GetClassification() error = %v", err)
	}
	if got.Score != 0.25 {
		t.Errorf("Score = %v, want 0.25", got.Score)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "pakke" || got.Labels[1] != "postkasse" {
		t.Errorf("Labels = %v, want [pakke postkasse]", got.Labels)
	}
	if got.Reasoning != result.Reasoning {
		t.Errorf("Reasoning = %q, want %q", got.Reasoning, result.Reasoning)
	}
	if got.ComputedAt.IsZero() {
		t.Error("ComputedAt was not defaulted on save")
	}

	// Saving again replaces the stored result for the photo.
	updated := model.ClassificationResult{
		PhotoID:   "photo-001",
		AssetID:   "asset-001",
		Score:     0.7,
		Labels:    []string{"pakke", "postkasse", "postkasseskilt"},
		Reasoning: "pakke: 1, postkasse: 1, postkasseskilt: 1 → Pakke og postkasse med postkasseskilt",
	}
	if err := store.SaveClassification(ctx, &updated); err != nil {
		t.Fatalf("SaveClassification() update error = %v", err)
	}

	got, err = store.GetClassification(ctx, "photo-001")
	if err != nil {
		t.Fatalf("GetClassification() after update error = %v", err)
	}
	if got.Score != 0.7 {
		t.Errorf("Score = %v, want updated 0.7", got.Score)
	}
	if len(got.Labels) != 3 {
		t.Errorf("Labels = %v, want 3 entries", got.Labels)
	}

	all, err := store.GetClassifications(ctx)
	if err != nil {
		t.Fatalf("GetClassifications() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 classification after upsert, got %d", len(all))
	}
}

func TestSQLiteStorage_SaveClassification_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		result *model.ClassificationResult
		name   string
	}{
		{name: "nil result", result: nil},
		{name: "missing photo id", result: &model.ClassificationResult{Score: 0.5}},
		{name: "score above range", result: &model.ClassificationResult{PhotoID: "p", Score: 1.5}},
		{name: "score below range", result: &model.ClassificationResult{PhotoID: "p", Score: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.SaveClassification(ctx, tt.result); err == nil {
				t.Error("SaveClassification() expected validation error, got nil")
			}
		})
	}
}

func TestSQLiteStorage_GetClassification_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.GetClassification(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetClassification(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_GetClassifications_Order(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	savePhotos(t, store, createTestPhotos(3))

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, photoID := range []string{"photo-001", "photo-002", "photo-003"} {
		result := model.ClassificationResult{
			PhotoID:    photoID,
			AssetID:    "asset-00" + string(rune('1'+i)),
			Score:      0.1,
			ComputedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.SaveClassification(ctx, &result); err != nil {
			t.Fatalf("SaveClassification(%s) error = %v", photoID, err)
		}
	}

	all, err := store.GetClassifications(ctx)
	if err != nil {
		t.Fatalf("GetClassifications() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 classifications, got %d", len(all))
	}
	// Newest first.
	if all[0].PhotoID != "photo-003" || all[2].PhotoID != "photo-001" {
		t.Errorf("Unexpected order: first %s, last %s", all[0].PhotoID, all[2].PhotoID)
	}
}

func TestSQLiteStorage_Classification_EmptyLabels(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	savePhotos(t, store, createTestPhotos(1))

	result := model.ClassificationResult{
		PhotoID:   "photo-001",
		AssetID:   "asset-001",
		Score:     0.0,
		Reasoning: "Ingen relevante postobjekter oppdaget",
	}
	if err := store.SaveClassification(ctx, &result); err != nil {
		t.Fatalf("SaveClassification() error = %v", err)
	}

	got, err := store.GetClassification(ctx, "photo-001")
	if err != nil {
		t.Fatalf("GetClassification() error = %v", err)
	}
	if len(got.Labels) != 0 {
		t.Errorf("Labels = %v, want empty", got.Labels)
	}
	if got.Reasoning != "Ingen relevante postobjekter oppdaget" {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
}
