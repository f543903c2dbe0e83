package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
)

func TestSQLiteStorage_CreateLabel(t *testing.T) {
	tests := []struct {
		label        *model.Label
		name         string
		wantName     string
		wantCategory model.LabelCategory
		wantColor    string
		wantErr      bool
	}{
		{
			name:         "vocabulary label defaults to postal category",
			label:        &model.Label{Name: "pakke"},
			wantName:     "pakke",
			wantCategory: model.CategoryPostal,
			wantColor:    model.CategoryPostal.Color(),
		},
		{
			name:         "name is normalized before insert",
			label:        &model.Label{Name: "  Postkasseskilt  "},
			wantName:     "postkasseskilt",
			wantCategory: model.CategoryPostal,
			wantColor:    model.CategoryPostal.Color(),
		},
		{
			name:         "unknown label falls back to other",
			label:        &model.Label{Name: "hund"},
			wantName:     "hund",
			wantCategory: model.CategoryOther,
			wantColor:    model.CategoryOther.Color(),
		},
		{
			name:         "explicit category is preserved",
			label:        &model.Label{Name: "bil", Category: model.CategoryVehicle},
			wantName:     "bil",
			wantCategory: model.CategoryVehicle,
			wantColor:    model.CategoryVehicle.Color(),
		},
		{
			name:         "explicit color is preserved",
			label:        &model.Label{Name: "katt", Category: model.CategoryAnimal, Color: "#123456"},
			wantName:     "katt",
			wantCategory: model.CategoryAnimal,
			wantColor:    "#123456",
		},
		{
			name:    "reject empty name",
			label:   &model.Label{Name: "   "},
			wantErr: true,
		},
		{
			name:    "reject negative usage count",
			label:   &model.Label{Name: "pakke", UsageCount: -1},
			wantErr: true,
		},
		{
			name:    "reject nil label",
			label:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			err := store.CreateLabel(ctx, tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateLabel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if tt.label.ID == 0 {
				t.Error("CreateLabel() did not populate ID")
			}
			got, err := store.GetLabelByID(ctx, tt.label.ID)
			if err != nil {
				t.Fatalf("GetLabelByID() error = %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Color != tt.wantColor {
				t.Errorf("Color = %q, want %q", got.Color, tt.wantColor)
			}
		})
	}
}

func TestSQLiteStorage_GetOrCreateLabel(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("GetOrCreateLabel() did not populate ID")
	}
	if first.Category != model.CategoryPostal {
		t.Errorf("Category = %q, want %q", first.Category, model.CategoryPostal)
	}

	// Same name with different casing and padding resolves to the same record.
	second, err := store.GetOrCreateLabel(ctx, "  PAKKE ", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() second call error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Second call created new label: id %d, want %d", second.ID, first.ID)
	}

	all, err := store.GetAllLabels(ctx)
	if err != nil {
		t.Fatalf("GetAllLabels() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 label, got %d", len(all))
	}
}

func TestSQLiteStorage_GetLabelsByName(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// CreateLabel does not deduplicate, so two inserts produce duplicate rows.
	older := model.Label{Name: "hund"}
	if err := store.CreateLabel(ctx, &older); err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	newer := model.Label{Name: "HUND"}
	if err := store.CreateLabel(ctx, &newer); err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}

	got, err := store.GetLabelsByName(ctx, "Hund")
	if err != nil {
		t.Fatalf("GetLabelsByName() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 duplicate rows, got %d", len(got))
	}
	if got[0].ID != older.ID {
		t.Errorf("Oldest record should come first: got id %d, want %d", got[0].ID, older.ID)
	}

	got, err = store.GetLabelsByName(ctx, "ukjent")
	if err != nil {
		t.Fatalf("GetLabelsByName(unknown) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no rows for unknown name, got %d", len(got))
	}
}

func TestSQLiteStorage_GetAllLabels(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, name := range []string{"postkasse", "etikett", "pakke"} {
		if _, err := store.GetOrCreateLabel(ctx, name, ""); err != nil {
			t.Fatalf("GetOrCreateLabel(%q) error = %v", name, err)
		}
	}

	got, err := store.GetAllLabels(ctx)
	if err != nil {
		t.Fatalf("GetAllLabels() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 labels, got %d", len(got))
	}
	want := []string{"etikett", "pakke", "postkasse"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Label[%d] = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSQLiteStorage_DeleteLabel(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	savePhotos(t, store, createTestPhotos(1))
	label, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}
	if err := store.AddPhotoLabel(ctx, "photo-001", label.ID, model.SourceManual); err != nil {
		t.Fatalf("AddPhotoLabel() error = %v", err)
	}

	if err := store.DeleteLabel(ctx, label.ID); err != nil {
		t.Fatalf("DeleteLabel() error = %v", err)
	}

	if _, err := store.GetLabelByID(ctx, label.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Label still present after delete: %v", err)
	}
	linked, err := store.GetPhotoLabels(ctx, "photo-001")
	if err != nil {
		t.Fatalf("GetPhotoLabels() error = %v", err)
	}
	if len(linked) != 0 {
		t.Errorf("Expected no links after label delete, got %d", len(linked))
	}

	if err := store.DeleteLabel(ctx, label.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("DeleteLabel(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_AdjustLabelUsage(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	label, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}

	steps := []struct {
		delta int
		want  int
	}{
		{delta: 2, want: 2},
		{delta: 1, want: 3},
		{delta: -1, want: 2},
		{delta: -5, want: 0}, // floored, never negative
	}
	for _, step := range steps {
		if err := store.AdjustLabelUsage(ctx, label.ID, step.delta); err != nil {
			t.Fatalf("AdjustLabelUsage(%d) error = %v", step.delta, err)
		}
		got, err := store.GetLabelByID(ctx, label.ID)
		if err != nil {
			t.Fatalf("GetLabelByID() error = %v", err)
		}
		if got.UsageCount != step.want {
			t.Errorf("UsageCount after %+d = %d, want %d", step.delta, got.UsageCount, step.want)
		}
	}

	if err := store.AdjustLabelUsage(ctx, 9999, 1); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("AdjustLabelUsage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_SetLabelUsage(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	label, err := store.GetOrCreateLabel(ctx, "postkasse", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}

	if err := store.SetLabelUsage(ctx, label.ID, 7); err != nil {
		t.Fatalf("SetLabelUsage() error = %v", err)
	}
	got, err := store.GetLabelByID(ctx, label.ID)
	if err != nil {
		t.Fatalf("GetLabelByID() error = %v", err)
	}
	if got.UsageCount != 7 {
		t.Errorf("UsageCount = %d, want 7", got.UsageCount)
	}

	if err := store.SetLabelUsage(ctx, label.ID, -3); err != nil {
		t.Fatalf("SetLabelUsage(-3) error = %v", err)
	}
	got, err = store.GetLabelByID(ctx, label.ID)
	if err != nil {
		t.Fatalf("GetLabelByID() error = %v", err)
	}
	if got.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0 after negative set", got.UsageCount)
	}
}

func TestSQLiteStorage_LabelRefCount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	savePhotos(t, store, createTestPhotos(2))
	label, err := store.GetOrCreateLabel(ctx, "etikett", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}
	if label.RefCount != 0 {
		t.Errorf("RefCount = %d, want 0 before linking", label.RefCount)
	}

	for _, id := range []string{"photo-001", "photo-002"} {
		if err := store.AddPhotoLabel(ctx, id, label.ID, model.SourceAI); err != nil {
			t.Fatalf("AddPhotoLabel(%s) error = %v", id, err)
		}
	}

	got, err := store.GetLabelByID(ctx, label.ID)
	if err != nil {
		t.Fatalf("GetLabelByID() error = %v", err)
	}
	if got.RefCount != 2 {
		t.Errorf("RefCount = %d, want 2", got.RefCount)
	}
}

func TestSQLiteStorage_LabelCacheInvalidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() error = %v", err)
	}

	// Usage changes must not be masked by the cache.
	if err := store.AdjustLabelUsage(ctx, first.ID, 4); err != nil {
		t.Fatalf("AdjustLabelUsage() error = %v", err)
	}
	cached, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() after adjust error = %v", err)
	}
	if cached.UsageCount != 4 {
		t.Errorf("UsageCount = %d, want 4 after cache invalidation", cached.UsageCount)
	}

	// Deleting the label must drop its cache entry too, otherwise the next
	// lookup would resurrect the deleted row.
	if err := store.DeleteLabel(ctx, first.ID); err != nil {
		t.Fatalf("DeleteLabel() error = %v", err)
	}
	recreated, err := store.GetOrCreateLabel(ctx, "pakke", "")
	if err != nil {
		t.Fatalf("GetOrCreateLabel() after delete error = %v", err)
	}
	if recreated.ID == first.ID {
		t.Errorf("Stale cache entry returned deleted label id %d", first.ID)
	}
}
