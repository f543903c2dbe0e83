package importer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/eivindbakke/merkelapp/internal/testutil"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("Failed to save test image %s: %v", name, err)
	}
	return path
}

func TestImporter_Run(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	aPath := writeImage(t, dir, "a.jpg")
	writeImage(t, dir, "b.jpeg")
	writeImage(t, dir, "c.png")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o600); err != nil {
		t.Fatalf("Failed to write text file: %v", err)
	}
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}
	writeImage(t, nested, "d.jpg")

	taken := time.Date(2025, 4, 12, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(aPath, taken, taken); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}

	summary, err := New(db.Storage, DefaultOptions()).Run(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Top level only: the nested image and the text file are not scanned.
	if summary.Scanned != 3 || summary.Imported != 3 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("Summary = %+v, want 3 scanned, 3 imported", summary)
	}

	count, err := db.Storage.CountPhotos(ctx)
	if err != nil {
		t.Fatalf("CountPhotos() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountPhotos() = %d, want 3", count)
	}

	abs, err := filepath.Abs(aPath)
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	photo, err := db.Storage.GetPhotoByAssetID(ctx, abs)
	if err != nil {
		t.Fatalf("GetPhotoByAssetID() error = %v", err)
	}
	if photo.ID == "" {
		t.Error("Imported photo has no ID")
	}
	if len(photo.Thumbnail) == 0 {
		t.Error("Imported photo has no thumbnail")
	}
	if photo.CreatedAt.Unix() != taken.Unix() {
		t.Errorf("CreatedAt = %v, want file mtime %v", photo.CreatedAt, taken)
	}
	if photo.Analyzed {
		t.Error("Fresh import must not be marked analyzed")
	}
}

func TestImporter_Run_Recursive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeImage(t, dir, "a.jpg")
	nested := filepath.Join(dir, "nested", "deeper")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}
	writeImage(t, filepath.Join(dir, "nested"), "b.jpg")
	writeImage(t, nested, "c.png")

	opts := DefaultOptions()
	opts.Recursive = true
	summary, err := New(db.Storage, opts).Run(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Imported != 3 {
		t.Errorf("Imported = %d, want 3", summary.Imported)
	}
}

func TestImporter_Run_SkipsAlreadyImported(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeImage(t, dir, "a.jpg")
	writeImage(t, dir, "b.jpg")

	im := New(db.Storage, DefaultOptions())
	if _, err := im.Run(ctx, dir, nil); err != nil {
		t.Fatalf("First Run() error = %v", err)
	}

	summary, err := im.Run(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Second Run() error = %v", err)
	}
	if summary.Imported != 0 || summary.Skipped != 2 {
		t.Errorf("Summary = %+v, want 0 imported, 2 skipped", summary)
	}

	count, err := db.Storage.CountPhotos(ctx)
	if err != nil {
		t.Fatalf("CountPhotos() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountPhotos() = %d, want 2", count)
	}
}

func TestImporter_Run_ResultCallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeImage(t, dir, "a.jpg")
	writeImage(t, dir, "b.jpg")

	var results []Result
	summary, err := New(db.Storage, DefaultOptions()).Run(ctx, dir, func(r Result) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != summary.Scanned {
		t.Fatalf("Callback saw %d results, want %d", len(results), summary.Scanned)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Result for %s has error: %v", r.Path, r.Err)
		}
		if r.PhotoID == "" {
			t.Errorf("Result for %s has no photo ID", r.Path)
		}
	}
}

func TestImporter_Run_CorruptImageStillImports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(broken, []byte("not actually a jpeg"), 0o600); err != nil {
		t.Fatalf("Failed to write broken file: %v", err)
	}

	summary, err := New(db.Storage, DefaultOptions()).Run(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", summary.Imported)
	}

	abs, err := filepath.Abs(broken)
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	photo, err := db.Storage.GetPhotoByAssetID(ctx, abs)
	if err != nil {
		t.Fatalf("GetPhotoByAssetID() error = %v", err)
	}
	if len(photo.Thumbnail) != 0 {
		t.Error("Corrupt image should import without a thumbnail")
	}
}

func TestImporter_Run_DirectoryErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	if _, err := New(db.Storage, DefaultOptions()).Run(ctx, filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Error("Run() on missing directory expected error")
	}

	file := writeImage(t, t.TempDir(), "a.jpg")
	if _, err := New(db.Storage, DefaultOptions()).Run(ctx, file, nil); err == nil {
		t.Error("Run() on a plain file expected error")
	}
}

func TestImporter_Run_EmptyDirectory(t *testing.T) {
	db := testutil.SetupTestDB(t)

	summary, err := New(db.Storage, DefaultOptions()).Run(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Scanned != 0 || summary.Imported != 0 {
		t.Errorf("Summary = %+v, want empty", summary)
	}
}

func TestImporter_Run_CanceledContext(t *testing.T) {
	db := testutil.SetupTestDB(t)

	dir := t.TempDir()
	writeImage(t, dir, "a.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(db.Storage, DefaultOptions()).Run(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "photo.jpg", want: true},
		{path: "PHOTO.JPG", want: true},
		{path: "photo.jpeg", want: true},
		{path: "photo.png", want: true},
		{path: "photo.webp", want: true},
		{path: "notes.txt", want: false},
		{path: "archive.zip", want: false},
		{path: "noextension", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isImageFile(tt.path); got != tt.want {
				t.Errorf("isImageFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
