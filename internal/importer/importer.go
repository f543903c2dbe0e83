// Package importer scans image directories into the photo library.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
	"github.com/eivindbakke/merkelapp/internal/thumbnail"
)

// imageExtensions lists the file types the importer accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Options configures a directory import.
type Options struct {
	ThumbnailFormat thumbnail.Format
	Workers         int
	ThumbnailSize   int
	Recursive       bool
}

// DefaultOptions returns the import defaults: top level only, four workers,
// JPEG thumbnails at the standard size.
func DefaultOptions() Options {
	return Options{
		Workers:         4,
		ThumbnailSize:   thumbnail.DefaultSize,
		ThumbnailFormat: thumbnail.FormatJPEG,
	}
}

// Result reports the outcome for a single file.
type Result struct {
	Err     error
	Path    string
	PhotoID string
	Skipped bool
}

// Summary aggregates an import run.
type Summary struct {
	Scanned  int
	Imported int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// Importer walks directories and registers their images as photos.
type Importer struct {
	storage service.Storage
	thumbs  *thumbnail.Generator
	opts    Options
}

// New creates an importer writing into the given storage.
func New(storage service.Storage, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	return &Importer{
		storage: storage,
		thumbs:  thumbnail.NewGenerator(opts.ThumbnailSize, opts.ThumbnailFormat),
		opts:    opts,
	}
}

// Run imports every image under dir. Files are processed by a bounded worker
// pool; onResult, when non-nil, receives each outcome from a single goroutine
// as it arrives. Already-imported files (matched by path) are skipped.
func (im *Importer) Run(ctx context.Context, dir string, onResult func(Result)) (*Summary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open import directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := im.collectFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	summary := &Summary{Scanned: len(files)}
	if len(files) == 0 {
		return summary, nil
	}

	start := time.Now()
	results := make(chan Result, len(files))
	semaphore := make(chan struct{}, im.opts.Workers)
	var workers sync.WaitGroup

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for result := range results {
			switch {
			case result.Err != nil:
				summary.Failed++
			case result.Skipped:
				summary.Skipped++
			default:
				summary.Imported++
			}
			if onResult != nil {
				onResult(result)
			}
		}
	}()

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		workers.Add(1)
		semaphore <- struct{}{}
		go func() {
			defer workers.Done()
			defer func() { <-semaphore }()
			results <- im.importFile(ctx, path)
		}()
	}

	workers.Wait()
	close(results)
	collector.Wait()
	summary.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	slog.Info("Import finished",
		"directory", dir,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// collectFiles gathers candidate image paths in deterministic order.
func (im *Importer) collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !im.opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if isImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (im *Importer) importFile(ctx context.Context, path string) Result {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("failed to resolve path: %w", err)}
	}

	existing, err := im.storage.GetPhotoByAssetID(ctx, absPath)
	if err == nil {
		return Result{Path: path, PhotoID: existing.ID, Skipped: true}
	}
	if !errors.Is(err, common.ErrNotFound) {
		return Result{Path: path, Err: fmt.Errorf("failed to check for existing photo: %w", err)}
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}

	photo := &model.Photo{
		ID:        uuid.NewString(),
		AssetID:   absPath,
		CreatedAt: info.ModTime().UTC(),
	}

	// A failed thumbnail never blocks the import; the photo just renders
	// without a preview.
	if thumb, thumbErr := im.thumbs.Generate(absPath); thumbErr != nil {
		slog.Warn("Failed to generate thumbnail", "path", path, "error", thumbErr)
	} else {
		photo.Thumbnail = thumb
	}

	if err := im.storage.SavePhoto(ctx, photo); err != nil {
		return Result{Path: path, Err: fmt.Errorf("failed to save photo: %w", err)}
	}
	return Result{Path: path, PhotoID: photo.ID}
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
