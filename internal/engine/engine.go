// Package engine implements the analysis engine that runs AI object
// detection over the photo library and turns detections into labels.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/eivindbakke/merkelapp/internal/ledger"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Engine orchestrates detection, review and labeling of photos.
type Engine struct {
	storage  service.Storage
	labels   *ledger.Ledger
	detector Detector
	prompter Prompter
	config   Config
}

// Config holds configuration options for the analysis engine.
type Config struct {
	BatchSize     int
	MinConfidence float64
	AutoApply     bool
	Reanalyze     bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		MinConfidence: 0.5,
	}
}

// New creates an analysis engine with the default configuration.
func New(storage service.Storage, labels *ledger.Ledger, detector Detector, prompter Prompter) *Engine {
	return NewWithConfig(storage, labels, detector, prompter, DefaultConfig())
}

// NewWithConfig creates an analysis engine with custom configuration.
func NewWithConfig(storage service.Storage, labels *ledger.Ledger, detector Detector, prompter Prompter, config Config) *Engine {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Engine{
		storage:  storage,
		labels:   labels,
		detector: detector,
		prompter: prompter,
		config:   config,
	}
}

// AnalyzePhotos runs detection over a batch of photos and applies the
// resulting labels through the ledger. Interactive runs hand each photo to
// the prompter; auto-apply runs take every suggestion at or above the
// confidence floor without asking.
func (e *Engine) AnalyzePhotos(ctx context.Context) (*service.AnalysisStats, error) {
	start := time.Now()
	stats := &service.AnalysisStats{}

	filter := service.PhotoFilter{Limit: e.config.BatchSize}
	if !e.config.Reanalyze {
		analyzed := false
		filter.Analyzed = &analyzed
	}

	photos, err := e.storage.GetPhotos(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos: %w", err)
	}
	stats.TotalPhotos = len(photos)

	if len(photos) == 0 {
		slog.Info("No photos to analyze")
		stats.Duration = time.Since(start)
		return stats, nil
	}

	slog.Info("Starting photo analysis",
		"photos", len(photos),
		"auto_apply", e.config.AutoApply,
		"min_confidence", e.config.MinConfidence)

	for i := range photos {
		photo := &photos[i]

		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		detection, err := e.detect(ctx, photo)
		if err != nil {
			slog.Error("Detection failed", "photo_id", photo.ID, "error", err)
			stats.FailedPhotos++
			continue
		}

		suggestions := e.buildSuggestions(photo.ID, detection)

		var accepted []string
		userReviewed := false

		switch {
		case len(suggestions) == 0:
			slog.Info("No objects above confidence floor",
				"photo_id", photo.ID,
				"model", detection.Model)
		case e.config.AutoApply:
			accepted = suggestionNames(suggestions)
		default:
			userReviewed = true
			decision, promptErr := e.prompter.ReviewPhoto(ctx, PendingReview{
				Photo:       *photo,
				Detection:   detection,
				Suggestions: suggestions,
				Position:    i + 1,
				Total:       len(photos),
			})
			if promptErr != nil {
				stats.Duration = time.Since(start)
				return stats, fmt.Errorf("review failed for photo %s: %w", photo.ID, promptErr)
			}
			if decision.Quit {
				slog.Info("Analysis stopped by user", "reviewed", i+1)
				stats.Duration = time.Since(start)
				return stats, nil
			}
			if decision.Skip {
				stats.SkippedPhotos++
				continue
			}
			accepted = decision.Labels
		}

		applied := 0
		for _, name := range accepted {
			if _, labelErr := e.labels.AddLabel(ctx, photo.ID, name, model.SourceAI); labelErr != nil {
				slog.Warn("Failed to apply label",
					"photo_id", photo.ID,
					"label", name,
					"error", labelErr)
				continue
			}
			applied++
		}

		if err := e.recordAnalysis(ctx, photo, detection, applied); err != nil {
			slog.Warn("Failed to record analysis", "photo_id", photo.ID, "error", err)
		}

		stats.Analyzed++
		if applied > 0 {
			if userReviewed {
				stats.UserConfirmed++
			} else {
				stats.AutoLabeled++
			}
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("Analysis complete",
		"analyzed", stats.Analyzed,
		"auto_labeled", stats.AutoLabeled,
		"user_confirmed", stats.UserConfirmed,
		"skipped", stats.SkippedPhotos,
		"failed", stats.FailedPhotos)

	return stats, nil
}

// detect runs the detector against the photo's source image. Retry on
// transient failure is the detector's own concern.
func (e *Engine) detect(ctx context.Context, photo *model.Photo) (*model.DetectionResult, error) {
	if photo.AssetID == "" {
		return nil, fmt.Errorf("photo %s has no source image path", photo.ID)
	}
	return e.detector.DetectObjects(ctx, photo.AssetID)
}

// buildSuggestions collapses a detection into per-label suggestions, keeping
// the highest confidence seen for each distinct label name and dropping
// everything below the configured floor.
func (e *Engine) buildSuggestions(photoID string, detection *model.DetectionResult) []service.DetectionSuggestion {
	best := make(map[string]float64)
	for _, obj := range detection.Objects {
		if obj.Confidence < e.config.MinConfidence {
			continue
		}
		name := model.NormalizeLabelName(obj.Name)
		if name == "" {
			continue
		}
		if obj.Confidence > best[name] {
			best[name] = obj.Confidence
		}
	}

	suggestions := make([]service.DetectionSuggestion, 0, len(best))
	for name, confidence := range best {
		suggestions = append(suggestions, service.DetectionSuggestion{
			PhotoID:    photoID,
			Label:      name,
			Confidence: confidence,
			InVocab:    model.InVocabulary(name),
		})
	}

	// Highest confidence first, name as tiebreak, so review order is stable.
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Label < suggestions[j].Label
	})

	return suggestions
}

// recordAnalysis stores the raw detection on the photo and makes sure every
// analyzed photo ends up with a classification row, labeled or not. Photos
// that received labels were already rescored by the ledger.
func (e *Engine) recordAnalysis(ctx context.Context, photo *model.Photo, detection *model.DetectionResult, applied int) error {
	raw, err := json.Marshal(detection)
	if err != nil {
		return fmt.Errorf("failed to encode detection: %w", err)
	}

	if err := e.storage.MarkPhotoAnalyzed(ctx, photo.ID, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark photo analyzed: %w", err)
	}

	if applied == 0 {
		if _, err := e.labels.Rescore(ctx, photo.ID); err != nil {
			return fmt.Errorf("failed to score photo: %w", err)
		}
	}

	return nil
}

// suggestionNames extracts the label names from a suggestion list.
func suggestionNames(suggestions []service.DetectionSuggestion) []string {
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.Label
	}
	return names
}
