// Package export writes the photo library out as a YOLO training dataset:
// letterboxed images with per-class annotation files, a dataset.yaml for the
// trainer, and a manifest.json describing every exported photo.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"

	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
	"github.com/eivindbakke/merkelapp/internal/thumbnail"
)

// ImageSize is the square size exported images are letterboxed into.
const ImageSize = 640

// letterboxGray is the YOLO convention for padding color.
var letterboxGray = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// trainingClasses lists the class tokens in training order. The order is
// load-bearing: annotation files reference classes by index.
var trainingClasses = []string{
	"no_objects",
	"pakke",
	"postkasse",
	"etikett",
	"postkasseskilt",
	"pakke_i_postkasse",
	"pakke_ved_inngangsparti",
	"inngangsparti",
}

// TrainingClasses returns the class tokens in training order.
func TrainingClasses() []string {
	return append([]string(nil), trainingClasses...)
}

// ClassToken converts a label name into its training token: names are
// normalized and spaces become underscores, with "ingen objekter" mapping to
// the conventional no_objects token.
func ClassToken(name string) string {
	normalized := model.NormalizeLabelName(name)
	if normalized == model.LabelNoObjects {
		return "no_objects"
	}
	return strings.ReplaceAll(normalized, " ", "_")
}

func classID(token string) (int, bool) {
	for i, class := range trainingClasses {
		if class == token {
			return i, true
		}
	}
	return 0, false
}

// Summary reports what an export run produced.
type Summary struct {
	Train   int
	Val     int
	Skipped int
}

// Exporter renders the labeled part of the library as a training dataset.
type Exporter struct {
	storage service.Storage

	// Limit caps how many photos are exported when positive. Useful for
	// debugging runs against a large library.
	Limit int
}

// New creates an exporter reading from the given storage.
func New(storage service.Storage) *Exporter {
	return &Exporter{storage: storage}
}

type manifestBox struct {
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type manifestPhoto struct {
	ID            string        `json:"id"`
	ImagePath     string        `json:"imagePath"`
	Label         string        `json:"label"`
	BoundingBoxes []manifestBox `json:"boundingBoxes,omitempty"`
}

type manifestFile struct {
	Photos []manifestPhoto `json:"photos"`
}

type datasetConfig struct {
	Path    string         `yaml:"path"`
	Train   string         `yaml:"train"`
	Val     string         `yaml:"val"`
	Classes int            `yaml:"nc"`
	Names   map[int]string `yaml:"names"`
}

// Run exports every labeled photo under outputDir. Photos split 80/20
// between train and val, with every fifth photo going to val. Photos whose
// image file cannot be read are counted as skipped.
func (e *Exporter) Run(ctx context.Context, outputDir string) (*Summary, error) {
	if err := createLayout(outputDir); err != nil {
		return nil, err
	}

	photos, err := e.storage.GetPhotos(ctx, service.PhotoFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	summary := &Summary{}
	manifest := manifestFile{Photos: []manifestPhoto{}}
	position := 0

	for i := range photos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		photo := &photos[i]

		labels, err := e.storage.GetPhotoLabels(ctx, photo.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load labels for %s: %w", photo.ID, err)
		}
		if len(labels) == 0 {
			continue
		}
		if e.Limit > 0 && position >= e.Limit {
			break
		}

		split := "train"
		if position%5 == 0 {
			split = "val"
		}
		position++

		entry, exportErr := e.exportPhoto(photo, labels, outputDir, split)
		if exportErr != nil {
			slog.Warn("Skipping photo", "photo_id", photo.ID, "error", exportErr)
			summary.Skipped++
			continue
		}
		manifest.Photos = append(manifest.Photos, *entry)
		if split == "val" {
			summary.Val++
		} else {
			summary.Train++
		}
	}

	if err := writeDatasetYAML(outputDir); err != nil {
		return nil, err
	}
	if err := writeManifest(outputDir, manifest); err != nil {
		return nil, err
	}

	slog.Info("Export finished",
		"directory", outputDir,
		"train", summary.Train,
		"val", summary.Val,
		"skipped", summary.Skipped)
	return summary, nil
}

func (e *Exporter) exportPhoto(photo *model.Photo, labels []model.Label, outputDir, split string) (*manifestPhoto, error) {
	src, err := thumbnail.LoadImage(photo.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	imageRel := filepath.Join("images", split, photo.ID+".jpg")
	if err := imaging.Save(letterbox(src), filepath.Join(outputDir, imageRel)); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	labelRel := filepath.Join("labels", split, photo.ID+".txt")
	if err := os.WriteFile(filepath.Join(outputDir, labelRel), []byte(annotationLines(labels)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write annotations: %w", err)
	}

	return &manifestPhoto{
		ID:        photo.ID,
		ImagePath: imageRel,
		Label:     ClassToken(labels[0].Name),
	}, nil
}

// letterbox scales the image to fit the square and centers it on a gray
// canvas. Unlike a plain fit, small images are scaled up so every exported
// image fills the same footprint.
func letterbox(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scale := math.Min(float64(ImageSize)/float64(width), float64(ImageSize)/float64(height))
	resized := imaging.Resize(src, int(float64(width)*scale), int(float64(height)*scale), imaging.Linear)

	canvas := imaging.New(ImageSize, ImageSize, letterboxGray)
	return imaging.PasteCenter(canvas, resized)
}

// annotationLines renders one full-image box per vocabulary label. Labels
// outside the training classes are dropped; a photo with none left gets a
// single no_objects line so the sample still trains.
func annotationLines(labels []model.Label) string {
	var sb strings.Builder
	for _, label := range labels {
		if id, ok := classID(ClassToken(label.Name)); ok {
			fmt.Fprintf(&sb, "%d 0.5 0.5 1.0 1.0\n", id)
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("0 0.5 0.5 1.0 1.0\n")
	}
	return sb.String()
}

func createLayout(outputDir string) error {
	for _, dir := range []string{
		filepath.Join(outputDir, "images", "train"),
		filepath.Join(outputDir, "images", "val"),
		filepath.Join(outputDir, "labels", "train"),
		filepath.Join(outputDir, "labels", "val"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func writeDatasetYAML(outputDir string) error {
	absPath, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	names := make(map[int]string, len(trainingClasses))
	for i, class := range trainingClasses {
		names[i] = class
	}
	data, err := yaml.Marshal(datasetConfig{
		Path:    absPath,
		Train:   "images/train",
		Val:     "images/val",
		Classes: len(trainingClasses),
		Names:   names,
	})
	if err != nil {
		return fmt.Errorf("failed to render dataset.yaml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "dataset.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset.yaml: %w", err)
	}
	return nil
}

func writeManifest(outputDir string, manifest manifestFile) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
