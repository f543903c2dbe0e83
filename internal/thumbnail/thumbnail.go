// Package thumbnail renders the small preview images cached on photo rows.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decode support for image.Decode
)

// Format selects the thumbnail encoding.
type Format string

// Supported thumbnail encodings.
const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// DefaultSize is the bounding box thumbnails are fitted into, in pixels.
const DefaultSize = 256

const defaultQuality = 80

// ParseFormat converts user input into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported thumbnail format %q (want jpeg or webp)", s)
	}
}

// Generator produces thumbnails fitted into a square bounding box.
type Generator struct {
	format  Format
	size    int
	quality int
}

// NewGenerator creates a generator for the given box size and encoding.
// Non-positive sizes fall back to DefaultSize.
func NewGenerator(size int, format Format) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	if format == "" {
		format = FormatJPEG
	}
	return &Generator{size: size, format: format, quality: defaultQuality}
}

// Generate loads the image at path and returns encoded thumbnail bytes.
func (g *Generator) Generate(imagePath string) ([]byte, error) {
	img, err := LoadImage(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", imagePath, err)
	}
	return g.FromImage(img)
}

// FromImage scales a decoded image into the bounding box and encodes it.
// Images already inside the box are encoded as-is, never upscaled.
func (g *Generator) FromImage(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, g.size, g.size, imaging.Lanczos)

	var buf bytes.Buffer
	switch g.format {
	case FormatWebP:
		if err := webp.Encode(&buf, thumb, &webp.Options{Quality: float32(g.quality)}); err != nil {
			return nil, fmt.Errorf("failed to encode webp thumbnail: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: g.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg thumbnail: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// LoadImage opens an image file with EXIF orientation applied, falling back
// to an explicit WebP decode for files imaging cannot identify.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer func() { _ = f.Close() }()

	if img, webpErr := webp.Decode(f); webpErr == nil {
		return img, nil
	}
	if _, seekErr := f.Seek(0, 0); seekErr == nil {
		if img, _, decodeErr := image.Decode(f); decodeErr == nil {
			return img, nil
		}
	}
	return nil, err
}
