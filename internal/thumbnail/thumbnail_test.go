package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

func testImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func saveTestImage(t *testing.T, img image.Image, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("Failed to save test image: %v", err)
	}
	return path
}

func TestGenerator_Generate(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		size       int
		wantWidth  int
		wantHeight int
	}{
		{name: "landscape scales to box width", width: 1024, height: 512, size: 256, wantWidth: 256, wantHeight: 128},
		{name: "portrait scales to box height", width: 512, height: 1024, size: 256, wantWidth: 128, wantHeight: 256},
		{name: "square fills the box", width: 800, height: 800, size: 256, wantWidth: 256, wantHeight: 256},
		{name: "small image is not upscaled", width: 100, height: 50, size: 256, wantWidth: 100, wantHeight: 50},
		{name: "custom box size", width: 640, height: 480, size: 64, wantWidth: 64, wantHeight: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := saveTestImage(t, testImage(tt.width, tt.height), "photo.jpg")

			data, err := NewGenerator(tt.size, FormatJPEG).Generate(path)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			thumb, format, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Failed to decode thumbnail: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("Format = %q, want %q", format, "jpeg")
			}
			bounds := thumb.Bounds()
			if bounds.Dx() != tt.wantWidth || bounds.Dy() != tt.wantHeight {
				t.Errorf("Thumbnail is %dx%d, want %dx%d",
					bounds.Dx(), bounds.Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestGenerator_WebPOutput(t *testing.T) {
	path := saveTestImage(t, testImage(512, 256), "photo.png")

	data, err := NewGenerator(128, FormatWebP).Generate(path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	thumb, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode webp thumbnail: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() != 128 || bounds.Dy() != 64 {
		t.Errorf("Thumbnail is %dx%d, want 128x64", bounds.Dx(), bounds.Dy())
	}
}

func TestGenerator_WebPInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.webp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := webp.Encode(f, testImage(400, 400), &webp.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode webp input: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}

	data, err := NewGenerator(200, FormatJPEG).Generate(path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	thumb, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 200 {
		t.Errorf("Thumbnail width = %d, want 200", thumb.Bounds().Dx())
	}
}

func TestGenerator_MissingFile(t *testing.T) {
	_, err := NewGenerator(256, FormatJPEG).Generate(filepath.Join(t.TempDir(), "absent.jpg"))
	if err == nil {
		t.Fatal("Generate() expected error for missing file, got nil")
	}
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := NewGenerator(0, "")
	if g.size != DefaultSize {
		t.Errorf("size = %d, want %d", g.size, DefaultSize)
	}
	if g.format != FormatJPEG {
		t.Errorf("format = %q, want %q", g.format, FormatJPEG)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "jpeg", want: FormatJPEG},
		{input: "jpg", want: FormatJPEG},
		{input: "", want: FormatJPEG},
		{input: " JPEG ", want: FormatJPEG},
		{input: "webp", want: FormatWebP},
		{input: "WebP", want: FormatWebP},
		{input: "png", wantErr: true},
		{input: "gif", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFormat(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
