package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	writePNG(t, path, testImage(64, 48))

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("loaded size = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	w, h, err := Dimensions(path)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("Dimensions = %dx%d, want 64x48", w, h)
	}

	if _, _, err := Dimensions(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := testImage(32, 32)

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := Save(src, path, format, DefaultSaveOptions); err != nil {
			t.Errorf("Save %s failed: %v", format, err)
			continue
		}
		img, err := Load(path)
		if err != nil {
			t.Errorf("Load %s failed: %v", format, err)
			continue
		}
		if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
			t.Errorf("%s round trip size = %dx%d, want 32x32", format, b.Dx(), b.Dy())
		}
	}
}

func TestCrop(t *testing.T) {
	img := testImage(100, 100)

	chip, err := Crop(img, annotation.Box{X: 10, Y: 20, Width: 30, Height: 40})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if b := chip.Bounds(); b.Dx() != 30 || b.Dy() != 40 {
		t.Errorf("chip size = %dx%d, want 30x40", b.Dx(), b.Dy())
	}

	// A box hanging over the edge is clamped rather than rejected.
	chip, err = Crop(img, annotation.Box{X: 80, Y: 80, Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("Crop of overhanging box failed: %v", err)
	}
	if b := chip.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("clamped chip size = %dx%d, want 20x20", b.Dx(), b.Dy())
	}

	if _, err := Crop(img, annotation.Box{X: 200, Y: 200, Width: 50, Height: 50}); err == nil {
		t.Error("expected error for a box entirely outside the image")
	}
}

func TestPrepareForModel(t *testing.T) {
	src := testImage(200, 100)

	b64, err := PrepareForModel(src, "jpg", 50, 85)
	if err != nil {
		t.Fatalf("PrepareForModel failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable image: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s, want jpeg", format)
	}
	// The long side shrinks to maxDim, preserving aspect.
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("resized to %dx%d, want 50x25", cfg.Width, cfg.Height)
	}

	// maxDim 0 keeps the original size.
	b64, err = PrepareForModel(src, "png", 0, 0)
	if err != nil {
		t.Fatalf("PrepareForModel png failed: %v", err)
	}
	data, _ = base64.StdEncoding.DecodeString(b64)
	cfg, format, err = image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || cfg.Width != 200 || cfg.Height != 100 {
		t.Errorf("got %s %dx%d, want png 200x100", format, cfg.Width, cfg.Height)
	}
}
