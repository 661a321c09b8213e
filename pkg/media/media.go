// Package media handles image access for annotation work: loading frames
// and stills (including WebP), probing dimensions cheaply, saving chips and
// preparing downscaled copies for vision models.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// SaveOptions controls the encoder used by Save.
type SaveOptions struct {
	Quality  int
	Lossless bool
}

// DefaultSaveOptions is a reasonable default for exported chips.
var DefaultSaveOptions = SaveOptions{Quality: 90}

// Load reads an image from a file path with WebP support.
func Load(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// Decode reads an image from a reader with WebP fallback.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Dimensions probes an image's width and height without decoding pixels.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Save writes an image in the format implied by the explicit format name
// (webp/png/jpg).
func Save(img image.Image, path, format string, opts SaveOptions) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.Quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(opts.Quality))
	}
}

// Crop extracts the region of an annotation box, clamped to the image.
// Used for per-object chip export.
func Crop(img image.Image, box annotation.Box) (image.Image, error) {
	bounds := img.Bounds()
	clamped := box.ClampTo(bounds.Dx(), bounds.Dy())
	if !clamped.Valid() {
		return nil, fmt.Errorf("annotation box lies outside the image")
	}
	rect := image.Rect(clamped.X, clamped.Y, clamped.X+clamped.Width, clamped.Y+clamped.Height)
	return imaging.Crop(img, rect.Add(bounds.Min)), nil
}

// PrepareForModel downscales and base64-encodes an image for a vision
// model request. maxDim 0 keeps the original size.
func PrepareForModel(img image.Image, format string, maxDim, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
