// Package annotation defines the core bounding-box annotation model:
// pixel-space boxes, display colors, class definitions with attribute
// schemas, and the JSON shape shared by project files and exports.
package annotation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Box is an axis-aligned rectangle in image/frame pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the box has a non-negative origin and positive size.
func (b Box) Valid() bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Center returns the box center point.
func (b Box) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}

// Intersect returns the overlapping region of two boxes. The zero Box is
// returned when they do not overlap.
func (b Box) Intersect(other Box) Box {
	x0 := maxInt(b.X, other.X)
	y0 := maxInt(b.Y, other.Y)
	x1 := minInt(b.X+b.Width, other.X+other.Width)
	y1 := minInt(b.Y+b.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Box{}
	}
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IoU returns the intersection-over-union of two boxes in [0,1].
func (b Box) IoU(other Box) float64 {
	inter := b.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ClampTo constrains the box to lie within a frame of the given dimensions.
// The size shrinks when the box extends past the frame edge.
func (b Box) ClampTo(imgWidth, imgHeight int) Box {
	x0 := clampInt(b.X, 0, imgWidth)
	y0 := clampInt(b.Y, 0, imgHeight)
	x1 := clampInt(b.X+b.Width, 0, imgWidth)
	y1 := clampInt(b.Y+b.Height, 0, imgHeight)
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// NormalizedBox is a box with coordinates expressed as ratios of the image
// size, the convention used by YOLO labels and vision models.
type NormalizedBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Normalized converts the pixel box to [0,1] ratios of the image size.
func (b Box) Normalized(imgWidth, imgHeight int) NormalizedBox {
	if imgWidth <= 0 || imgHeight <= 0 {
		return NormalizedBox{}
	}
	return NormalizedBox{
		X: float64(b.X) / float64(imgWidth),
		Y: float64(b.Y) / float64(imgHeight),
		W: float64(b.Width) / float64(imgWidth),
		H: float64(b.Height) / float64(imgHeight),
	}
}

// FromNormalized converts a normalized box back to pixel coordinates.
func FromNormalized(n NormalizedBox, imgWidth, imgHeight int) Box {
	return Box{
		X:      int(math.Round(n.X * float64(imgWidth))),
		Y:      int(math.Round(n.Y * float64(imgHeight))),
		Width:  int(math.Round(n.W * float64(imgWidth))),
		Height: int(math.Round(n.H * float64(imgHeight))),
	}
}

// Color is a display color stored with each class and annotation.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// DefaultColor is used when an annotation carries no color of its own.
var DefaultColor = Color{R: 255, G: 0, B: 0, A: 255}

// Annotation is a single labeled bounding box with optional custom
// attributes. Frame membership is tracked by the owning project, not here.
type Annotation struct {
	Box        Box
	Class      string
	Attributes Attributes
	Color      *Color
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	out := a
	if a.Color != nil {
		c := *a.Color
		out.Color = &c
	}
	out.Attributes = a.Attributes.Clone()
	return out
}

// EffectiveColor returns the annotation color, falling back to the default.
func (a Annotation) EffectiveColor() Color {
	if a.Color != nil {
		return *a.Color
	}
	return DefaultColor
}

// Validate checks the annotation's own invariants. Class membership is
// checked at the project level.
func (a Annotation) Validate() error {
	if strings.TrimSpace(a.Class) == "" {
		return fmt.Errorf("annotation has no class")
	}
	if !a.Box.Valid() {
		return fmt.Errorf("annotation %q has invalid box %dx%d at (%d,%d)",
			a.Class, a.Box.Width, a.Box.Height, a.Box.X, a.Box.Y)
	}
	return nil
}

// annotationJSON is the serialized shape used in project files.
type annotationJSON struct {
	Rect       Box        `json:"rect"`
	ClassName  string     `json:"class_name"`
	Attributes Attributes `json:"attributes"`
	Color      *Color     `json:"color"`
}

// MarshalJSON writes the project-file shape:
// {"rect":{...},"class_name":...,"attributes":{...},"color":{...}|null}.
func (a Annotation) MarshalJSON() ([]byte, error) {
	attrs := a.Attributes
	if attrs == nil {
		attrs = Attributes{}
	}
	return json.Marshal(annotationJSON{
		Rect:       a.Box,
		ClassName:  a.Class,
		Attributes: attrs,
		Color:      a.Color,
	})
}

// UnmarshalJSON reads the project-file shape. A missing color falls back to
// the default on access, not here, so round-trips stay faithful.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var raw annotationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Box = raw.Rect
	a.Class = raw.ClassName
	a.Attributes = raw.Attributes
	a.Color = raw.Color
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
