package annotation

import (
	"encoding/json"
	"math"
	"testing"
)

func TestBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"normal box", Box{X: 10, Y: 20, Width: 100, Height: 50}, true},
		{"zero width", Box{X: 10, Y: 20, Width: 0, Height: 50}, false},
		{"negative height", Box{X: 10, Y: 20, Width: 100, Height: -5}, false},
		{"negative origin", Box{X: -1, Y: 0, Width: 10, Height: 10}, false},
		{"at origin", Box{X: 0, Y: 0, Width: 1, Height: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{
			"identical boxes",
			Box{X: 0, Y: 0, Width: 10, Height: 10},
			Box{X: 0, Y: 0, Width: 10, Height: 10},
			1.0,
		},
		{
			"no overlap",
			Box{X: 0, Y: 0, Width: 10, Height: 10},
			Box{X: 20, Y: 20, Width: 10, Height: 10},
			0.0,
		},
		{
			"half overlap horizontally",
			Box{X: 0, Y: 0, Width: 10, Height: 10},
			Box{X: 5, Y: 0, Width: 10, Height: 10},
			50.0 / 150.0,
		},
		{
			"touching edges",
			Box{X: 0, Y: 0, Width: 10, Height: 10},
			Box{X: 10, Y: 0, Width: 10, Height: 10},
			0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.IoU(tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("IoU() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxClampTo(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want Box
	}{
		{
			"inside frame",
			Box{X: 10, Y: 10, Width: 50, Height: 50},
			Box{X: 10, Y: 10, Width: 50, Height: 50},
		},
		{
			"past right edge",
			Box{X: 90, Y: 10, Width: 50, Height: 20},
			Box{X: 90, Y: 10, Width: 10, Height: 20},
		},
		{
			"negative origin",
			Box{X: -10, Y: -5, Width: 30, Height: 30},
			Box{X: 0, Y: 0, Width: 20, Height: 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.ClampTo(100, 100); got != tt.want {
				t.Errorf("ClampTo(100, 100) = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoxNormalizedRoundTrip(t *testing.T) {
	box := Box{X: 100, Y: 50, Width: 200, Height: 150}
	n := box.Normalized(1920, 1080)
	back := FromNormalized(n, 1920, 1080)
	if back != box {
		t.Errorf("round trip changed box: got %+v, want %+v", back, box)
	}
}

func TestAnnotationJSONRoundTrip(t *testing.T) {
	color := Color{R: 0, G: 255, B: 0, A: 255}
	ann := Annotation{
		Box:   Box{X: 10, Y: 20, Width: 100, Height: 80},
		Class: "car",
		Attributes: Attributes{
			"Size":    3,
			"Quality": -1,
			"Ratio":   0.5,
			"Moving":  true,
			"Note":    "partial",
		},
		Color: &color,
	}

	data, err := json.Marshal(ann)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Annotation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if back.Box != ann.Box {
		t.Errorf("box changed: got %+v, want %+v", back.Box, ann.Box)
	}
	if back.Class != ann.Class {
		t.Errorf("class changed: got %q, want %q", back.Class, ann.Class)
	}
	if *back.Color != *ann.Color {
		t.Errorf("color changed: got %+v, want %+v", *back.Color, *ann.Color)
	}

	// Integer attributes must come back as ints, floats as floats.
	if v, ok := back.Attributes["Size"].(int); !ok || v != 3 {
		t.Errorf("Size = %v (%T), want int 3", back.Attributes["Size"], back.Attributes["Size"])
	}
	if v, ok := back.Attributes["Ratio"].(float64); !ok || v != 0.5 {
		t.Errorf("Ratio = %v (%T), want float64 0.5", back.Attributes["Ratio"], back.Attributes["Ratio"])
	}
	if v, ok := back.Attributes["Moving"].(bool); !ok || !v {
		t.Errorf("Moving = %v, want true", back.Attributes["Moving"])
	}
	if v, ok := back.Attributes["Note"].(string); !ok || v != "partial" {
		t.Errorf("Note = %v, want \"partial\"", back.Attributes["Note"])
	}
}

func TestAnnotationNilColorRoundTrip(t *testing.T) {
	ann := Annotation{
		Box:   Box{X: 1, Y: 2, Width: 3, Height: 4},
		Class: "person",
	}

	data, err := json.Marshal(ann)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Annotation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Color != nil {
		t.Errorf("expected nil color, got %+v", *back.Color)
	}
	if back.EffectiveColor() != DefaultColor {
		t.Errorf("EffectiveColor() = %+v, want default", back.EffectiveColor())
	}
}

func TestAnnotationClone(t *testing.T) {
	color := Color{R: 1, G: 2, B: 3, A: 4}
	ann := Annotation{
		Box:        Box{X: 1, Y: 1, Width: 2, Height: 2},
		Class:      "dog",
		Attributes: Attributes{"Size": 5},
		Color:      &color,
	}

	clone := ann.Clone()
	clone.Attributes["Size"] = 9
	clone.Color.R = 99

	if ann.Attributes["Size"] != 5 {
		t.Error("clone shares attribute map with original")
	}
	if ann.Color.R != 1 {
		t.Error("clone shares color pointer with original")
	}
}

func TestAnnotationValidate(t *testing.T) {
	valid := Annotation{Box: Box{X: 0, Y: 0, Width: 5, Height: 5}, Class: "cat"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	noClass := Annotation{Box: Box{X: 0, Y: 0, Width: 5, Height: 5}}
	if err := noClass.Validate(); err == nil {
		t.Error("expected error for missing class")
	}

	badBox := Annotation{Box: Box{Width: 0, Height: 5}, Class: "cat"}
	if err := badBox.Validate(); err == nil {
		t.Error("expected error for invalid box")
	}
}
