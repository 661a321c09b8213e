package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// projectFile is the on-disk schema. It mirrors what the desktop tool
// writes: colors and attribute schemas are stored per class name, frame
// keys are strings, and the current frame's annotations are duplicated at
// the top level.
type projectFile struct {
	Annotations      []json.RawMessage                               `json:"annotations"`
	ClassColors      map[string]annotation.Color                     `json:"class_colors" validate:"required"`
	VideoPath        *string                                         `json:"video_path"`
	CurrentFrame     int                                             `json:"current_frame" validate:"gte=0"`
	FrameAnnotations map[string][]json.RawMessage                    `json:"frame_annotations"`
	ClassAttributes  map[string]map[string]annotation.AttributeSpec  `json:"class_attributes"`
	CurrentStyle     string                                          `json:"current_style,omitempty"`
}

var fileValidator = validator.New(validator.WithRequiredStructEnabled())

// Save writes the project to a JSON file, creating parent directories as
// needed.
func (p *Project) Save(filename string) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid project: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	file := projectFile{
		ClassColors:      map[string]annotation.Color{},
		CurrentFrame:     p.CurrentFrame,
		FrameAnnotations: map[string][]json.RawMessage{},
		ClassAttributes:  map[string]map[string]annotation.AttributeSpec{},
		CurrentStyle:     p.Style,
	}
	if p.VideoPath != "" {
		path := p.VideoPath
		file.VideoPath = &path
	}
	for name, def := range p.Classes {
		file.ClassColors[name] = def.Color
		if len(def.Attributes) > 0 {
			file.ClassAttributes[name] = def.Attributes
		}
	}
	for frame, anns := range p.Frames {
		encoded, err := encodeAnnotations(anns)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		file.FrameAnnotations[strconv.Itoa(frame)] = encoded
	}
	if current, ok := p.Frames[p.CurrentFrame]; ok {
		encoded, err := encodeAnnotations(current)
		if err != nil {
			return err
		}
		file.Annotations = encoded
	} else {
		file.Annotations = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	p.MarkSaved()
	return nil
}

// Load reads a project from a JSON file. Individual annotations that fail
// to decode, carry an invalid box or reference an unknown class are
// skipped; a structurally broken file is an error.
func Load(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	var file projectFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}
	if err := fileValidator.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid project file: %w", err)
	}

	p := New("")
	if file.VideoPath != nil {
		p.VideoPath = *file.VideoPath
	}
	p.CurrentFrame = file.CurrentFrame
	if file.CurrentStyle != "" {
		p.Style = file.CurrentStyle
	}

	for name, color := range file.ClassColors {
		def := annotation.ClassDefinition{Name: name, Color: color}
		if schema, ok := file.ClassAttributes[name]; ok {
			def.Attributes = schema
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		p.Classes[name] = def
	}

	for frameKey, rawAnns := range file.FrameAnnotations {
		frame, err := strconv.Atoi(frameKey)
		if err != nil {
			continue
		}
		anns := decodeAnnotations(rawAnns)
		// Annotations referencing a class absent from class_colors are
		// skipped like any other malformed entry.
		kept := anns[:0]
		for _, ann := range anns {
			if _, ok := p.Classes[ann.Class]; !ok {
				continue
			}
			if err := ann.Validate(); err != nil {
				continue
			}
			kept = append(kept, ann)
		}
		if len(kept) > 0 {
			p.Frames[frame] = kept
		}
	}

	p.MarkSaved()
	return p, nil
}

func encodeAnnotations(anns []annotation.Annotation) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(anns))
	for _, ann := range anns {
		data, err := json.Marshal(ann)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func decodeAnnotations(raw []json.RawMessage) []annotation.Annotation {
	anns := make([]annotation.Annotation, 0, len(raw))
	for _, data := range raw {
		var ann annotation.Annotation
		if err := json.Unmarshal(data, &ann); err != nil {
			continue
		}
		anns = append(anns, ann)
	}
	return anns
}
