// Package project implements the annotation project store: class
// definitions plus per-frame annotation lists, persisted as JSON in the
// same schema the desktop tool writes.
package project

import (
	"fmt"
	"sort"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// Project is the in-memory annotation store for one piece of source media.
// Frame keys are frame indices for video; for image folders they index into
// the ordered image list.
type Project struct {
	Classes      map[string]annotation.ClassDefinition
	Frames       map[int][]annotation.Annotation
	VideoPath    string
	CurrentFrame int
	Style        string

	modified bool
}

// New creates an empty project for the given media path.
func New(videoPath string) *Project {
	return &Project{
		Classes:   map[string]annotation.ClassDefinition{},
		Frames:    map[int][]annotation.Annotation{},
		VideoPath: videoPath,
		Style:     "Default",
	}
}

// Modified reports whether the project changed since the last save/load.
func (p *Project) Modified() bool { return p.modified }

// MarkSaved clears the modified flag. Load and Save call it.
func (p *Project) MarkSaved() { p.modified = false }

// MarkModified flags the project as dirty, for callers mutating annotation
// structs in place.
func (p *Project) MarkModified() { p.modified = true }

// AddClass registers a class definition. Names are unique.
func (p *Project) AddClass(def annotation.ClassDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := p.Classes[def.Name]; exists {
		return fmt.Errorf("class %q already exists", def.Name)
	}
	p.Classes[def.Name] = def
	p.modified = true
	return nil
}

// RemoveClass deletes a class. It fails while annotations still reference
// the class, keeping referential integrity intact.
func (p *Project) RemoveClass(name string) error {
	if _, ok := p.Classes[name]; !ok {
		return fmt.Errorf("class %q does not exist", name)
	}
	for frame, anns := range p.Frames {
		for _, ann := range anns {
			if ann.Class == name {
				return fmt.Errorf("class %q is still used on frame %d", name, frame)
			}
		}
	}
	delete(p.Classes, name)
	p.modified = true
	return nil
}

// RenameClass renames a class and rewrites every annotation referencing it.
func (p *Project) RenameClass(oldName, newName string) error {
	def, ok := p.Classes[oldName]
	if !ok {
		return fmt.Errorf("class %q does not exist", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := p.Classes[newName]; exists {
		return fmt.Errorf("class %q already exists", newName)
	}
	def.Name = newName
	delete(p.Classes, oldName)
	p.Classes[newName] = def
	for frame, anns := range p.Frames {
		for i := range anns {
			if anns[i].Class == oldName {
				anns[i].Class = newName
			}
		}
		p.Frames[frame] = anns
	}
	p.modified = true
	return nil
}

// ClassNames returns the class names in sorted order.
func (p *Project) ClassNames() []string {
	names := make([]string, 0, len(p.Classes))
	for name := range p.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add appends an annotation to a frame after checking its invariants and
// class reference.
func (p *Project) Add(frame int, ann annotation.Annotation) error {
	if err := ann.Validate(); err != nil {
		return err
	}
	if _, ok := p.Classes[ann.Class]; !ok {
		return fmt.Errorf("annotation references unknown class %q", ann.Class)
	}
	p.Frames[frame] = append(p.Frames[frame], ann)
	p.modified = true
	return nil
}

// SetFrame replaces a frame's annotation list. An empty list removes the
// frame entry.
func (p *Project) SetFrame(frame int, anns []annotation.Annotation) error {
	for _, ann := range anns {
		if err := ann.Validate(); err != nil {
			return err
		}
		if _, ok := p.Classes[ann.Class]; !ok {
			return fmt.Errorf("annotation references unknown class %q", ann.Class)
		}
	}
	if len(anns) == 0 {
		delete(p.Frames, frame)
	} else {
		p.Frames[frame] = anns
	}
	p.modified = true
	return nil
}

// Remove deletes one annotation from a frame by index.
func (p *Project) Remove(frame, index int) error {
	anns, ok := p.Frames[frame]
	if !ok || index < 0 || index >= len(anns) {
		return fmt.Errorf("no annotation %d on frame %d", index, frame)
	}
	p.Frames[frame] = append(anns[:index], anns[index+1:]...)
	if len(p.Frames[frame]) == 0 {
		delete(p.Frames, frame)
	}
	p.modified = true
	return nil
}

// ClearFrame removes all annotations from a frame.
func (p *Project) ClearFrame(frame int) {
	if _, ok := p.Frames[frame]; ok {
		delete(p.Frames, frame)
		p.modified = true
	}
}

// AnnotatedFrames returns the frame indices carrying annotations, sorted.
func (p *Project) AnnotatedFrames() []int {
	frames := make([]int, 0, len(p.Frames))
	for f := range p.Frames {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// AnnotationCount returns the total number of annotations across frames.
func (p *Project) AnnotationCount() int {
	n := 0
	for _, anns := range p.Frames {
		n += len(anns)
	}
	return n
}

// AllAnnotations returns every annotation in frame order. Useful for
// exporters operating on the whole project.
func (p *Project) AllAnnotations() []annotation.Annotation {
	var out []annotation.Annotation
	for _, frame := range p.AnnotatedFrames() {
		out = append(out, p.Frames[frame]...)
	}
	return out
}

// PreviousAttributes finds the attributes of the most recently annotated
// box of a class, so new annotations can start from the last-used values.
func (p *Project) PreviousAttributes(class string) annotation.Attributes {
	frames := p.AnnotatedFrames()
	for i := len(frames) - 1; i >= 0; i-- {
		for _, ann := range p.Frames[frames[i]] {
			if ann.Class == class {
				return ann.Attributes.Clone()
			}
		}
	}
	return nil
}

// Validate checks project-wide invariants: valid class definitions, valid
// boxes and referential integrity of every annotation's class.
func (p *Project) Validate() error {
	for _, def := range p.Classes {
		if err := def.Validate(); err != nil {
			return err
		}
	}
	for _, frame := range p.AnnotatedFrames() {
		for i, ann := range p.Frames[frame] {
			if err := ann.Validate(); err != nil {
				return fmt.Errorf("frame %d annotation %d: %w", frame, i, err)
			}
			if _, ok := p.Classes[ann.Class]; !ok {
				return fmt.Errorf("frame %d annotation %d references unknown class %q",
					frame, i, ann.Class)
			}
		}
	}
	if p.CurrentFrame < 0 {
		return fmt.Errorf("current frame must not be negative")
	}
	return nil
}
