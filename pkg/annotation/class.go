package annotation

import (
	"fmt"
	"math/rand"
	"strings"
)

// ClassDefinition describes one object class: its unique name, display
// color and the attribute schema new annotations of the class start with.
type ClassDefinition struct {
	Name       string                   `json:"name"`
	Color      Color                    `json:"color"`
	Attributes map[string]AttributeSpec `json:"attributes,omitempty"`
}

// Validate checks the class definition.
func (c ClassDefinition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("class has no name")
	}
	for attrName, spec := range c.Attributes {
		if _, err := ParseAttrType(string(spec.Type)); err != nil {
			return fmt.Errorf("class %q attribute %q: %w", c.Name, attrName, err)
		}
		if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
			return fmt.Errorf("class %q attribute %q: min %v above max %v",
				c.Name, attrName, *spec.Min, *spec.Max)
		}
	}
	return nil
}

// DefaultAttributes builds an attribute map with every schema default set.
func (c ClassDefinition) DefaultAttributes() Attributes {
	attrs := make(Attributes, len(c.Attributes))
	for name, spec := range c.Attributes {
		attrs[name] = spec.DefaultValue()
	}
	return attrs
}

// RandomColor picks a display color for a class discovered during dataset
// import, when no palette entry exists yet.
func RandomColor(rng *rand.Rand) Color {
	return Color{
		R: uint8(rng.Intn(256)),
		G: uint8(rng.Intn(256)),
		B: uint8(rng.Intn(256)),
		A: 255,
	}
}
