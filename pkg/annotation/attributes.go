package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// UnsetAttr is the sentinel for numeric attributes the user never filled in.
// Exporters skip attributes equal to it.
const UnsetAttr = -1

// AttrType enumerates the supported attribute value types.
type AttrType string

const (
	AttrString  AttrType = "string"
	AttrInt     AttrType = "int"
	AttrFloat   AttrType = "float"
	AttrBoolean AttrType = "boolean"
)

// ParseAttrType normalizes a type name from a project file or user input.
func ParseAttrType(s string) (AttrType, error) {
	switch AttrType(strings.ToLower(strings.TrimSpace(s))) {
	case AttrString, "":
		return AttrString, nil
	case AttrInt:
		return AttrInt, nil
	case AttrFloat:
		return AttrFloat, nil
	case AttrBoolean:
		return AttrBoolean, nil
	}
	return "", fmt.Errorf("unknown attribute type %q", s)
}

// Zero returns the default value for the type.
func (t AttrType) Zero() any {
	switch t {
	case AttrInt:
		return 0
	case AttrFloat:
		return 0.0
	case AttrBoolean:
		return false
	default:
		return ""
	}
}

// TypeOf infers the attribute type of a value.
func TypeOf(v any) AttrType {
	switch v.(type) {
	case bool:
		return AttrBoolean
	case int:
		return AttrInt
	case float64:
		return AttrFloat
	default:
		return AttrString
	}
}

// AttributeSpec describes one attribute in a class schema: its type, an
// optional numeric range and an optional default value.
type AttributeSpec struct {
	Type    AttrType `json:"type"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Default any      `json:"default,omitempty"`
}

// UnmarshalJSON keeps the int/float distinction of the default value, like
// attribute values themselves.
func (s *AttributeSpec) UnmarshalJSON(data []byte) error {
	type plain struct {
		Type    AttrType        `json:"type"`
		Min     *float64        `json:"min,omitempty"`
		Max     *float64        `json:"max,omitempty"`
		Default json.RawMessage `json:"default,omitempty"`
	}
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Type = raw.Type
	s.Min = raw.Min
	s.Max = raw.Max
	s.Default = nil
	if len(raw.Default) > 0 && string(raw.Default) != "null" {
		dec := json.NewDecoder(bytes.NewReader(raw.Default))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("attribute default: %w", err)
		}
		s.Default = nv
	}
	return nil
}

// DefaultValue returns the spec's default, or the type's zero value.
func (s AttributeSpec) DefaultValue() any {
	if s.Default != nil {
		if v, err := s.Coerce(s.Default); err == nil {
			return v
		}
	}
	return s.Type.Zero()
}

// Coerce converts a value to the spec's type, clamping numerics into the
// configured range. The unset sentinel passes through untouched.
func (s AttributeSpec) Coerce(v any) (any, error) {
	switch s.Type {
	case AttrBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strings.EqualFold(x, "true"), nil
		case int:
			return x != 0, nil
		case float64:
			return x != 0, nil
		}
	case AttrInt:
		switch x := v.(type) {
		case int:
			return s.clampInt(x), nil
		case float64:
			return s.clampInt(int(math.Round(x))), nil
		case bool:
			if x {
				return s.clampInt(1), nil
			}
			return s.clampInt(0), nil
		}
	case AttrFloat:
		switch x := v.(type) {
		case float64:
			return s.clampFloat(x), nil
		case int:
			return s.clampFloat(float64(x)), nil
		}
	case AttrString, "":
		return fmt.Sprintf("%v", v), nil
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", v, s.Type)
}

func (s AttributeSpec) clampInt(v int) int {
	if v == UnsetAttr {
		return v
	}
	if s.Min != nil && float64(v) < *s.Min {
		v = int(*s.Min)
	}
	if s.Max != nil && float64(v) > *s.Max {
		v = int(*s.Max)
	}
	return v
}

func (s AttributeSpec) clampFloat(v float64) float64 {
	if v == UnsetAttr {
		return v
	}
	if s.Min != nil && v < *s.Min {
		v = *s.Min
	}
	if s.Max != nil && v > *s.Max {
		v = *s.Max
	}
	return v
}

// Attributes holds per-annotation key-value pairs. Values are restricted to
// string, int, float64 and bool.
type Attributes map[string]any

// Clone returns a copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// IsSet reports whether the attribute exists and is not the unset sentinel.
func (a Attributes) IsSet(name string) bool {
	v, ok := a[name]
	if !ok {
		return false
	}
	return !isUnset(v)
}

// Exportable returns the attributes worth writing to an interchange format,
// skipping unset sentinel values. Nil when nothing remains.
func (a Attributes) Exportable() Attributes {
	var out Attributes
	for k, v := range a {
		if isUnset(v) {
			continue
		}
		if out == nil {
			out = Attributes{}
		}
		out[k] = v
	}
	return out
}

func isUnset(v any) bool {
	switch x := v.(type) {
	case int:
		return x == UnsetAttr
	case float64:
		return x == UnsetAttr
	}
	return false
}

// ApplySchema rebuilds the annotation's attributes for a class schema:
// values still named by the schema are kept, missing ones get the schema
// default. Used when an annotation changes class.
func ApplySchema(a *Annotation, schema map[string]AttributeSpec) {
	current := a.Attributes
	a.Attributes = Attributes{}
	for name, spec := range schema {
		if v, ok := current[name]; ok {
			if coerced, err := spec.Coerce(v); err == nil {
				a.Attributes[name] = coerced
				continue
			}
		}
		a.Attributes[name] = spec.DefaultValue()
	}
}

// UnmarshalJSON decodes an attribute object preserving the int/float
// distinction: literals without a fraction or exponent stay ints.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	m, err := decodeAttributes(data)
	if err != nil {
		return err
	}
	*a = m
	return nil
}

func decodeAttributes(raw json.RawMessage) (Attributes, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Attributes{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	out := make(Attributes, len(m))
	for k, v := range m {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := x.Int64(); err == nil {
				return int(i), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string, bool, nil:
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ParseAttributes parses "key=value" lines into an attribute map, the text
// form accepted on the command line and in quick-edit fields.
func ParseAttributes(text string) Attributes {
	attrs := Attributes{}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
