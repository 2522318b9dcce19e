package plug

import (
	"fmt"
	"strconv"
	"strings"
)

// ParameterType enumerates the value kinds a plugin parameter may take.
type ParameterType int

const (
	TypeFloat ParameterType = iota
	TypeInt
	TypeBool
	TypeEnum
)

func (t ParameterType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeEnum:
		return "enum"
	}
	return "unknown"
}

// Category distinguishes audio generators from audio transformers.
type Category int

const (
	CategorySource Category = iota
	CategoryEffect
)

func (c Category) String() string {
	if c == CategorySource {
		return "source"
	}
	return "effect"
}

// ParameterSpec declares one plugin parameter. UI and persistence are driven
// entirely by this metadata.
type ParameterSpec struct {
	Name        string
	Type        ParameterType
	Default     any
	Min         float64 // numeric types only
	Max         float64 // numeric types only
	DisplayName string
	Description string
	EnumValues  []string // enum type only
	Unit        string
	Logarithmic bool
}

func (s ParameterSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	switch s.Type {
	case TypeEnum:
		if len(s.EnumValues) == 0 {
			return fmt.Errorf("parameter %s: enum type requires enum values", s.Name)
		}
		def, ok := s.Default.(string)
		if !ok {
			return fmt.Errorf("parameter %s: enum default must be a string", s.Name)
		}
		found := false
		for _, v := range s.EnumValues {
			if v == def {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("parameter %s: default %q not in enum values", s.Name, def)
		}
	case TypeFloat, TypeInt:
		if s.Min >= s.Max {
			return fmt.Errorf("parameter %s: min must be < max", s.Name)
		}
		def, ok := toFloat(s.Default)
		if !ok {
			return fmt.Errorf("parameter %s: numeric default required", s.Name)
		}
		if def < s.Min || def > s.Max {
			return fmt.Errorf("parameter %s: default %v outside [%v, %v]", s.Name, def, s.Min, s.Max)
		}
	case TypeBool:
		if _, ok := s.Default.(bool); !ok {
			return fmt.Errorf("parameter %s: bool default required", s.Name)
		}
	default:
		return fmt.Errorf("parameter %s: unknown type %d", s.Name, int(s.Type))
	}
	return nil
}

// Metadata is a plugin's identity plus its full parameter schema. Build with
// NewMetadata so validation runs before anything holds a reference.
type Metadata struct {
	ID          string // UPPER_SNAKE_CASE, unique in a registry
	Name        string
	Category    Category
	Version     string // semantic version X.Y.Z
	Author      string
	Description string
	Parameters  []ParameterSpec
}

// NewMetadata validates and returns plugin metadata. Specs with empty display
// names get one derived from the parameter name.
func NewMetadata(m Metadata) (Metadata, error) {
	if m.ID == "" {
		return Metadata{}, fmt.Errorf("plugin id is required")
	}
	if m.ID != strings.ToUpper(m.ID) {
		return Metadata{}, fmt.Errorf("plugin id must be upper case: %s", m.ID)
	}
	if m.Name == "" {
		return Metadata{}, fmt.Errorf("plugin name is required")
	}
	if err := validateVersion(m.Version); err != nil {
		return Metadata{}, fmt.Errorf("plugin %s: %w", m.ID, err)
	}
	seen := make(map[string]bool, len(m.Parameters))
	params := make([]ParameterSpec, len(m.Parameters))
	for i, p := range m.Parameters {
		if err := p.validate(); err != nil {
			return Metadata{}, fmt.Errorf("plugin %s: %w", m.ID, err)
		}
		if seen[p.Name] {
			return Metadata{}, fmt.Errorf("plugin %s: duplicate parameter name %s", m.ID, p.Name)
		}
		seen[p.Name] = true
		if p.DisplayName == "" {
			p.DisplayName = titleFromSnake(p.Name)
		}
		params[i] = p
	}
	m.Parameters = params
	return m, nil
}

// Spec returns the parameter spec with the given name.
func (m Metadata) Spec(name string) (ParameterSpec, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

func validateVersion(v string) error {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return fmt.Errorf("invalid version format: %q (expected X.Y.Z)", v)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return fmt.Errorf("invalid version format: %q (expected X.Y.Z)", v)
		}
	}
	return nil
}

func titleFromSnake(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
