package plug

// Params is a flat string-keyed dictionary of primitive parameter values, the
// unit of parameter persistence. Values are whatever the project file loaded;
// accessors coerce and fall back to defaults so the render path never sees a
// missing or mistyped value.
type Params map[string]any

// Float returns the named value coerced to float64, or def.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

// Int returns the named value coerced to int, or def.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok {
		if f, ok := toFloat(v); ok {
			return int(f)
		}
	}
	return def
}

// Bool returns the named value as bool, or def.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// String returns the named value as string, or def.
func (p Params) String(name string, def string) string {
	if v, ok := p[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Defaults builds a Params with every parameter at its declared default.
func Defaults(meta Metadata) Params {
	out := make(Params, len(meta.Parameters))
	for _, spec := range meta.Parameters {
		out[spec.Name] = spec.Default
	}
	return out
}

// Normalize validates raw against meta: unknown keys are dropped, missing
// keys take declared defaults, and out-of-range or mistyped values fall back
// to the default for their spec.
func Normalize(raw Params, meta Metadata) Params {
	out := make(Params, len(meta.Parameters))
	for _, spec := range meta.Parameters {
		v, ok := raw[spec.Name]
		if !ok || !acceptable(v, spec) {
			out[spec.Name] = spec.Default
			continue
		}
		out[spec.Name] = v
	}
	return out
}

// Migrate carries a previous instrument's parameter values over to a new
// metadata set: same-named valid values are preserved, everything else takes
// the new defaults. Used when a track's instrument is swapped.
func Migrate(old Params, meta Metadata) Params {
	return Normalize(old, meta)
}

func acceptable(v any, spec ParameterSpec) bool {
	switch spec.Type {
	case TypeFloat, TypeInt:
		f, ok := toFloat(v)
		return ok && f >= spec.Min && f <= spec.Max
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, e := range spec.EnumValues {
			if e == s {
				return true
			}
		}
	}
	return false
}
