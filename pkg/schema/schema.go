package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Extra decides what happens to argument keys a schema does not declare.
type Extra int

const (
	// ExtraStrip drops undeclared keys from the normalized arguments.
	ExtraStrip Extra = iota
	// ExtraReject fails validation on undeclared keys.
	ExtraReject
	// ExtraAllow passes undeclared keys through unchanged.
	ExtraAllow
)

// Field describes one named argument.
type Field struct {
	Key         string
	Type        Type
	Description string
	Required    bool
	Nullable    bool
	Default     any
	HasDefault  bool
	Min, Max    *float64
	MinLength   *int
	MaxLength   *int
	Enum        []any
	Pattern     *regexp.Regexp
}

// Schema is the argument contract of a tool: an ordered list of fields plus object-level rules.
// Both the declarative builder and FromJSON produce a Schema, so every tool is validated the same way.
type Schema struct {
	Fields []Field
	Extra  Extra
	// AnyOf lists keys of which at least one must be present after defaults are applied.
	AnyOf []string
}

// Field returns the field declared under key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks data against the schema and returns the normalized arguments:
// defaults filled in, numbers normalized, undeclared keys handled per Extra.
// All failures are collected into an *AggregateError.
func (s Schema) Validate(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	var errs []error

	declared := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Key] = true
	}

	var extras []string
	for key := range data {
		if !declared[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		switch s.Extra {
		case ExtraReject:
			errs = append(errs, &ValidationError{Key: key, Reason: "unknown field", Value: data[key]})
		case ExtraAllow:
			out[key] = data[key]
		}
	}

	for _, f := range s.Fields {
		value, present := data[f.Key]
		if present && value == nil && f.Nullable {
			out[f.Key] = nil
			continue
		}
		if !present || value == nil {
			switch {
			case f.HasDefault:
				out[f.Key] = f.Default
			case f.Required:
				errs = append(errs, &ValidationError{Key: f.Key, Reason: "required"})
			}
			continue
		}

		v, err := f.check(value)
		if err != nil {
			errs = append(errs, &ValidationError{Key: f.Key, Reason: err.Error(), Value: value})
			continue
		}
		out[f.Key] = v
	}

	if len(s.AnyOf) > 0 && len(errs) == 0 {
		found := false
		for _, key := range s.AnyOf {
			if v, ok := out[key]; ok && v != nil {
				found = true
				break
			}
		}
		if !found {
			for _, key := range s.AnyOf {
				errs = append(errs, &ValidationError{
					Key:    key,
					Reason: fmt.Sprintf("at least one of %s is required", strings.Join(s.AnyOf, ", ")),
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}

func (f Field) check(value any) (any, error) {
	typ := f.Type
	if typ == nil {
		typ = Any()
	}
	v, err := typ.Coerce(value)
	if err != nil {
		return nil, err
	}

	if len(f.Enum) > 0 && !inEnum(f.Enum, v) {
		return nil, fmt.Errorf("must be one of %s", formatEnum(f.Enum))
	}

	if n, ok := AsFloat(v); ok {
		if f.Min != nil && n < *f.Min {
			return nil, fmt.Errorf("must be >= %s", formatNumber(*f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return nil, fmt.Errorf("must be <= %s", formatNumber(*f.Max))
		}
	}

	if str, ok := v.(string); ok {
		length := utf8.RuneCountInString(str)
		if f.MinLength != nil && length < *f.MinLength {
			return nil, fmt.Errorf("must be at least %d characters", *f.MinLength)
		}
		if f.MaxLength != nil && length > *f.MaxLength {
			return nil, fmt.Errorf("must be at most %d characters", *f.MaxLength)
		}
		if f.Pattern != nil && !f.Pattern.MatchString(str) {
			return nil, fmt.Errorf("must match %s", f.Pattern.String())
		}
	}
	return v, nil
}

func inEnum(enum []any, v any) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
		a, aok := AsFloat(e)
		b, bok := AsFloat(v)
		if aok && bok && a == b {
			return true
		}
	}
	return false
}

func formatEnum(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprint(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// JSONSchema renders the schema as a JSON Schema object suitable for a tool declaration.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		props[f.Key] = f.jsonSchema()
		if f.Required {
			required = append(required, f.Key)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	if s.Extra != ExtraAllow {
		out["additionalProperties"] = false
	}
	return out
}

func (f Field) jsonSchema() map[string]any {
	p := map[string]any{}
	if f.Type != nil {
		if name := f.Type.Name(); name != "" {
			p["type"] = name
		}
		if st, ok := f.Type.(*SliceType); ok {
			items := map[string]any{}
			if name := st.Elem().Name(); name != "" {
				items["type"] = name
			}
			p["items"] = items
		}
	}
	if f.Nullable {
		p["nullable"] = true
	}
	if f.Description != "" {
		p["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		p["enum"] = f.Enum
	}
	if f.HasDefault {
		p["default"] = f.Default
	}
	if f.Min != nil {
		p["minimum"] = *f.Min
	}
	if f.Max != nil {
		p["maximum"] = *f.Max
	}
	if f.MinLength != nil {
		p["minLength"] = *f.MinLength
	}
	if f.MaxLength != nil {
		p["maxLength"] = *f.MaxLength
	}
	if f.Pattern != nil {
		p["pattern"] = f.Pattern.String()
	}
	return p
}
