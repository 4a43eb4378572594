package schema

import (
	"fmt"
	"regexp"
)

// FieldBuilder declares one field fluently. Build a Schema from builders with Declare.
type FieldBuilder struct {
	field Field
	err   error
}

// Key starts the declaration of a field named key holding values of type t.
func Key(key string, t Type) *FieldBuilder {
	return &FieldBuilder{field: Field{Key: key, Type: t}}
}

// Describe sets the description shown to the assistant.
func (b *FieldBuilder) Describe(text string) *FieldBuilder {
	b.field.Description = text
	return b
}

// Required marks the field as mandatory.
func (b *FieldBuilder) Required() *FieldBuilder {
	b.field.Required = true
	return b
}

// Nullable accepts an explicit null for the field.
func (b *FieldBuilder) Nullable() *FieldBuilder {
	b.field.Nullable = true
	return b
}

// Default sets the value used when the field is absent.
func (b *FieldBuilder) Default(v any) *FieldBuilder {
	b.field.Default = v
	b.field.HasDefault = true
	return b
}

// Range bounds a numeric field inclusively.
func (b *FieldBuilder) Range(lo, hi float64) *FieldBuilder {
	return b.Min(lo).Max(hi)
}

// Min sets the inclusive lower bound of a numeric field.
func (b *FieldBuilder) Min(lo float64) *FieldBuilder {
	b.field.Min = &lo
	return b
}

// Max sets the inclusive upper bound of a numeric field.
func (b *FieldBuilder) Max(hi float64) *FieldBuilder {
	b.field.Max = &hi
	return b
}

// Length bounds a string field's length in characters.
func (b *FieldBuilder) Length(lo, hi int) *FieldBuilder {
	b.field.MinLength = &lo
	b.field.MaxLength = &hi
	return b
}

// MaxLen caps a string field's length in characters.
func (b *FieldBuilder) MaxLen(hi int) *FieldBuilder {
	b.field.MaxLength = &hi
	return b
}

// OneOf restricts the field to the given values.
func (b *FieldBuilder) OneOf(values ...string) *FieldBuilder {
	b.field.Enum = make([]any, len(values))
	for i, v := range values {
		b.field.Enum[i] = v
	}
	return b
}

// Match requires string values to match the regular expression.
func (b *FieldBuilder) Match(expr string) *FieldBuilder {
	re, err := regexp.Compile(expr)
	if err != nil {
		b.err = fmt.Errorf("field %s: pattern: %w", b.field.Key, err)
		return b
	}
	b.field.Pattern = re
	return b
}

// Declare assembles a schema from field builders. Undeclared argument keys are stripped.
// It panics on an invalid declaration, as schemas are fixed at program start.
func Declare(fields ...*FieldBuilder) Schema {
	s, err := build(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Strict is Declare with undeclared keys rejected.
func Strict(fields ...*FieldBuilder) Schema {
	s := Declare(fields...)
	s.Extra = ExtraReject
	return s
}

// RequireAny returns a copy of s in which at least one of keys must be present.
func (s Schema) RequireAny(keys ...string) Schema {
	s.AnyOf = append([]string(nil), keys...)
	return s
}

func build(fields []*FieldBuilder) (Schema, error) {
	s := Schema{Fields: make([]Field, 0, len(fields))}
	seen := map[string]bool{}
	for _, b := range fields {
		if b.err != nil {
			return Schema{}, b.err
		}
		f := b.field
		if f.Key == "" {
			return Schema{}, fmt.Errorf("field with empty key")
		}
		if seen[f.Key] {
			return Schema{}, fmt.Errorf("field %s declared twice", f.Key)
		}
		seen[f.Key] = true
		if f.HasDefault && f.Default != nil {
			v, err := f.check(f.Default)
			if err != nil {
				return Schema{}, fmt.Errorf("field %s: default: %w", f.Key, err)
			}
			f.Default = v
		}
		s.Fields = append(s.Fields, f)
	}
	return s, nil
}
