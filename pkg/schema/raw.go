package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExtRequireAny is the schema extension naming keys of which at least one must be present.
const ExtRequireAny = "x-require-any"

// FromJSON parses a raw JSON Schema object describing tool arguments into a Schema.
// The document must be an object schema with flat properties. additionalProperties
// defaults to allowed, as in JSON Schema; set it to false to reject unknown keys.
func FromJSON(data []byte) (Schema, error) {
	var doc openapi3.Schema
	if err := json.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return Schema{}, fmt.Errorf("invalid schema: %w", err)
	}
	return fromOpenAPI(&doc)
}

// MustFromJSON is FromJSON that panics on error, for schemas embedded in the program.
func MustFromJSON(data string) Schema {
	s, err := FromJSON([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

func fromOpenAPI(doc *openapi3.Schema) (Schema, error) {
	if name := typeName(doc); name != "" && name != "object" {
		return Schema{}, fmt.Errorf("top-level type must be object, got %s", name)
	}

	required := make(map[string]bool, len(doc.Required))
	for _, key := range doc.Required {
		if _, ok := doc.Properties[key]; !ok {
			return Schema{}, fmt.Errorf("required field %s is not declared", key)
		}
		required[key] = true
	}

	keys := make([]string, 0, len(doc.Properties))
	for key := range doc.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builders []*FieldBuilder
	for _, key := range keys {
		ref := doc.Properties[key]
		if ref == nil || ref.Value == nil {
			return Schema{}, fmt.Errorf("field %s: unresolved schema", key)
		}
		b, err := fieldFromOpenAPI(key, ref.Value)
		if err != nil {
			return Schema{}, err
		}
		if required[key] {
			b.Required()
		}
		builders = append(builders, b)
	}

	s, err := build(builders)
	if err != nil {
		return Schema{}, err
	}

	s.Extra = ExtraAllow
	if ap := doc.AdditionalProperties.Has; ap != nil && !*ap {
		s.Extra = ExtraReject
	}

	if raw, ok := doc.Extensions[ExtRequireAny]; ok {
		anyOf, err := stringList(raw)
		if err != nil {
			return Schema{}, fmt.Errorf("%s: %w", ExtRequireAny, err)
		}
		for _, key := range anyOf {
			if _, ok := doc.Properties[key]; !ok {
				return Schema{}, fmt.Errorf("%s: field %s is not declared", ExtRequireAny, key)
			}
		}
		s.AnyOf = anyOf
	}
	return s, nil
}

func fieldFromOpenAPI(key string, p *openapi3.Schema) (*FieldBuilder, error) {
	items := ""
	if p.Items != nil && p.Items.Value != nil {
		items = typeName(p.Items.Value)
	}
	typ, err := ParseType(typeName(p), items)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", key, err)
	}

	b := Key(key, typ).Describe(p.Description)
	if p.Nullable {
		b.Nullable()
	}
	if p.Min != nil {
		b.Min(*p.Min)
	}
	if p.Max != nil {
		b.Max(*p.Max)
	}
	if p.MinLength > 0 {
		lo := int(p.MinLength)
		b.field.MinLength = &lo
	}
	if p.MaxLength != nil {
		b.MaxLen(int(*p.MaxLength))
	}
	if len(p.Enum) > 0 {
		b.field.Enum = append([]any(nil), p.Enum...)
	}
	if p.Pattern != "" {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return nil, fmt.Errorf("field %s: pattern: %w", key, err)
		}
		b.Match(p.Pattern)
	}
	if p.Default != nil {
		b.Default(p.Default)
	}
	return b, nil
}

func typeName(s *openapi3.Schema) string {
	if s.Type == nil {
		return ""
	}
	types := *s.Type
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case json.RawMessage:
		var out []string
		if err := json.Unmarshal(list, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of field names, got %T", v)
	}
}
