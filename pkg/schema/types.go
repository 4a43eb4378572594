package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Type defines the contract for field validation.
// Implementations check a value and return it in its normalized Go form.
type Type interface {
	// Name returns the JSON Schema name of the type (e.g., "string", "integer").
	// An empty name means any JSON value is accepted.
	Name() string
	// Coerce checks that value conforms to this type and returns its normalized form.
	Coerce(value any) (any, error)
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Coerce(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %s", jsonKind(value))
	}
	return s, nil
}

// IntType validates integer values and normalizes them to int64.
type IntType struct{}

func (t *IntType) Name() string { return "integer" }

func (t *IntType) Coerce(value any) (any, error) {
	if n, ok := AsInt(value); ok {
		return n, nil
	}
	if _, ok := AsFloat(value); ok {
		return nil, fmt.Errorf("expected integer, got a fractional number")
	}
	return nil, fmt.Errorf("expected integer, got %s", jsonKind(value))
}

// FloatType validates numeric values and normalizes them to float64.
type FloatType struct{}

func (t *FloatType) Name() string { return "number" }

func (t *FloatType) Coerce(value any) (any, error) {
	f, ok := AsFloat(value)
	if !ok {
		return nil, fmt.Errorf("expected number, got %s", jsonKind(value))
	}
	return f, nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "boolean" }

func (t *BoolType) Coerce(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("expected boolean, got %s", jsonKind(value))
	}
	return b, nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string { return "array" }

// Elem returns the element type.
func (t *SliceType) Elem() Type { return t.elemType }

func (t *SliceType) Coerce(value any) (any, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("expected array, got %s", jsonKind(value))
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := t.elemType.Coerce(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = elem
	}
	return out, nil
}

// ObjectType validates free-form JSON objects.
type ObjectType struct{}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Coerce(value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", jsonKind(value))
	}
	return m, nil
}

// AnyType accepts every value unchanged.
type AnyType struct{}

func (t *AnyType) Name() string { return "" }

func (t *AnyType) Coerce(value any) (any, error) { return value, nil }

// CustomType applies a user-defined validation function on top of a base type.
type CustomType struct {
	base     Type
	validate func(any) error
}

func (t *CustomType) Name() string { return t.base.Name() }

func (t *CustomType) Coerce(value any) (any, error) {
	v, err := t.base.Coerce(value)
	if err != nil {
		return nil, err
	}
	if err := t.validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a number type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates an array type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Object creates a free-form object validator.
func Object() Type { return &ObjectType{} }

// Any creates a validator that accepts any value.
func Any() Type { return &AnyType{} }

// Custom wraps base with an extra check run on the normalized value.
func Custom(base Type, validate func(any) error) Type {
	return &CustomType{base: base, validate: validate}
}

// ParseType converts a JSON Schema type name to a Type.
// Supports "string", "integer", "number", "boolean", "object" and "array" of a named item type.
func ParseType(typeStr string, items string) (Type, error) {
	switch typeStr {
	case "string":
		return String(), nil
	case "integer":
		return Int(), nil
	case "number":
		return Float(), nil
	case "boolean":
		return Bool(), nil
	case "object":
		return Object(), nil
	case "":
		return Any(), nil
	case "array":
		elem, err := ParseType(items, "")
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		return Slice(elem), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// AsInt reports whether v holds a whole number and returns it as int64.
// Accepts Go integer kinds, whole float64 values and json.Number.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return AsInt(float64(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		if n >= 1<<63 || n < -(1<<63) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return AsInt(f)
	default:
		return 0, false
	}
}

// AsFloat reports whether v holds a number and returns it as float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := AsInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := AsFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
