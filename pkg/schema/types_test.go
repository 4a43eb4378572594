package schema

import (
	"encoding/json"
	"math"
	"testing"
)

func TestStringType(t *testing.T) {
	typ := String()

	if typ.Name() != "string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"hello", false},
		{"", false},
		{42, true},
		{3.14, true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		_, err := typ.Coerce(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Coerce(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestIntType(t *testing.T) {
	typ := Int()

	if typ.Name() != "integer" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "integer")
	}

	tests := []struct {
		value   any
		want    int64
		wantErr bool
	}{
		{42, 42, false},
		{int64(-7), -7, false},
		{float64(5), 5, false},
		{json.Number("12"), 12, false},
		{3.5, 0, true},
		{"42", 0, true},
		{true, 0, true},
		{nil, 0, true},
	}

	for _, tt := range tests {
		got, err := typ.Coerce(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Coerce(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Coerce(%v) = %v (%T), want %d", tt.value, got, got, tt.want)
		}
	}
}

func TestFloatType(t *testing.T) {
	typ := Float()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{3.14, false},
		{2, false},
		{json.Number("1.5"), false},
		{"3.14", true},
		{nil, true},
	}

	for _, tt := range tests {
		got, err := typ.Coerce(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Coerce(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr {
			if _, ok := got.(float64); !ok {
				t.Errorf("Coerce(%v) = %T, want float64", tt.value, got)
			}
		}
	}
}

func TestBoolType(t *testing.T) {
	typ := Bool()

	if _, err := typ.Coerce(true); err != nil {
		t.Errorf("Coerce(true) error = %v", err)
	}
	if _, err := typ.Coerce("true"); err == nil {
		t.Error("Coerce(\"true\") should fail")
	}
}

func TestSliceType(t *testing.T) {
	typ := Slice(Int())

	if typ.Name() != "array" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "array")
	}

	got, err := typ.Coerce([]any{1.0, 2.0})
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}
	list := got.([]any)
	if len(list) != 2 || list[0] != int64(1) || list[1] != int64(2) {
		t.Errorf("Coerce() = %v, want [1 2] as int64", list)
	}

	if _, err := typ.Coerce([]any{1.0, "x"}); err == nil {
		t.Error("Coerce() should fail on a mixed slice")
	}
	if _, err := typ.Coerce("not a slice"); err == nil {
		t.Error("Coerce() should fail on a string")
	}
}

func TestObjectType(t *testing.T) {
	typ := Object()

	if _, err := typ.Coerce(map[string]any{"mon": []any{"09:00-12:00"}}); err != nil {
		t.Errorf("Coerce(map) error = %v", err)
	}
	if _, err := typ.Coerce([]any{}); err == nil {
		t.Error("Coerce(array) should fail")
	}
}

func TestCustomType(t *testing.T) {
	positive := Custom(Int(), func(v any) error {
		if v.(int64) <= 0 {
			return errNotPositive
		}
		return nil
	})

	if _, err := positive.Coerce(3.0); err != nil {
		t.Errorf("Coerce(3) error = %v", err)
	}
	if _, err := positive.Coerce(0); err == nil {
		t.Error("Coerce(0) should fail")
	}
	if _, err := positive.Coerce("3"); err == nil {
		t.Error("Coerce(\"3\") should fail the base type")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		typ, items string
		want       string
		wantErr    bool
	}{
		{"string", "", "string", false},
		{"integer", "", "integer", false},
		{"number", "", "number", false},
		{"boolean", "", "boolean", false},
		{"object", "", "object", false},
		{"array", "string", "array", false},
		{"", "", "", false},
		{"array", "tuple", "", true},
		{"decimal", "", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.typ, tt.items)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q, %q) error = %v, wantErr %v", tt.typ, tt.items, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.Name() != tt.want {
			t.Errorf("ParseType(%q, %q).Name() = %q, want %q", tt.typ, tt.items, got.Name(), tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	if _, ok := AsInt(1e300); ok {
		t.Error("AsInt(1e300) should overflow")
	}
	if n, ok := AsInt(9223372036854775808.0); ok {
		t.Errorf("AsInt(2^63) = %d, want overflow", n)
	}
	if n, ok := AsInt(-9223372036854775808.0); !ok || n != math.MinInt64 {
		t.Errorf("AsInt(-2^63) = %d, %v", n, ok)
	}
	if n, ok := AsInt(json.Number("4.0")); !ok || n != 4 {
		t.Errorf("AsInt(\"4.0\") = %d, %v", n, ok)
	}
}
