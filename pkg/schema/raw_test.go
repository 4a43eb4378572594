package schema

import (
	"reflect"
	"testing"
)

const baselineCreate = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 300},
    "mode": {"type": "string", "enum": ["any", "focus", "admin", "reflect"], "default": "any"},
    "min_quota_min_per_week": {"type": "integer", "minimum": 0, "default": 0},
    "preferred_windows": {"type": "object"},
    "is_active": {"type": "boolean", "default": true}
  },
  "required": ["name"],
  "additionalProperties": false
}`

func TestFromJSON(t *testing.T) {
	s, err := FromJSON([]byte(baselineCreate))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	if s.Extra != ExtraReject {
		t.Errorf("Extra = %v, want ExtraReject", s.Extra)
	}

	name, ok := s.Field("name")
	if !ok || !name.Required || *name.MinLength != 1 || *name.MaxLength != 300 {
		t.Errorf("name field = %+v", name)
	}

	got, err := s.Validate(map[string]any{"name": "Deep work"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := map[string]any{
		"name":                   "Deep work",
		"mode":                   "any",
		"min_quota_min_per_week": int64(0),
		"is_active":              true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() = %v, want %v", got, want)
	}
}

func TestFromJSON_SameRulesAsDeclare(t *testing.T) {
	raw, err := FromJSON([]byte(baselineCreate))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	_, err = raw.Validate(map[string]any{"name": "", "mode": "sleep", "extra": 1})
	want := []string{"extra", "mode", "name"}
	if !reflect.DeepEqual(Fields(err), want) {
		t.Errorf("Fields() = %v, want %v", Fields(err), want)
	}
}

func TestFromJSON_RequireAny(t *testing.T) {
	s, err := FromJSON([]byte(`{
	  "type": "object",
	  "properties": {"id": {"type": "integer"}, "name": {"type": "string"}},
	  "required": ["id"],
	  "x-require-any": ["name"]
	}`))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if !reflect.DeepEqual(s.AnyOf, []string{"name"}) {
		t.Errorf("AnyOf = %v", s.AnyOf)
	}
	if _, err := s.Validate(map[string]any{"id": 1}); err == nil {
		t.Error("Validate() should require name")
	}
}

func TestFromJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":          `{`,
		"not an object":     `{"type": "string"}`,
		"undeclared req":    `{"type": "object", "properties": {}, "required": ["x"]}`,
		"unsupported type":  `{"type": "object", "properties": {"x": {"type": "null"}}}`,
		"bad require-any":   `{"type": "object", "properties": {}, "x-require-any": ["x"]}`,
		"default violation": `{"type": "object", "properties": {"x": {"type": "integer", "minimum": 0, "default": -1}}}`,
	}

	for name, doc := range tests {
		if _, err := FromJSON([]byte(doc)); err == nil {
			t.Errorf("%s: FromJSON() should fail", name)
		}
	}
}
