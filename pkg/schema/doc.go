// Package schema validates tool arguments.
//
// A Schema is an ordered list of fields with a type and optional constraints
// (required, default, numeric range, string length, enum, pattern). Schemas are
// written either with the declarative builder:
//
//	s := schema.Declare(
//	    schema.Key("title", schema.String()).Required().Length(1, 500),
//	    schema.Key("charge", schema.Int()).Range(0, 5).Default(3),
//	)
//
// or as a raw JSON Schema document parsed with FromJSON:
//
//	s, err := schema.FromJSON([]byte(`{
//	    "type": "object",
//	    "properties": {"name": {"type": "string", "minLength": 1}},
//	    "required": ["name"],
//	    "additionalProperties": false
//	}`))
//
// Both produce the same representation, so Validate behaves identically:
// it returns the normalized arguments, or an *AggregateError listing every
// offending field.
package schema
