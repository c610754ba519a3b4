package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/gotoon/internal/parser"
	"github.com/mcncl/gotoon/internal/validator"
)

func TestIntegration_ParserGeneratorValidator(t *testing.T) {
	// Full pipeline: Parser -> Generator -> Validator
	jsonInput := `{
		"name": "John Doe",
		"age": 30,
		"isStudent": false,
		"city": null,
		"scores": [95.5, 87.2],
		"address": {
			"street": "123 Main St",
			"zip": "01234"
		},
		"hobbies": ["reading", "coding", "traveling"]
	}`

	value, err := parser.ParseString(jsonInput, 0)
	require.NoError(t, err)

	generator := NewGenerator()
	toon, err := generator.EncodeVerified(value)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"name: John Doe",
		"age: 30",
		"isStudent: false",
		"city: null",
		"scores: [95.5, 87.2]",
		"address:",
		"  street: 123 Main St",
		"  zip: 01234",
		"hobbies: [reading, coding, traveling]",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestIntegration_TabularData(t *testing.T) {
	jsonInput := `{
		"users": [
			{"id": 1, "name": "A"},
			{"id": 2, "name": "B"}
		],
		"total": 2
	}`

	value, err := parser.ParseString(jsonInput, 0)
	require.NoError(t, err)

	toon, err := NewGenerator().EncodeVerified(value)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"users[2]{id,name}:",
		"  1,A",
		"  2,B",
		"total: 2",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestIntegration_HeterogeneousArray(t *testing.T) {
	// Mixed element shapes must fall back to a block list, never a table.
	jsonInput := `{
		"mixed": [1, "two", {"id": 3}, [4, 5]]
	}`

	value, err := parser.ParseString(jsonInput, 0)
	require.NoError(t, err)

	toon, err := NewGenerator().EncodeVerified(value)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"mixed:",
		"  - 1",
		"  - two",
		"  -",
		"    id: 3",
		"  - [4, 5]",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestIntegration_AwkwardStrings(t *testing.T) {
	// Strings that collide with TOON syntax must come out quoted and the
	// result must still pass validation.
	jsonInput := `{
		"note": "contains: colon",
		"dash": "- item",
		"numberish": "30",
		"multiline": "line1\nline2",
		"cells": [{"v": "a,b"}, {"v": "plain"}]
	}`

	value, err := parser.ParseString(jsonInput, 0)
	require.NoError(t, err)

	toon, err := NewGenerator().EncodeVerified(value)
	require.NoError(t, err)

	expected := strings.Join([]string{
		`note: "contains: colon"`,
		`dash: "- item"`,
		`numberish: "30"`,
		`multiline: "line1\nline2"`,
		"cells[2]{v}:",
		`  "a,b"`,
		"  plain",
	}, "\n")
	assert.Equal(t, expected, toon)

	ok, diags := validator.NewValidator().Validate(toon)
	assert.True(t, ok, "diagnostics: %v", diags)
}

func TestIntegration_DeepDocumentWithinLimit(t *testing.T) {
	// 50 levels of nesting sits well under the default ceiling.
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(`{"n":`)
	}
	b.WriteString("1")
	for i := 0; i < 50; i++ {
		b.WriteString("}")
	}

	value, err := parser.ParseString(b.String(), 0)
	require.NoError(t, err)

	toon, err := NewGenerator().EncodeVerified(value)
	require.NoError(t, err)
	assert.Contains(t, toon, strings.Repeat("  ", 49)+"n: 1")
}
