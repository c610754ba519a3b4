package parser

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

func TestParse_SimpleObject(t *testing.T) {
	jsonStr := `{"name": "John Doe", "age": 30, "isStudent": false, "city": null}`
	v, err := Parse(strings.NewReader(jsonStr), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	expected := models.ObjectValue([]models.Member{
		{Key: "name", Value: models.StringValue("John Doe")},
		{Key: "age", Value: models.NumberValue("30", 30)},
		{Key: "isStudent", Value: models.BoolValue(false)},
		{Key: "city", Value: models.NullValue()},
	})
	if !v.Equal(expected) {
		t.Errorf("Parse() root = %+v, want %+v", v, expected)
	}
}

func TestParse_KeyOrderPreserved(t *testing.T) {
	// Deliberately non-alphabetical: a map-based decode would scramble this.
	jsonStr := `{"zebra": 1, "apple": 2, "mango": 3}`
	v, err := Parse(strings.NewReader(jsonStr), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	wantKeys := []string{"zebra", "apple", "mango"}
	gotKeys := v.Keys()
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("Parse() keys = %v, want %v", gotKeys, wantKeys)
	}
	for i := range wantKeys {
		if gotKeys[i] != wantKeys[i] {
			t.Errorf("Parse() key[%d] = %q, want %q", i, gotKeys[i], wantKeys[i])
		}
	}
}

func TestParse_NumberLexemePreserved(t *testing.T) {
	cases := []string{"30", "3.14", "1.500", "12345678901234567890123", "1e3", "-0.5", "1E+2"}
	for _, lexeme := range cases {
		v, err := Parse(strings.NewReader(lexeme), 0)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", lexeme, err)
		}
		if v.Kind != models.Number {
			t.Fatalf("Parse(%q) kind = %v, want number", lexeme, v.Kind)
		}
		if v.Num.Lexeme != lexeme {
			t.Errorf("Parse(%q) lexeme = %q, want it unchanged", lexeme, v.Num.Lexeme)
		}
	}
}

func TestParse_SimpleArray(t *testing.T) {
	jsonStr := `[1, "test", true, null, 3.14]`
	v, err := Parse(strings.NewReader(jsonStr), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	expected := models.ArrayValue([]models.Value{
		models.NumberValue("1", 1),
		models.StringValue("test"),
		models.BoolValue(true),
		models.NullValue(),
		models.NumberValue("3.14", 3.14),
	})
	if !v.Equal(expected) {
		t.Errorf("Parse() root = %+v, want %+v", v, expected)
	}
}

func TestParse_NestedStructure(t *testing.T) {
	jsonStr := `{"user": {"name": "Jane Doe", "id": 123}, "tags": ["go", "json"]}`
	v, err := Parse(strings.NewReader(jsonStr), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	expected := models.ObjectValue([]models.Member{
		{Key: "user", Value: models.ObjectValue([]models.Member{
			{Key: "name", Value: models.StringValue("Jane Doe")},
			{Key: "id", Value: models.NumberValue("123", 123)},
		})},
		{Key: "tags", Value: models.ArrayValue([]models.Value{
			models.StringValue("go"),
			models.StringValue("json"),
		})},
	})
	if !v.Equal(expected) {
		t.Errorf("Parse() root = %+v, want %+v", v, expected)
	}
}

func TestParse_DuplicateKeysLastWins(t *testing.T) {
	jsonStr := `{"a": 1, "b": 2, "a": 3}`
	v, err := Parse(strings.NewReader(jsonStr), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	expected := models.ObjectValue([]models.Member{
		{Key: "a", Value: models.NumberValue("3", 3)},
		{Key: "b", Value: models.NumberValue("2", 2)},
	})
	if !v.Equal(expected) {
		t.Errorf("Parse() root = %+v, want %+v", v, expected)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"name": }`), 0)
	if err == nil {
		t.Fatal("Parse() error = nil, want syntax error")
	}
	if !stderrors.Is(err, errors.ErrInvalidJSON) {
		t.Errorf("Parse() error = %v, want ErrInvalidJSON", err)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader("   \n\t"), 0)
	if !stderrors.Is(err, errors.ErrEmptyInput) {
		t.Errorf("Parse() error = %v, want ErrEmptyInput", err)
	}
}

func TestParse_MultipleValues(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"a": 1} {"b": 2}`), 0)
	if !stderrors.Is(err, errors.ErrMultipleJSON) {
		t.Errorf("Parse() error = %v, want ErrMultipleJSON", err)
	}
}

func TestParse_DepthExceeded(t *testing.T) {
	jsonStr := `{"a": {"b": {"c": {"d": 1}}}}`
	if _, err := Parse(strings.NewReader(jsonStr), 4); err != nil {
		t.Fatalf("Parse() at depth limit error = %v, wantErr nil", err)
	}
	_, err := Parse(strings.NewReader(jsonStr), 3)
	if !stderrors.Is(err, errors.ErrDepthExceeded) {
		t.Errorf("Parse() error = %v, want ErrDepthExceeded", err)
	}
}

func TestParseString_Empty(t *testing.T) {
	_, err := ParseString("", 0)
	if !stderrors.Is(err, errors.ErrEmptyInput) {
		t.Errorf("ParseString() error = %v, want ErrEmptyInput", err)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile("definitely_not_here.json", 0)
	if !stderrors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("ParseFile() error = %v, want ErrFileNotFound", err)
	}
}

func TestParseFile_EmptyPath(t *testing.T) {
	_, err := ParseFile("  ", 0)
	if !stderrors.Is(err, errors.ErrInvalidFilePath) {
		t.Errorf("ParseFile() error = %v, want ErrInvalidFilePath", err)
	}
}
