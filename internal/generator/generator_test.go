package generator

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/iancoleman/strcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

func obj(pairs ...models.Member) models.Value {
	return models.ObjectValue(pairs)
}

func member(key string, v models.Value) models.Member {
	return models.Member{Key: key, Value: v}
}

func TestEncode_FlatObject(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("name", models.StringValue("John Doe")),
		member("age", models.NumberValue("30", 30)),
		member("isStudent", models.BoolValue(false)),
		member("city", models.NullValue()),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"name: John Doe",
		"age: 30",
		"isStudent: false",
		"city: null",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_NestedObject(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("user", obj(
			member("name", models.StringValue("Jane Doe")),
			member("address", obj(
				member("city", models.StringValue("Wellington")),
			)),
		)),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"user:",
		"  name: Jane Doe",
		"  address:",
		"    city: Wellington",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_InlineArray(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("hobbies", models.ArrayValue([]models.Value{
			models.StringValue("reading"),
			models.StringValue("coding"),
			models.StringValue("traveling"),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, "hobbies: [reading, coding, traveling]", toon)
}

func TestEncode_TabularArray(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("users", models.ArrayValue([]models.Value{
			obj(
				member("id", models.NumberValue("1", 1)),
				member("name", models.StringValue("A")),
			),
			obj(
				member("id", models.NumberValue("2", 2)),
				member("name", models.StringValue("B")),
			),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"users[2]{id,name}:",
		"  1,A",
		"  2,B",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_BlockList(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("items", models.ArrayValue([]models.Value{
			models.NumberValue("1", 1),
			models.StringValue("two"),
			obj(member("id", models.NumberValue("3", 3))),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"items:",
		"  - 1",
		"  - two",
		"  -",
		"    id: 3",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_TableInsideBlockList(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("groups", models.ArrayValue([]models.Value{
			models.ArrayValue([]models.Value{
				obj(member("id", models.NumberValue("1", 1))),
			}),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"groups:",
		"  -",
		"    [1]{id}:",
		"      1",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_Empties(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("nothing", models.ObjectValue(nil)),
		member("none", models.ArrayValue(nil)),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"nothing: {}",
		"none: []",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_RootForms(t *testing.T) {
	g := NewGenerator()

	cases := []struct {
		name string
		in   models.Value
		want string
	}{
		{"empty object", models.ObjectValue(nil), "{}"},
		{"empty array", models.ArrayValue(nil), "[]"},
		{"scalar null", models.NullValue(), "null"},
		{"scalar number", models.NumberValue("3.14", 3.14), "3.14"},
		{"scalar string", models.StringValue("hello"), "hello"},
		{"quoted scalar", models.StringValue("a: b"), `"a: b"`},
		{"inline array", models.ArrayValue([]models.Value{
			models.NumberValue("1", 1),
			models.NumberValue("2", 2),
		}), "[1, 2]"},
	}
	for _, tc := range cases {
		toon, err := g.Encode(tc.in)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, toon, tc.name)
	}
}

func TestEncode_RootTable(t *testing.T) {
	g := NewGenerator()

	v := models.ArrayValue([]models.Value{
		obj(member("id", models.NumberValue("1", 1))),
		obj(member("id", models.NumberValue("2", 2))),
	})
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"[2]{id}:",
		"  1",
		"  2",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_QuotedKeysAndCells(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("a:b", models.StringValue("x,y")),
		member("rows", models.ArrayValue([]models.Value{
			obj(member("note", models.StringValue("a,b"))),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		`"a:b": x,y`,
		"rows[1]{note}:",
		`  "a,b"`,
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncode_Deterministic(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("users", models.ArrayValue([]models.Value{
			obj(
				member("id", models.NumberValue("1", 1)),
				member("name", models.StringValue("A")),
			),
		})),
		member("tags", models.ArrayValue([]models.Value{
			models.StringValue("go"),
			models.StringValue("json"),
		})),
	)
	first, err := g.Encode(v)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := g.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncode_DepthExceeded(t *testing.T) {
	g := NewGenerator()
	g.MaxDepth = 2

	v := obj(member("a", obj(member("b", obj(member("c",
		obj(member("d", models.NumberValue("1", 1)))))))))
	_, err := g.Encode(v)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDepthExceeded))
}

func TestEncode_KeyRenaming(t *testing.T) {
	g := NewGenerator()
	g.RenameKey = strcase.ToSnake

	v := obj(
		member("isStudent", models.BoolValue(true)),
		member("userList", models.ArrayValue([]models.Value{
			obj(member("firstName", models.StringValue("A"))),
		})),
	)
	toon, err := g.Encode(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"is_student: true",
		"user_list[1]{first_name}:",
		"  A",
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncodeVerified_PassesCleanOutput(t *testing.T) {
	g := NewGenerator()

	v := obj(
		member("name", models.StringValue("John Doe")),
		member("hobbies", models.ArrayValue([]models.Value{
			models.StringValue("reading"),
		})),
	)
	toon, err := g.EncodeVerified(v)
	require.NoError(t, err)
	assert.Contains(t, toon, "name: John Doe")
}

func TestEncodeVerified_HeaderLikeKeys(t *testing.T) {
	g := NewGenerator()

	// Keys that read like table headers or key separators come out quoted
	// and must still pass self-validation.
	v := obj(
		member("x[2]{a}:", obj(member("inner", models.NumberValue("1", 1)))),
		member("a: b", models.StringValue("v")),
		member("users[0]{}:", models.ArrayValue([]models.Value{
			models.StringValue("x"),
		})),
	)
	toon, err := g.EncodeVerified(v)
	require.NoError(t, err)

	expected := strings.Join([]string{
		`"x[2]{a}:":`,
		"  inner: 1",
		`"a: b": v`,
		`"users[0]{}:": [x]`,
	}, "\n")
	assert.Equal(t, expected, toon)
}

func TestEncodeVerified_RootInlineArrayWithColons(t *testing.T) {
	g := NewGenerator()

	v := models.ArrayValue([]models.Value{
		models.StringValue("a: b"),
		models.StringValue("key:"),
	})
	toon, err := g.EncodeVerified(v)
	require.NoError(t, err)
	assert.Equal(t, `["a: b", "key:"]`, toon)
}

func TestEncodeVerified_CatchesKeyCollision(t *testing.T) {
	g := NewGenerator()
	// A renamer that collapses distinct keys produces duplicate keys in the
	// output, which self-validation must refuse.
	g.RenameKey = func(string) string { return "k" }

	v := obj(
		member("a", models.NumberValue("1", 1)),
		member("b", models.NumberValue("2", 2)),
	)
	_, err := g.EncodeVerified(v)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEncodingInvariant))
}
