package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_States(t *testing.T) {
	row := map[string]any{"a": 1.0, "b": nil}

	assert.Equal(t, []Lookup{{State: Present, Value: 1.0, Path: "a"}}, Resolve(row, appendName(nil, "a")))
	assert.Equal(t, []Lookup{{State: Null, Path: "b"}}, Resolve(row, appendName(nil, "b")))
	assert.Equal(t, []Lookup{{State: Absent, Path: "c"}}, Resolve(row, appendName(nil, "c")))
	assert.Nil(t, Resolve(row, nil))
}

func TestResolve_NestedParentMissing(t *testing.T) {
	segs := appendName(appendName(nil, "address"), "zip")

	assert.Empty(t, Resolve(map[string]any{}, segs))
	assert.Empty(t, Resolve(map[string]any{"address": nil}, segs))
	assert.Empty(t, Resolve(map[string]any{"address": "flat"}, segs))
	assert.Equal(t, []Lookup{{State: Absent, Path: "address.zip"}},
		Resolve(map[string]any{"address": map[string]any{}}, segs))
}

func TestResolve_ArrayFanOut(t *testing.T) {
	segs := appendName(appendItems(appendName(nil, "items")), "qty")
	row := map[string]any{"items": []any{
		map[string]any{"qty": 2.0},
		map[string]any{},
		"junk",
		map[string]any{"qty": nil},
	}}

	assert.Equal(t, []Lookup{
		{State: Present, Value: 2.0, Path: "items[0].qty"},
		{State: Absent, Path: "items[1].qty"},
		{State: Null, Path: "items[3].qty"},
	}, Resolve(row, segs))

	elems := Resolve(map[string]any{"tags": []any{"x", nil}}, appendItems(appendName(nil, "tags")))
	assert.Equal(t, []Lookup{
		{State: Present, Value: "x", Path: "tags[0]"},
		{State: Null, Path: "tags[1]"},
	}, elems)
}

func TestLookupState_String(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "null", Null.String())
	assert.Equal(t, "present", Present.String())
}

func TestValues(t *testing.T) {
	assert.Equal(t, TypeInteger, RuntimeType(3.0))
	assert.Equal(t, TypeNumber, RuntimeType(3.5))
	assert.Equal(t, TypeObject, RuntimeType(map[string]any{}))
	assert.True(t, MatchesType(int64(4), TypeNumber))
	assert.False(t, MatchesType(4.2, TypeInteger))
	assert.Equal(t, CanonicalKey(1), CanonicalKey(1.0))
	assert.NotEqual(t, CanonicalKey("1"), CanonicalKey(1.0))
	assert.Equal(t, `"a"`, FormatValue("a"))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "null", FormatValue(nil))
}
