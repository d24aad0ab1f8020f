package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashly-io/dashly-engine/pkg/jsonutil"
)

func parse(t *testing.T, src string) jsonutil.Value {
	t.Helper()
	v, err := jsonutil.Parse([]byte(src))
	require.NoError(t, err)
	return v
}

func TestDiscoverFieldsFlatObject(t *testing.T) {
	fields := DiscoverFields(parse(t, `{"id":1,"name":"x","active":true}`))
	assert.Equal(t, []string{"id", "name", "active"}, fields)
}

func TestDiscoverFieldsNestedObjectContributesParentAndChildren(t *testing.T) {
	fields := DiscoverFields(parse(t, `{"id":1,"owner":{"name":"a","email":"b"},"tag":"t"}`))
	assert.Equal(t, []string{"id", "owner", "owner.name", "owner.email", "tag"}, fields)
}

func TestDiscoverFieldsArraySamplesFirstElement(t *testing.T) {
	fields := DiscoverFields(parse(t, `[{"a":1,"b":{"c":2}},{"different":true}]`))
	assert.Equal(t, []string{"a", "b", "b.c"}, fields)
}

func TestDiscoverFieldsNestedArrayField(t *testing.T) {
	fields := DiscoverFields(parse(t, `{"items":[{"sku":"x"}],"total":2}`))
	assert.Equal(t, []string{"items", "items.sku", "total"}, fields)
}

func TestDiscoverFieldsEmptyArray(t *testing.T) {
	assert.Empty(t, DiscoverFields(parse(t, `[]`)))
	assert.Equal(t, []string{"items"}, DiscoverFields(parse(t, `{"items":[]}`)))
}

func TestDiscoverFieldsScalarPayload(t *testing.T) {
	assert.Empty(t, DiscoverFields(parse(t, `42`)))
}

func TestStructureOfTags(t *testing.T) {
	shape := StructureOf(parse(t, `{"s":"x","n":1,"b":false,"z":null,"o":{"k":"v"},"a":[{"e":1},{"e":2}]}`))
	require.Equal(t, jsonutil.Object, shape.Kind)

	get := func(key string) jsonutil.Value {
		v, ok := shape.Get(key)
		require.True(t, ok, key)
		return v
	}

	assert.Equal(t, "string", get("s").Str)
	assert.Equal(t, "number", get("n").Str)
	assert.Equal(t, "boolean", get("b").Str)
	assert.Equal(t, "object", get("z").Str) // null carries the object tag

	o := get("o")
	require.Equal(t, jsonutil.Object, o.Kind)
	k, _ := o.Get("k")
	assert.Equal(t, "string", k.Str)

	a := get("a")
	require.Equal(t, jsonutil.Array, a.Kind)
	require.Len(t, a.Elems, 1) // only the first element is sampled
	e, _ := a.Elems[0].Get("e")
	assert.Equal(t, "number", e.Str)
}
