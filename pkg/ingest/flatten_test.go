package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenArrayOfFlatObjects(t *testing.T) {
	res := Flatten(parse(t, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`), nil, nil)

	assert.Equal(t, []string{"id", "name"}, res.Fields)
	require.Len(t, res.Data, 2)
	assert.Equal(t, json.Number("1"), res.Data[0]["id"])
	assert.Equal(t, "b", res.Data[1]["name"])
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.LastUpdated)
}

func TestFlattenMergesNestedObjects(t *testing.T) {
	res := Flatten(parse(t, `[{"id":1,"owner":{"name":"a","email":"x"}}]`), nil, nil)

	// The nested object key itself is not a column; only its merged children.
	assert.Equal(t, []string{"id", "owner.name", "owner.email"}, res.Fields)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "a", res.Data[0]["owner.name"])
	_, hasOwner := res.Data[0]["owner"]
	assert.False(t, hasOwner)
}

func TestFlattenFieldOrderIsFirstDiscovery(t *testing.T) {
	res := Flatten(parse(t, `[{"a":1},{"b":2,"a":3},{"c":4}]`), nil, nil)
	assert.Equal(t, []string{"a", "b", "c"}, res.Fields)
}

func TestFlattenObjectTransposesToNameValueRows(t *testing.T) {
	res := Flatten(parse(t, `{"total":10,"open":7}`), nil, nil)

	assert.Equal(t, []string{"name", "value"}, res.Fields)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "total", res.Data[0]["name"])
	assert.Equal(t, json.Number("10"), res.Data[0]["value"])
	assert.Equal(t, "open", res.Data[1]["name"])
}

func TestFlattenNonObjectElementsYieldEmptyRows(t *testing.T) {
	res := Flatten(parse(t, `[1,"two",{"a":3}]`), nil, nil)

	require.Len(t, res.Data, 3)
	assert.Empty(t, res.Data[0])
	assert.Empty(t, res.Data[1])
	assert.Equal(t, json.Number("3"), res.Data[2]["a"])
}

func TestFlattenSelectionFiltersFieldsAndRows(t *testing.T) {
	res := Flatten(parse(t, `[{"a":1,"b":2,"c":3},{"a":4}]`), []string{"a", "c"}, nil)

	assert.Equal(t, []string{"a", "c"}, res.Fields)
	assert.Equal(t, json.Number("3"), res.Data[0]["c"])
	// Absent keys are omitted rather than nulled.
	_, ok := res.Data[1]["c"]
	assert.False(t, ok)
	_, ok = res.Data[0]["b"]
	assert.False(t, ok)
}

func TestFlattenSelectionOfUnknownFieldYieldsNoColumn(t *testing.T) {
	res := Flatten(parse(t, `[{"a":1}]`), []string{"missing"}, nil)
	assert.Empty(t, res.Fields)
}

func TestFlattenDisplayNames(t *testing.T) {
	res := Flatten(
		parse(t, `[{"id":1,"owner":{"name":"a"}}]`),
		nil,
		map[string]string{"id": "Ticket ID"},
	)

	assert.Equal(t, "Ticket ID", res.FieldDisplayNames["id"])
	// Default is the trailing path segment.
	assert.Equal(t, "name", res.FieldDisplayNames["owner.name"])
}

func TestDefaultDisplayName(t *testing.T) {
	assert.Equal(t, "c", DefaultDisplayName("a.b.c"))
	assert.Equal(t, "plain", DefaultDisplayName("plain"))
	assert.Equal(t, "", DefaultDisplayName("trailing."))
}

func TestFlattenEmptyPayload(t *testing.T) {
	res := Flatten(parse(t, `[]`), nil, nil)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Fields)
}
