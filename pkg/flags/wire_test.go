package flags_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/flags"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		kind    flags.Kind
		text    string
		strings []string
	}{
		{"null", `null`, flags.KindNull, "", nil},
		{"string", `"pro"`, flags.KindString, "pro", []string{"pro"}},
		{"integer", `42`, flags.KindNumber, "42", []string{"42"}},
		{"float", `1.5`, flags.KindNumber, "1.5", []string{"1.5"}},
		{"bool", `true`, flags.KindBool, "true", []string{"true"}},
		{"string list", `["a","b"]`, flags.KindStringList, `["a","b"]`, []string{"a", "b"}},
		{"number list", `[1,2.5]`, flags.KindNumberList, `[1,2.5]`, []string{"1", "2.5"}},
		{"mixed list", `[1,"b",true,null]`, flags.KindStringList, `["1","b","true"]`, []string{"1", "b", "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var v flags.Value
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.text, v.String())
			assert.Equal(t, tt.strings, v.Strings())
		})
	}

	t.Run("object is rejected", func(t *testing.T) {
		t.Parallel()
		var v flags.Value
		err := json.Unmarshal([]byte(`{"a":1}`), &v)
		require.Error(t, err)
		assert.ErrorIs(t, err, flags.ErrInvalidValue)
	})

	t.Run("numeric string coerces", func(t *testing.T) {
		t.Parallel()
		n, ok := flags.StringValue("12.5").Float()
		assert.True(t, ok)
		assert.Equal(t, 12.5, n)

		_, ok = flags.StringValue("twelve").Float()
		assert.False(t, ok)
	})
}

func TestPropertyNode_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var g flags.PropertyGroup
	err := json.Unmarshal([]byte(`{
		"type": "OR",
		"values": [
			{"type": "AND", "values": [{"key": "plan", "type": "person", "operator": "exact", "value": "pro"}]},
			{"key": "id", "type": "cohort", "value": 7, "negation": true}
		]
	}`), &g)
	require.NoError(t, err)

	assert.Equal(t, flags.LogicOr, g.Type)
	require.Len(t, g.Values, 2)

	require.NotNil(t, g.Values[0].Group)
	assert.Nil(t, g.Values[0].Condition)
	assert.Equal(t, "plan", g.Values[0].Group.Values[0].Condition.Key)

	require.NotNil(t, g.Values[1].Condition)
	assert.Equal(t, flags.PropertyTypeCohort, g.Values[1].Condition.Type)
	assert.Equal(t, "7", g.Values[1].Condition.Value.String())
	assert.True(t, g.Values[1].Condition.Negation)

	var n flags.PropertyNode
	assert.ErrorIs(t, json.Unmarshal([]byte(`null`), &n), flags.ErrInvalidPropertyNode)
	assert.ErrorIs(t, json.Unmarshal([]byte(`[1]`), &n), flags.ErrInvalidPropertyNode)
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("fixture", func(t *testing.T) {
		t.Parallel()
		snap := loadFixture(t)
		assert.Equal(t, 9, snap.Len())

		def, ok := snap.Flag("group-flag")
		require.True(t, ok)
		require.NotNil(t, def.Filters.AggregationGroupTypeIndex)
		assert.Equal(t, 0, *def.Filters.AggregationGroupTypeIndex)

		name, ok := snap.GroupTypeName(1)
		assert.True(t, ok)
		assert.Equal(t, "project", name)

		_, ok = snap.Cohort("42")
		assert.True(t, ok)
		assert.False(t, snap.FetchedAt().IsZero())
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		_, err := flags.DecodeSnapshot([]byte(`{"flags": "nope"}`))
		assert.ErrorIs(t, err, flags.ErrInvalidDefinitions)
	})

	t.Run("encode keeps definitions", func(t *testing.T) {
		t.Parallel()
		snap := loadFixture(t)
		data, err := flags.EncodeSnapshot(snap)
		require.NoError(t, err)

		again, err := flags.DecodeSnapshot(data)
		require.NoError(t, err)
		require.Equal(t, snap.Len(), again.Len())
		for _, def := range snap.Flags() {
			got, ok := again.Flag(def.Key)
			require.True(t, ok, def.Key)
			assert.Equal(t, def.Filters.Groups, got.Filters.Groups, def.Key)
		}

		ev := newEvaluator()
		ectx := flags.Context{DistinctID: "user-42", PersonProperties: flags.Properties{"email": "a@example.com"}}
		assert.Equal(t, ev.Evaluate(snap, "cohort-flag", ectx), ev.Evaluate(again, "cohort-flag", ectx))
	})
}
