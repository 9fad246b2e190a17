package jsonvalue_test

import (
	"testing"

	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactInt(t *testing.T) {
	tests := []struct {
		name  string
		value jsonvalue.Value
		want  int64
		ok    bool
	}{
		{"exact integer", jsonvalue.Number(42), 42, true},
		{"exact negative", jsonvalue.Number(-7), -7, true},
		{"fractional", jsonvalue.Number(1.5), 0, false},
		{"not a number", jsonvalue.String("42"), 0, false},
		{"zero", jsonvalue.Number(0), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.ExactInt()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	original := jsonvalue.Object(
		jsonvalue.Pair("seq", jsonvalue.Int(1)),
		jsonvalue.Pair("command", jsonvalue.String("initialize")),
		jsonvalue.Pair("nested", jsonvalue.Object(
			jsonvalue.Pair("flag", jsonvalue.Bool(true)),
			jsonvalue.Pair("items", jsonvalue.Array(jsonvalue.Int(1), jsonvalue.Int(2))),
		)),
	)

	data, err := jsonvalue.Encode(original)
	require.NoError(t, err)

	decoded, err := jsonvalue.Parse(data)
	require.NoError(t, err)

	assert.True(t, jsonvalue.Equal(original, decoded))
}

func TestWithoutRemovesKeyOnly(t *testing.T) {
	v := jsonvalue.Object(
		jsonvalue.Pair("request", jsonvalue.String("attach")),
		jsonvalue.Pair("processId", jsonvalue.Int(42)),
	)

	stripped := v.Without("request")

	assert.False(t, stripped.Has("request"))
	processID, ok := stripped.Get("processId")
	require.True(t, ok)
	n, _ := processID.ExactInt()
	assert.Equal(t, int64(42), n)
	// original is untouched
	assert.True(t, v.Has("request"))
}

func TestPathLookup(t *testing.T) {
	v := jsonvalue.Object(
		jsonvalue.Pair("capabilities", jsonvalue.Object(
			jsonvalue.Pair("supportsStepBack", jsonvalue.Bool(true)),
		)),
	)

	found, ok := v.Path("capabilities.supportsStepBack")
	require.True(t, ok)
	b, _ := found.Bool()
	assert.True(t, b)

	_, ok = v.Path("capabilities.supportsNothingHere")
	assert.False(t, ok)
}

func TestEqualIgnoresObjectKeyOrder(t *testing.T) {
	a := jsonvalue.Object(jsonvalue.Pair("x", jsonvalue.Int(1)), jsonvalue.Pair("y", jsonvalue.Int(2)))
	b := jsonvalue.Object(jsonvalue.Pair("y", jsonvalue.Int(2)), jsonvalue.Pair("x", jsonvalue.Int(1)))
	assert.True(t, jsonvalue.Equal(a, b))
}
