package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			"bare object",
			`{"a": 1}`,
			map[string]any{"a": float64(1)},
		},
		{
			"fenced with trailing comma",
			"```json\n{\"a\":1,}\n```",
			map[string]any{"a": float64(1)},
		},
		{
			"plain fence",
			"```\n{\"ok\": true}\n```",
			map[string]any{"ok": true},
		},
		{
			"surrounding prose",
			"Here is the data you asked for:\n{\"x\": \"y\"}\nLet me know if you need more.",
			map[string]any{"x": "y"},
		},
		{
			"nested braces and strings",
			`{"a": {"b": "}"}, "c": 2}`,
			map[string]any{"a": map[string]any{"b": "}"}, "c": float64(2)},
		},
		{
			"trailing comma in nested object",
			`{"a": {"b": 1,}, "c": 2,}`,
			map[string]any{"a": map[string]any{"b": float64(1)}, "c": float64(2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractObjectUnparseable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"pure prose", "I could not find any information about that university."},
		{"empty", ""},
		{"unbalanced", `{"a": 1`},
		{"comma inside string survives repair but json invalid", `{"a": ,}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractObject(tt.raw)
			require.Error(t, err)
			var ue *UnparseableError
			assert.ErrorAs(t, err, &ue)
		})
	}
}

func TestExtractObjectPreservesCommaInStrings(t *testing.T) {
	got, err := ExtractObject(`{"deadline": "January, }"}`)
	require.NoError(t, err)
	assert.Equal(t, "January, }", got["deadline"])
}

func TestExtractArray(t *testing.T) {
	got, err := ExtractArray("```json\n[{\"index\": 1, \"a\": 2},]\n```")
	require.NoError(t, err)
	require.Len(t, got, 1)
	el, ok := got[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), el["index"])

	_, err = ExtractArray("no array here")
	var ue *UnparseableError
	assert.ErrorAs(t, err, &ue)
}

func TestObjectFrom(t *testing.T) {
	m := map[string]any{"a": 1}
	got, err := ObjectFrom(m)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	got, err = ObjectFrom(`{"b": 2}`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got["b"])

	_, err = ObjectFrom(42)
	assert.Error(t, err)
}

func TestUnparseableErrorPreviewTruncated(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ExtractObject(string(long))
	require.Error(t, err)
	var ue *UnparseableError
	require.ErrorAs(t, err, &ue)
	assert.LessOrEqual(t, len(ue.Preview), previewLimit+len("..."))
}

func TestIndexedArray(t *testing.T) {
	raw := `[
		{"index": 2, "tuition_estimate": 20000},
		{"index": 1, "tuition_estimate": 55000},
		{"index": 9, "tuition_estimate": 1},
		{"tuition_estimate": 2},
		"not an object"
	]`
	byIndex, invalid, err := IndexedArray(raw, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, invalid)
	require.Len(t, byIndex, 2)
	assert.Equal(t, float64(55000), byIndex[1]["tuition_estimate"])
	assert.Equal(t, float64(20000), byIndex[2]["tuition_estimate"])

	// Correlation field is consumed, not passed through.
	_, has := byIndex[1]["index"]
	assert.False(t, has)

	_, _, err = IndexedArray("total garbage", 3)
	assert.Error(t, err)
}
