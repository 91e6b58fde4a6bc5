package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagSet_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		tags TagSet
		want []string
	}{
		{name: "empty", tags: NewTagSet(), want: []string{}},
		{name: "plain", tags: NewTagSet("oak", "brown", "oak"), want: []string{"oak", "brown"}},
		{name: "control characters", tags: NewTagSet("a\x01b", "tab\there", `quote"d`), want: []string{"a\x01b", "tab\there", `quote"d`}},
		{name: "unicode", tags: NewTagSet("čerešňa", "💺"), want: []string{"čerešňa", "💺"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.tags)
			require.NoError(t, err)
			require.True(t, json.Valid(data), string(data))

			var got []string
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProduct_SetAttrJSONNumber(t *testing.T) {
	p := &Product{}
	require.NoError(t, p.SetAttr("product_class_id", json.Number("9007199254740993")))
	assert.Equal(t, int64(9007199254740993), p.ProductClassID)

	require.NoError(t, p.SetAttr("sku", json.Number("42")))
	assert.Equal(t, "42", p.SKU)

	assert.Error(t, p.SetAttr("product_class_id", json.Number("1.5")))
}
