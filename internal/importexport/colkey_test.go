package importexport

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceKey(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		currency  string
		tax       string
		level     *int64
		wantErr   bool
	}{
		{name: "flat", attribute: "price__10__USD", currency: "USD", tax: "10"},
		{name: "decimal tax", attribute: "price__20.5__EUR", currency: "EUR", tax: "20.5"},
		{name: "nested prefix", attribute: "prices__retail__21__EUR", currency: "EUR", tax: "21"},
		{name: "price level", attribute: "price__21__price_lvl(3)__wholesale__net__EUR", currency: "EUR", tax: "21", level: PtrTo(int64(3))},
		{name: "price level with spaces", attribute: "price__0__price_lvl( 12 )__a__b__USD", currency: "USD", tax: "0", level: PtrTo(int64(12))},
		{name: "too short", attribute: "USD", wantErr: true},
		{name: "bad tax", attribute: "price__ten__USD", wantErr: true},
		{name: "empty currency", attribute: "price__10__", wantErr: true},
		{name: "price level too short", attribute: "price_lvl(1)__10__USD", wantErr: true},
		{name: "price level without id", attribute: "price__21__price_lvl__a__b__EUR", wantErr: true},
		{name: "price level id not a number", attribute: "price__21__price_lvl(x)__a__b__EUR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParsePriceKey(tt.attribute)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColumnKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.currency, key.Currency)
			assert.True(t, decimal.RequireFromString(tt.tax).Equal(key.TaxRatio), "tax %s", key.TaxRatio)
			assert.Equal(t, tt.level, key.PriceLevelID)
		})
	}
}

func TestParseAttributeKey(t *testing.T) {
	tests := []struct {
		attribute string
		want      AttributeKey
		wantErr   bool
	}{
		{attribute: "attr__color(4)", want: AttributeKey{GroupID: 4, Active: true}},
		{attribute: "attr__legacy(9)notactive__x", want: AttributeKey{GroupID: 9, Active: false}},
		{attribute: "attr", wantErr: true},
		{attribute: "attr__color", wantErr: true},
		{attribute: "attr__color(abc)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.attribute, func(t *testing.T) {
			key, err := ParseAttributeKey(tt.attribute)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColumnKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestParseLanguageKey(t *testing.T) {
	key, err := ParseLanguageKey("meta_title_de")
	require.NoError(t, err)
	assert.Equal(t, LanguageKey{Name: "meta_title", Language: "de"}, key)

	for _, bad := range []string{"slug", "_en", "slug_"} {
		_, err := ParseLanguageKey(bad)
		assert.ErrorIs(t, err, ErrInvalidColumnKey, "attribute %q", bad)
	}
}
