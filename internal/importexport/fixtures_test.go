package importexport

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

func PtrTo[T any](v T) *T {
	return &v
}

// newTestStore returns a memory store seeded with the pricing and attribute
// reference data the tests use.
func newTestStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.AddCurrency("USD")
	st.AddCurrency("EUR")
	st.AddTaxRatio(decimal.NewFromInt(10))
	st.AddTaxRatio(decimal.NewFromInt(21))
	st.AddPriceLevel("wholesale")
	st.AddOptionGroup("Color", true)
	st.AddOptionGroup("Legacy", false)
	return st
}

// saveProduct stores a product with an English name and slug.
func saveProduct(t *testing.T, st *store.MemoryStore, sku, name, slug string) *domain.Product {
	t.Helper()
	p := &domain.Product{SKU: sku, IsActive: true}
	if name != "" || slug != "" {
		p.Translations = map[string]*domain.ProductTranslation{
			"en": {LanguageCode: "en", Name: name, Slug: slug},
		}
	}
	require.NoError(t, st.SaveProduct(context.Background(), p))
	return p
}
