package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog-importer/internal/domain"
)

func newProduct(sku, lang, slug string) *domain.Product {
	p := &domain.Product{SKU: sku, IsActive: true}
	if lang != "" {
		p.Translations = map[string]*domain.ProductTranslation{
			lang: {LanguageCode: lang, Name: sku, Slug: slug},
		}
	}
	return p
}

func TestMemoryStore_SaveProduct(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := newProduct("SKU-1", "en", "chair")
	require.NoError(t, s.SaveProduct(ctx, p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), p.Translations["en"].MasterID)

	t.Run("duplicate sku", func(t *testing.T) {
		err := s.SaveProduct(ctx, newProduct("SKU-1", "", ""))
		assert.ErrorIs(t, err, ErrProductSKUExists)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		err := s.SaveProduct(ctx, newProduct("SKU-2", "en", "chair"))
		assert.ErrorIs(t, err, ErrSlugExists)
	})

	t.Run("reads are detached", func(t *testing.T) {
		got, err := s.GetProductByID(ctx, p.ID)
		require.NoError(t, err)
		got.SKU = "changed"
		got.Translations["en"].Name = "changed"

		again, err := s.GetProductBySlug(ctx, "en", "chair")
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", again.SKU)
		assert.Equal(t, "SKU-1", again.Translations["en"].Name)
	})

	t.Run("update keeps tree columns", func(t *testing.T) {
		require.NoError(t, s.AddRoot(ctx, p))
		stale := &domain.Product{ID: p.ID, SKU: "SKU-1"}
		require.NoError(t, s.SaveProduct(ctx, stale))

		got, err := s.GetProductByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "0001", got.Path)
	})
}

func TestMemoryStore_FindProductsIn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, sku := range []string{"A", "B", "C"} {
		require.NoError(t, s.SaveProduct(ctx, newProduct(sku, "", "")))
	}

	found, err := s.FindProductsIn(ctx, "id", []any{int64(1), "3", nil})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "A", found[0].SKU)
	assert.Equal(t, "C", found[1].SKU)

	_, err = s.FindProductsIn(ctx, "nope", []any{1})
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	found, err = s.FindProducts(ctx, Filter{"sku": "B"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ID)
}

func TestMemoryStore_ListProducts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, sku := range []string{"A", "B", "C"} {
		require.NoError(t, s.SaveProduct(ctx, newProduct(sku, "", "")))
	}

	page, total, err := s.ListProducts(ctx, ListProductsParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "B", page[0].SKU)

	inactive := false
	page, total, err = s.ListProducts(ctx, ListProductsParams{IsActive: &inactive})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestMemoryStore_Tree(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	root := newProduct("ROOT", "", "")
	require.NoError(t, s.AddRoot(ctx, root))
	assert.Equal(t, "0001", root.Path)
	assert.Equal(t, 1, root.Depth)

	child := newProduct("CHILD", "", "")
	require.NoError(t, s.AddChild(ctx, root, child))
	assert.Equal(t, "00010001", child.Path)
	assert.Equal(t, &root.ID, child.ParentID)
	assert.Equal(t, 1, root.NumChild)

	parent, err := s.ParentOf(ctx, child)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, root.ID, parent.ID)

	t.Run("transient id is cleared", func(t *testing.T) {
		p := newProduct("TRANSIENT", "", "")
		p.ID = 999
		require.NoError(t, s.AddChild(ctx, root, p))
		assert.NotEqual(t, int64(999), p.ID)
		assert.Equal(t, "00010002", p.Path)
	})

	t.Run("saved node already placed", func(t *testing.T) {
		err := s.AddChild(ctx, root, child)
		assert.ErrorIs(t, err, ErrAlreadyInTree)
	})

	t.Run("move", func(t *testing.T) {
		other := newProduct("OTHER", "", "")
		require.NoError(t, s.AddRoot(ctx, other))
		assert.Equal(t, "0002", other.Path)

		require.NoError(t, s.Move(ctx, child, other))
		assert.Equal(t, &other.ID, child.ParentID)
		assert.Equal(t, "00020001", child.Path)

		children, err := s.ChildrenOf(ctx, root)
		require.NoError(t, err)
		assert.Len(t, children, 1)

		stored, err := s.GetProductByID(ctx, root.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.NumChild)
	})

	t.Run("move below own subtree", func(t *testing.T) {
		err := s.Move(ctx, root, root)
		assert.ErrorIs(t, err, ErrInvalidMove)
	})
}

func TestMemoryStore_TreeDoesNotShareParentIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a, b, c := newProduct("A", "", ""), newProduct("B", "", ""), newProduct("C", "", "")
	for _, p := range []*domain.Product{a, b, c} {
		require.NoError(t, s.AddRoot(ctx, p))
	}
	child := newProduct("CHILD", "", "")
	require.NoError(t, s.AddChild(ctx, b, child))
	require.NoError(t, s.Move(ctx, c, a))

	*c.ParentID = 999
	*child.ParentID = 998

	stored, err := s.GetProductByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)

	parent, err := s.ParentOf(ctx, c)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "A", parent.SKU)

	parent, err = s.ParentOf(ctx, child)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "B", parent.SKU)
}

func TestMemoryStore_MoveStaleIndexAndFixTree(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := newProduct("A", "", "")
	b := newProduct("B", "", "")
	c := newProduct("C", "", "")
	require.NoError(t, s.AddRoot(ctx, a))
	require.NoError(t, s.AddRoot(ctx, b))
	require.NoError(t, s.AddChild(ctx, a, c))

	// Corrupt the index: numchild no longer matches the parent links.
	s.products[a.ID].NumChild = 5

	err := s.Move(ctx, c, b)
	require.ErrorIs(t, err, ErrStaleTreeIndex)

	require.NoError(t, s.FixTree(ctx))
	got, err := s.GetProductByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumChild)

	require.NoError(t, s.Move(ctx, c, b))
	got, err = s.GetProductByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "00020001", got.Path)
	assert.Equal(t, b.ID, *got.ParentID)
}

func TestMemoryStore_Prices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddCurrency("EUR")
	s.AddTaxRatio(decimal.NewFromInt(21))
	level := s.AddPriceLevel("wholesale")

	p := newProduct("P", "", "")
	require.NoError(t, s.SaveProduct(ctx, p))
	base := domain.PriceKey{Currency: "EUR", TaxRatio: decimal.NewFromInt(21)}
	tiered := domain.PriceKey{Currency: "EUR", TaxRatio: decimal.NewFromInt(21), PriceLevelID: &level.ID}

	_, created, err := s.UpsertPrice(ctx, p.Ref(), base, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = s.UpsertPrice(ctx, p.Ref(), tiered, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = s.UpsertPrice(ctx, p.Ref(), base, decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetPrice(ctx, p.Ref(), base)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(12).Equal(got.PriceExcludingTax))
	assert.Len(t, s.Prices(p.Ref()), 2)

	_, _, err = s.UpsertPrice(ctx, p.Ref(), domain.PriceKey{Currency: "USD", TaxRatio: decimal.NewFromInt(21)}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
	_, _, err = s.UpsertPrice(ctx, domain.ObjectRef{ContentType: domain.ContentTypeProduct}, base, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnsavedObject)
}

func TestMemoryStore_Carousel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := newProduct("P", "", "")
	require.NoError(t, s.SaveProduct(ctx, p))

	_, err := s.AddCarouselImage(ctx, p.Ref(), "a.jpg")
	require.NoError(t, err)
	img, err := s.AddCarouselImage(ctx, p.Ref(), "b.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, img.Position)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.CarouselImages)

	require.NoError(t, s.ClearCarouselImages(ctx, p.Ref()))
	images, err := s.CarouselImages(ctx, p.Ref())
	require.NoError(t, err)
	assert.Empty(t, images)
}
