package importexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
	"product-catalog-importer/internal/widget"
)

func newSKUResource(t *testing.T, st *store.MemoryStore) *Resource {
	t.Helper()
	sku := &BaseField{AttributePath: "sku", ColumnName: "sku", Widget: widget.Char{}}
	slug := newTranslatable(t, st, "slug_en", widget.Char{})
	r, err := NewResource("product", []Field{sku, slug}, []string{"sku"})
	require.NoError(t, err)
	return r
}

func instanceID(e domain.Entity) int64 {
	if e == nil {
		return 0
	}
	return e.Ref().ObjectID
}

func TestInstanceLoaders_Agree(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	a := saveProduct(t, st, "A", "A", "a")
	b := saveProduct(t, st, "B", "B", "b")
	c := saveProduct(t, st, "C", "C", "c")
	resource := newSKUResource(t, st)
	finder := ProductFinder{Products: st}

	rows := []Row{
		{"sku": "A", "slug_en": "a"},
		{"sku": "C", "slug_en": ""},
		{"sku": "Z", "slug_en": "z"},
		{"sku": "", "slug_en": "b"},
		{"sku": "", "slug_en": ""},
	}
	want := []int64{a.ID, c.ID, 0, b.ID, 0}

	model := NewModelInstanceLoader(resource, finder)
	cached, err := NewCachedInstanceLoader(ctx, resource, finder, rows)
	require.NoError(t, err)

	for i, row := range rows {
		fromModel, err := model.Instance(ctx, row)
		require.NoError(t, err, "row %d", i)
		fromCache, err := cached.Instance(ctx, row)
		require.NoError(t, err, "row %d", i)

		assert.Equal(t, want[i], instanceID(fromModel), "model loader, row %d", i)
		assert.Equal(t, want[i], instanceID(fromCache), "cached loader, row %d", i)
	}
}

func TestModelInstanceLoader_ByID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	saveProduct(t, st, "A", "A", "a")
	b := saveProduct(t, st, "B", "B", "b")

	id := &BaseField{AttributePath: "id", ColumnName: "id", Widget: widget.Integer{}}
	resource, err := NewResource("product", []Field{id}, []string{"id"})
	require.NoError(t, err)
	loader := NewModelInstanceLoader(resource, ProductFinder{Products: st})

	got, err := loader.Instance(ctx, Row{"id": float64(b.ID)})
	require.NoError(t, err)
	assert.Equal(t, b.ID, instanceID(got))

	got, err = loader.Instance(ctx, Row{"id": ""})
	require.NoError(t, err)
	assert.Nil(t, got, "no id and no slug field means a new object")

	_, err = loader.Instance(ctx, Row{})
	assert.ErrorIs(t, err, ErrColumnMissing)
}

func TestModelInstanceLoader_Ambiguous(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	saveProduct(t, st, "A", "A", "a")
	saveProduct(t, st, "B", "B", "b")

	active := &BaseField{AttributePath: "is_active", ColumnName: "active", Widget: widget.Boolean{}}
	resource, err := NewResource("product", []Field{active}, []string{"active"})
	require.NoError(t, err)

	_, err = NewModelInstanceLoader(resource, ProductFinder{Products: st}).Instance(ctx, Row{"active": "yes"})
	assert.ErrorIs(t, err, ErrAmbiguousInstance)
}

func TestModelInstanceLoader_NoImportIDs(t *testing.T) {
	sku := &BaseField{AttributePath: "sku", ColumnName: "sku"}
	resource, err := NewResource("product", []Field{sku}, nil)
	require.NoError(t, err)

	got, err := NewModelInstanceLoader(resource, ProductFinder{Products: newTestStore()}).Instance(context.Background(), Row{"sku": "A"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewCachedInstanceLoader_NeedsOneIDField(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	sku := &BaseField{AttributePath: "sku", ColumnName: "sku"}
	class := &BaseField{AttributePath: "product_class_id", ColumnName: "class"}
	resource, err := NewResource("product", []Field{sku, class}, []string{"sku", "class"})
	require.NoError(t, err)

	_, err = NewCachedInstanceLoader(ctx, resource, ProductFinder{Products: st}, nil)
	assert.Error(t, err)
}

func TestNewResource_Validation(t *testing.T) {
	sku := &BaseField{AttributePath: "sku", ColumnName: "sku"}
	dup := &BaseField{AttributePath: "product_class_id", ColumnName: "sku"}
	note := &BaseField{ColumnName: "note"}

	_, err := NewResource("product", []Field{sku, dup}, nil)
	assert.ErrorContains(t, err, "duplicate column")

	_, err = NewResource("product", []Field{sku}, []string{"id"})
	assert.ErrorContains(t, err, "has no field")

	_, err = NewResource("product", []Field{sku, note}, []string{"note"})
	assert.ErrorContains(t, err, "has no attribute")

	r, err := NewResource("product", []Field{sku, note}, []string{"sku"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "note"}, r.Headers())
	f, ok := r.Field("note")
	require.True(t, ok)
	assert.Equal(t, note, f)
}
