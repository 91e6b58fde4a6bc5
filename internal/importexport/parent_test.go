package importexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
	"product-catalog-importer/internal/widget"
)

func newParentField(st *store.MemoryStore) *ParentField {
	return NewParentField(BaseField{AttributePath: "parent", ColumnName: "parent_slug", Widget: widget.Char{}},
		[]string{"en", "de"}, st, st)
}

// saveRoot stores a product and places it as a tree root.
func saveRoot(t *testing.T, st *store.MemoryStore, sku, slug string) *domain.Product {
	t.Helper()
	p := &domain.Product{SKU: sku, IsParent: true, Translations: map[string]*domain.ProductTranslation{
		"en": {LanguageCode: "en", Name: sku, Slug: slug},
	}}
	require.NoError(t, st.AddRoot(context.Background(), p))
	return p
}

func TestParentField_ParentNotFound(t *testing.T) {
	st := newTestStore()
	child := &domain.Product{SKU: "chair-1", Translations: map[string]*domain.ProductTranslation{
		"en": {LanguageCode: "en", Name: "Chair"},
	}}

	err := newParentField(st).Save(context.Background(), child, Row{"parent_slug": "nonexistent-slug"})

	var notFound *ParentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.Equal(t, "Chair", notFound.Object)
	assert.Equal(t, "nonexistent-slug", notFound.Slug)
	assert.Contains(t, err.Error(), "Chair")
	assert.Contains(t, err.Error(), "nonexistent-slug")
}

func TestParentField_AttachIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	root := saveRoot(t, st, "FURNITURE", "furniture")
	f := newParentField(st)
	child := &domain.Product{SKU: "CHAIR"}

	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "furniture"}))
	require.NotZero(t, child.ID, "attaching inserts the product")
	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "furniture"}))

	parent, err := st.ParentOf(ctx, child)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, root.ID, parent.ID)

	children, err := st.ChildrenOf(ctx, root)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	got, err := f.Export(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, "furniture", got)
}

func TestParentField_Move(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	furniture := saveRoot(t, st, "FURNITURE", "furniture")
	tables := saveRoot(t, st, "TABLES", "tables")
	f := newParentField(st)
	child := &domain.Product{SKU: "DESK"}
	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "furniture"}))

	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "tables"}))

	parent, err := st.ParentOf(ctx, child)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, tables.ID, parent.ID)

	left, err := st.ChildrenOf(ctx, furniture)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 2, child.Depth)
}

func TestParentField_Roots(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	f := newParentField(st)

	fresh := &domain.Product{SKU: "ROOT"}
	require.NoError(t, f.Save(ctx, fresh, Row{"parent_slug": ""}))
	assert.NotZero(t, fresh.ID)
	assert.True(t, fresh.InTree())
	assert.Equal(t, 1, fresh.Depth)

	require.NoError(t, f.Save(ctx, fresh, Row{"parent_slug": ""}), "saved product without parent is left alone")

	got, err := f.Export(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	parentProduct := &domain.Product{SKU: "GROUP", IsParent: true}
	require.NoError(t, f.Save(ctx, parentProduct, Row{"parent_slug": "ignored"}))
	assert.True(t, parentProduct.InTree(), "parent products are always roots")
}

func TestParentField_NotAProduct(t *testing.T) {
	err := newParentField(newTestStore()).Save(context.Background(), &domain.Category{Name: "x"}, Row{"parent_slug": "a"})
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

type mockTree struct {
	mock.Mock
}

func (m *mockTree) ParentOf(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	parent, _ := args.Get(0).(*domain.Product)
	return parent, args.Error(1)
}

func (m *mockTree) ChildrenOf(ctx context.Context, parent *domain.Product) ([]*domain.Product, error) {
	args := m.Called(ctx, parent)
	children, _ := args.Get(0).([]*domain.Product)
	return children, args.Error(1)
}

func (m *mockTree) AddRoot(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockTree) AddChild(ctx context.Context, parent, product *domain.Product) error {
	return m.Called(ctx, parent, product).Error(0)
}

func (m *mockTree) Move(ctx context.Context, product, target *domain.Product) error {
	return m.Called(ctx, product, target).Error(0)
}

func (m *mockTree) FixTree(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ store.TreeStorer = (*mockTree)(nil)

func TestParentField_ExistingChildIsLeftAlone(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	saveRoot(t, st, "FURNITURE", "furniture")
	child := &domain.Product{ID: 99, Path: "00010001", Depth: 2}

	tree := &mockTree{}
	tree.On("ChildrenOf", mock.Anything, mock.Anything).Return([]*domain.Product{{ID: 98}, {ID: 99}}, nil).Once()

	f := NewParentField(BaseField{AttributePath: "parent", ColumnName: "parent_slug", Widget: widget.Char{}}, nil, st, tree)
	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "furniture"}))

	tree.AssertExpectations(t)
	tree.AssertNotCalled(t, "Move", mock.Anything, mock.Anything, mock.Anything)
	tree.AssertNotCalled(t, "AddChild", mock.Anything, mock.Anything, mock.Anything)
}

func TestParentField_StaleIndexIsRepairedOnce(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	saveProduct(t, st, "OLD", "Old", "old")
	target := saveProduct(t, st, "NEW", "New", "new")
	child := &domain.Product{ID: 99, Path: "00010001", Depth: 2}

	tree := &mockTree{}
	tree.On("ChildrenOf", mock.Anything, mock.Anything).Return([]*domain.Product{{ID: 98}}, nil)
	tree.On("Move", mock.Anything, child, mock.Anything).Return(store.ErrStaleTreeIndex).Once()
	tree.On("FixTree", mock.Anything).Return(nil).Once()
	tree.On("Move", mock.Anything, child, mock.Anything).Return(nil).Once()

	f := NewParentField(BaseField{AttributePath: "parent", ColumnName: "parent_slug", Widget: widget.Char{}}, nil, st, tree)
	require.NoError(t, f.Save(ctx, child, Row{"parent_slug": "new"}))

	tree.AssertExpectations(t)
	tree.AssertNumberOfCalls(t, "Move", 2)
	moved := tree.Calls[1].Arguments.Get(2).(*domain.Product)
	assert.Equal(t, target.ID, moved.ID)
}

func TestParentField_StaleIndexAfterRepair(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	saveProduct(t, st, "NEW", "New", "new")
	child := &domain.Product{ID: 99, Path: "0002", Depth: 1}

	tree := &mockTree{}
	tree.On("ChildrenOf", mock.Anything, mock.Anything).Return(nil, nil)
	tree.On("Move", mock.Anything, child, mock.Anything).Return(store.ErrStaleTreeIndex)
	tree.On("FixTree", mock.Anything).Return(nil)

	f := NewParentField(BaseField{AttributePath: "parent", ColumnName: "parent_slug", Widget: widget.Char{}}, nil, st, tree)
	err := f.Save(ctx, child, Row{"parent_slug": "new"})

	assert.ErrorIs(t, err, store.ErrStaleTreeIndex)
	tree.AssertNumberOfCalls(t, "Move", 2)
	tree.AssertNumberOfCalls(t, "FixTree", 1)
}
