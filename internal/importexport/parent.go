package importexport

import (
	"context"
	"errors"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/logging"
	"product-catalog-importer/internal/store"
)

// DefaultLanguage is used by ParentField when no languages are configured.
const DefaultLanguage = "en"

// ParentField places a product in the tree below the product whose slug is
// in the cell. Parents are resolved in the first configured language only;
// further languages are kept for configuration but not consulted.
type ParentField struct {
	BaseField
	Languages []string
	Products  store.ProductStorer
	Tree      store.TreeStorer
}

var _ Field = (*ParentField)(nil)

func NewParentField(base BaseField, languages []string, products store.ProductStorer, tree store.TreeStorer) *ParentField {
	return &ParentField{BaseField: base, Languages: languages, Products: products, Tree: tree}
}

func (f *ParentField) language() string {
	if len(f.Languages) == 0 {
		return DefaultLanguage
	}
	return f.Languages[0]
}

func asProduct(obj domain.Entity) (*domain.Product, error) {
	p, ok := obj.(*domain.Product)
	if !ok {
		return nil, fmt.Errorf("%w: tree fields need a product, got %T", ErrUnsupportedTarget, obj)
	}
	return p, nil
}

// Value returns the parent's slug, or "" for products without a parent.
func (f *ParentField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	p, err := asProduct(obj)
	if err != nil {
		return nil, err
	}
	parent, err := f.Tree.ParentOf(ctx, p)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return "", nil
	}
	var slug any
	_, err = withLanguage(parent, f.language(), false, func(target domain.Attributed, _ domain.Satellite) error {
		slug, err = target.Attr("slug")
		return err
	})
	return slug, err
}

func (f *ParentField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

func (f *ParentField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	p, err := asProduct(obj)
	if err != nil {
		return err
	}
	value, err := f.Clean(row)
	if err != nil {
		return err
	}

	if p.IsParent || isEmptyValue(value) {
		if p.ID == 0 {
			return f.Tree.AddRoot(ctx, p)
		}
		return nil
	}

	slug := fmt.Sprint(value)
	parent, err := f.Products.GetProductBySlug(ctx, f.language(), slug)
	if errors.Is(err, store.ErrProductNotFound) {
		return &ParentNotFoundError{Object: p.DisplayName(), Slug: slug}
	}
	if err != nil {
		return err
	}

	if p.ID != 0 {
		children, err := f.Tree.ChildrenOf(ctx, parent)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.ID == p.ID {
				return nil
			}
		}
	}
	if !p.InTree() && p.ParentID == nil {
		return f.Tree.AddChild(ctx, parent, p)
	}
	return f.move(ctx, p, parent)
}

// move re-parents p, repairing the tree index and retrying once when the
// index turns out to be stale.
func (f *ParentField) move(ctx context.Context, p, parent *domain.Product) error {
	err := f.Tree.Move(ctx, p, parent)
	if !errors.Is(err, store.ErrStaleTreeIndex) {
		return err
	}
	logging.WithFields(ctx, "product_id", p.ID, "parent_id", parent.ID).
		Warn("stale tree index, rebuilding before retrying move")
	if err := f.Tree.FixTree(ctx); err != nil {
		return fmt.Errorf("importexport: repairing tree: %w", err)
	}
	return f.Tree.Move(ctx, p, parent)
}
