package store

import (
	"context"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
)

// ListProductsParams holds parameters for listing products.
type ListProductsParams struct {
	Limit    int
	Offset   int
	IsActive *bool // Filter by active status
}

// Filter selects objects by attribute equality. Keys are attribute names as
// the import layer knows them ("id", "sku", ...).
type Filter map[string]any

// ProductStorer defines the product lookups and writes the import layer needs.
type ProductStorer interface {
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, lang, slug string) (*domain.Product, error)
	SlugExists(ctx context.Context, lang, slug string) (bool, error)
	FindProducts(ctx context.Context, filter Filter) ([]*domain.Product, error)
	FindProductsIn(ctx context.Context, attribute string, values []any) ([]*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]*domain.Product, int, error)
	// SaveProduct inserts a product without an id or updates it otherwise.
	// Tree columns are owned by TreeStorer and are only written on insert.
	SaveProduct(ctx context.Context, product *domain.Product) error
}

// ObjectSaver persists any importable entity.
type ObjectSaver interface {
	SaveObject(ctx context.Context, obj domain.Entity) error
}

// TranslationSaver persists one satellite record of an entity.
type TranslationSaver interface {
	SaveTranslation(ctx context.Context, owner domain.Entity, satellite domain.Satellite) error
}

// TreeStorer maintains the product hierarchy.
type TreeStorer interface {
	// ParentOf returns the parent of product, or nil for roots and nodes
	// outside the tree.
	ParentOf(ctx context.Context, product *domain.Product) (*domain.Product, error)
	ChildrenOf(ctx context.Context, parent *domain.Product) ([]*domain.Product, error)
	// AddRoot inserts product (when unsaved) and places it as a new root.
	AddRoot(ctx context.Context, product *domain.Product) error
	// AddChild places product as the last child of parent, inserting it
	// first when it has no id. A saved product must not be in the tree yet.
	AddChild(ctx context.Context, parent, product *domain.Product) error
	// Move re-parents product as the last child of target. It fails with
	// ErrStaleTreeIndex when the materialized path index disagrees with the
	// parent links.
	Move(ctx context.Context, product, target *domain.Product) error
	// FixTree rebuilds the materialized path index from the parent links.
	FixTree(ctx context.Context) error
}

// PriceStorer reads and upserts price matrix facts.
type PriceStorer interface {
	GetPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey) (*domain.Price, error)
	UpsertPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey, amount decimal.Decimal) (*domain.Price, bool, error)
}

// OldPriceStorer reads and upserts historical prices.
type OldPriceStorer interface {
	GetOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal) (*domain.OldPrice, error)
	UpsertOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal, amount decimal.Decimal) (*domain.OldPrice, bool, error)
}

// AttributeStorer manages attribute option groups, options and their links
// to products.
type AttributeStorer interface {
	GetOptionGroup(ctx context.Context, id int64, active bool) (*domain.AttributeOptionGroup, error)
	GetOrCreateOption(ctx context.Context, productClassID, groupID int64, name string) (*domain.AttributeOption, bool, error)
	UpsertOptionValue(ctx context.Context, productID, groupID, optionID int64) (*domain.AttributeOptionGroupValue, bool, error)
	// OptionValues returns every value linked to (product, group) with its
	// option loaded. More than one means the data is inconsistent.
	OptionValues(ctx context.Context, productID, groupID int64) ([]domain.AttributeOptionGroupValue, error)
}

// CarouselStorer manages the images attached to an object.
type CarouselStorer interface {
	CarouselImages(ctx context.Context, obj domain.ObjectRef) ([]domain.CarouselImage, error)
	ClearCarouselImages(ctx context.Context, obj domain.ObjectRef) error
	AddCarouselImage(ctx context.Context, obj domain.ObjectRef, image string) (*domain.CarouselImage, error)
}

// Store is everything the importer needs from persistence.
type Store interface {
	ProductStorer
	ObjectSaver
	TranslationSaver
	TreeStorer
	PriceStorer
	OldPriceStorer
	AttributeStorer
	CarouselStorer
}
