package importexport

import (
	"context"
	"errors"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// InstanceLoader resolves the stored object a row refers to. A nil entity
// with a nil error means the row describes a new object.
type InstanceLoader interface {
	Instance(ctx context.Context, row Row) (domain.Entity, error)
}

// Finder is the query capability instance loaders need.
type Finder interface {
	Find(ctx context.Context, filter store.Filter) ([]domain.Entity, error)
	FindIn(ctx context.Context, attribute string, values []any) ([]domain.Entity, error)
	// FindBySlug returns the first object with slug in lang, or nil.
	FindBySlug(ctx context.Context, lang, slug string) (domain.Entity, error)
}

// ProductFinder adapts a ProductStorer to Finder.
type ProductFinder struct {
	Products store.ProductStorer
}

var _ Finder = ProductFinder{}

func entities(products []*domain.Product) []domain.Entity {
	out := make([]domain.Entity, len(products))
	for i, p := range products {
		out[i] = p
	}
	return out
}

func (f ProductFinder) Find(ctx context.Context, filter store.Filter) ([]domain.Entity, error) {
	products, err := f.Products.FindProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return entities(products), nil
}

func (f ProductFinder) FindIn(ctx context.Context, attribute string, values []any) ([]domain.Entity, error) {
	products, err := f.Products.FindProductsIn(ctx, attribute, values)
	if err != nil {
		return nil, err
	}
	return entities(products), nil
}

func (f ProductFinder) FindBySlug(ctx context.Context, lang, slug string) (domain.Entity, error) {
	p, err := f.Products.GetProductBySlug(ctx, lang, slug)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ModelInstanceLoader looks a row's object up by the resource's import id
// fields. When an id cleans empty it falls back to the first translated
// slug field of the resource.
type ModelInstanceLoader struct {
	Resource *Resource
	Finder   Finder
}

var _ InstanceLoader = (*ModelInstanceLoader)(nil)

func NewModelInstanceLoader(resource *Resource, finder Finder) *ModelInstanceLoader {
	return &ModelInstanceLoader{Resource: resource, Finder: finder}
}

func (l *ModelInstanceLoader) Instance(ctx context.Context, row Row) (domain.Entity, error) {
	filter := store.Filter{}
	for _, field := range l.Resource.ImportIDFields() {
		value, err := field.Clean(row)
		if err != nil {
			return nil, err
		}
		if isEmptyValue(value) {
			return l.bySlug(ctx, row)
		}
		filter[field.Attribute()] = value
	}
	if len(filter) == 0 {
		return nil, nil
	}

	found, err := l.Finder.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d objects match %v", ErrAmbiguousInstance, len(found), filter)
	}
}

func (l *ModelInstanceLoader) bySlug(ctx context.Context, row Row) (domain.Entity, error) {
	field := l.Resource.slugField()
	if field == nil {
		return nil, nil
	}
	value, err := field.Clean(row)
	if err != nil {
		return nil, err
	}
	if isEmptyValue(value) {
		return nil, nil
	}
	return l.Finder.FindBySlug(ctx, field.Key.Language, fmt.Sprint(value))
}

// CachedInstanceLoader prefetches every object a batch refers to with one
// query. It needs exactly one import id field. Build a new one per batch.
type CachedInstanceLoader struct {
	ModelInstanceLoader
	idField   Field
	instances map[string]domain.Entity
}

var _ InstanceLoader = (*CachedInstanceLoader)(nil)

func NewCachedInstanceLoader(ctx context.Context, resource *Resource, finder Finder, rows []Row) (*CachedInstanceLoader, error) {
	ids := resource.ImportIDFields()
	if len(ids) != 1 {
		return nil, fmt.Errorf("importexport: cached instance loader needs exactly one import id field, got %d", len(ids))
	}
	idField := ids[0]

	values := make([]any, 0, len(rows))
	for i, row := range rows {
		v, err := idField.Clean(row)
		if err != nil {
			return nil, fmt.Errorf("importexport: row %d: %w", i+1, err)
		}
		if !isEmptyValue(v) {
			values = append(values, v)
		}
	}

	l := &CachedInstanceLoader{
		ModelInstanceLoader: ModelInstanceLoader{Resource: resource, Finder: finder},
		idField:             idField,
		instances:           make(map[string]domain.Entity, len(values)),
	}
	if len(values) == 0 {
		return l, nil
	}
	found, err := finder.FindIn(ctx, idField.Attribute(), values)
	if err != nil {
		return nil, err
	}
	for _, instance := range found {
		key, err := idField.Value(ctx, instance)
		if err != nil {
			return nil, err
		}
		if key != nil {
			l.instances[cacheKey(key)] = instance
		}
	}
	return l, nil
}

func cacheKey(v any) string { return fmt.Sprint(v) }

// Instance answers from the prefetched objects. Rows with an empty id take
// the slug fallback of ModelInstanceLoader.
func (l *CachedInstanceLoader) Instance(ctx context.Context, row Row) (domain.Entity, error) {
	value, err := l.idField.Clean(row)
	if err != nil {
		return nil, err
	}
	if isEmptyValue(value) {
		return l.bySlug(ctx, row)
	}
	return l.instances[cacheKey(value)], nil
}
