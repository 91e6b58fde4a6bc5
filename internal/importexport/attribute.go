package importexport

import (
	"context"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// AttributeField maps a column to the option a product has in an attribute
// option group. The group is encoded in the attribute name, see
// ParseAttributeKey. Options are created on first use per product class.
type AttributeField struct {
	BaseField
	Key        AttributeKey
	Attributes store.AttributeStorer
}

var _ Field = (*AttributeField)(nil)

func NewAttributeField(base BaseField, attributes store.AttributeStorer) (*AttributeField, error) {
	key, err := ParseAttributeKey(base.AttributePath)
	if err != nil {
		return nil, err
	}
	return &AttributeField{BaseField: base, Key: key, Attributes: attributes}, nil
}

func (f *AttributeField) AfterPersist() bool { return true }

// Value returns the option name. Parent products carry no attribute values.
func (f *AttributeField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	if f.AttributePath == "" || !obj.Ref().Saved() {
		return nil, nil
	}
	if isParent, err := obj.Attr("is_parent"); err == nil && isParent == true {
		return nil, nil
	}
	values, err := f.Attributes.OptionValues(ctx, obj.Ref().ObjectID, f.Key.GroupID)
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		if values[0].Option == nil {
			return nil, nil
		}
		return values[0].Option.Name, nil
	default:
		return nil, &MultipleFactsError{Object: obj.DisplayName(), Column: f.ColumnName, Count: len(values)}
	}
}

func (f *AttributeField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

func (f *AttributeField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	value, err := f.Clean(row)
	if err != nil || isEmptyValue(value) {
		return err
	}

	group, err := f.Attributes.GetOptionGroup(ctx, f.Key.GroupID, f.Key.Active)
	if err != nil {
		return fmt.Errorf("importexport: column %q: %w", f.ColumnName, err)
	}
	classID, err := productClassOf(obj)
	if err != nil {
		return err
	}
	option, _, err := f.Attributes.GetOrCreateOption(ctx, classID, group.ID, fmt.Sprint(value))
	if err != nil {
		return err
	}
	_, _, err = f.Attributes.UpsertOptionValue(ctx, obj.Ref().ObjectID, group.ID, option.ID)
	return err
}

func productClassOf(obj domain.Entity) (int64, error) {
	v, err := obj.Attr("product_class_id")
	if err != nil {
		return 0, fmt.Errorf("%w: %T has no product class", ErrUnsupportedTarget, obj)
	}
	switch id := v.(type) {
	case int64:
		return id, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: product class %v has type %T", ErrUnsupportedTarget, v, v)
	}
}
