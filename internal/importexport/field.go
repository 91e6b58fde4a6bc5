// Package importexport maps tabular rows onto catalog objects and back.
//
// A Field binds one column to one attribute of a target object. Import calls
// Field.Save per row, export calls Field.Export per object. Specialized
// fields handle translated attributes, price matrices, attribute options,
// carousel images and the product tree. Instance loaders decide which stored
// object a row updates.
package importexport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/widget"
)

// Row maps column names to raw cell values.
type Row map[string]any

// Field is one column mapping.
type Field interface {
	Column() string
	Attribute() string
	// Clean reads and converts the field's cell from row.
	Clean(row Row) (any, error)
	// Value reads the field's attribute from obj. Missing values are nil.
	Value(ctx context.Context, obj domain.Entity) (any, error)
	// Save writes the cleaned cell onto obj.
	Save(ctx context.Context, obj domain.Entity, row Row) error
	Export(ctx context.Context, obj domain.Entity) (string, error)
	// AfterPersist reports whether Save needs obj to be stored first.
	AfterPersist() bool
}

// BaseField maps a column to a plain or nested attribute. Nested paths use
// "__" between segments ("category__name"). An empty AttributePath makes an
// export-only field.
type BaseField struct {
	AttributePath   string
	ColumnName      string
	Widget          widget.Widget
	Default         Default
	Readonly        bool
	SavesNullValues bool
	// IsM2M marks a multi-valued relation written with RelatedSet.Replace.
	IsM2M bool
}

var _ Field = (*BaseField)(nil)

func (f *BaseField) Column() string { return f.ColumnName }

func (f *BaseField) Attribute() string { return f.AttributePath }

func (f *BaseField) AfterPersist() bool { return false }

func (f *BaseField) widget() widget.Widget {
	if f.Widget == nil {
		return widget.Base{}
	}
	return f.Widget
}

func (f *BaseField) String() string {
	return fmt.Sprintf("<importexport.Field: %s>", f.ColumnName)
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func (f *BaseField) Clean(row Row) (any, error) {
	raw, ok := row[f.ColumnName]
	if !ok {
		available := make([]string, 0, len(row))
		for k := range row {
			available = append(available, k)
		}
		sort.Strings(available)
		return nil, &ColumnMissingError{Column: f.ColumnName, Available: available}
	}

	value, err := f.widget().Clean(raw, row)
	if err != nil {
		return nil, &WidgetCleanError{Column: f.ColumnName, Err: err}
	}
	if isEmptyValue(value) && f.Default.IsSet() {
		return f.Default.resolve(), nil
	}
	return value, nil
}

func (f *BaseField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	if f.AttributePath == "" {
		return nil, nil
	}
	return resolvePath(obj, splitPath(f.AttributePath))
}

func (f *BaseField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly || f.AttributePath == "" {
		return nil
	}
	segments := splitPath(f.AttributePath)
	target, err := owner(obj, segments)
	if err != nil {
		return err
	}
	name := segments[len(segments)-1]
	if name == "id" {
		return nil
	}
	value, err := f.Clean(row)
	if err != nil {
		return err
	}
	return f.assign(target, name, value)
}

func (f *BaseField) assign(target domain.Attributed, name string, value any) error {
	if !f.IsM2M {
		if value == nil && !f.SavesNullValues {
			return nil
		}
		return target.SetAttr(name, value)
	}

	items, err := toItems(value)
	if err != nil {
		return fmt.Errorf("%w: column %q: %v", ErrUnsupportedTarget, f.ColumnName, err)
	}
	if len(items) == 0 && !f.SavesNullValues {
		return nil
	}
	current, err := target.Attr(name)
	if err != nil {
		return err
	}
	set, ok := current.(domain.RelatedSet)
	if !ok {
		return fmt.Errorf("%w: %q is not a multi-valued relation", ErrUnsupportedTarget, name)
	}
	return set.Replace(items)
}

// toItems turns a cleaned collection value into its items.
func toItems(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []any{v}, nil
	case json.Number:
		return []any{v.String()}, nil
	default:
		return nil, fmt.Errorf("cannot use %T as a collection", value)
	}
}

func (f *BaseField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

// render is the export path shared by every field type; value is the
// concrete field's reader.
func (f *BaseField) render(ctx context.Context, obj domain.Entity, value func(context.Context, domain.Entity) (any, error)) (string, error) {
	v, err := value(ctx, obj)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return f.widget().Render(v, obj), nil
}
