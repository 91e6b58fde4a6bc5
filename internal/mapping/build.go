package mapping

import (
	"fmt"

	"product-catalog-importer/internal/importexport"
	"product-catalog-importer/internal/store"
	"product-catalog-importer/internal/widget"
)

// Build turns a definition into a resource whose fields read and write
// through st. languages configures parent fields.
func Build(f *File, st store.Store, languages []string) (*importexport.Resource, error) {
	fields := make([]importexport.Field, 0, len(f.Fields))
	for _, d := range f.Fields {
		field, err := buildField(d, st, languages)
		if err != nil {
			return nil, fmt.Errorf("mapping: column %q: %w", d.Column, err)
		}
		fields = append(fields, field)
	}
	return importexport.NewResource(f.Resource, fields, f.ImportIDFields)
}

func buildField(d FieldDef, st store.Store, languages []string) (importexport.Field, error) {
	w, err := widget.New(d.Widget, d.Separator)
	if err != nil {
		return nil, err
	}
	base := importexport.BaseField{
		AttributePath:   d.Attribute,
		ColumnName:      d.Column,
		Widget:          w,
		Readonly:        d.Readonly,
		SavesNullValues: d.SavesNullValues,
		IsM2M:           d.M2M,
	}
	if d.Default != nil {
		v, err := w.Clean(*d.Default, nil)
		if err != nil {
			return nil, fmt.Errorf("default %q: %w", *d.Default, err)
		}
		base.Default = importexport.ValueDefault(v)
	}

	switch d.Kind {
	case KindField, "":
		return &base, nil
	case KindTranslatable:
		return importexport.NewTranslatableField(base, st, st)
	case KindPrice:
		return importexport.NewPriceField(base, st, st)
	case KindOldPrice:
		return importexport.NewOldPriceField(base, st)
	case KindAttribute:
		return importexport.NewAttributeField(base, st)
	case KindCarousel:
		return importexport.NewCarouselImageField(base, st), nil
	case KindParent:
		return importexport.NewParentField(base, languages, st, st), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", d.Kind)
	}
}
