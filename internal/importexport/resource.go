package importexport

import (
	"context"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// Resource is an ordered set of fields describing one importable type.
// Fields are saved in order, so identity and parent fields come first.
type Resource struct {
	Name string

	fields    []Field
	byColumn  map[string]Field
	importIDs []string
}

// NewResource checks that columns are unique and that every import id
// column belongs to a field.
func NewResource(name string, fields []Field, importIDColumns []string) (*Resource, error) {
	r := &Resource{
		Name:      name,
		fields:    fields,
		byColumn:  make(map[string]Field, len(fields)),
		importIDs: importIDColumns,
	}
	for _, f := range fields {
		if _, dup := r.byColumn[f.Column()]; dup {
			return nil, fmt.Errorf("importexport: resource %q: duplicate column %q", name, f.Column())
		}
		r.byColumn[f.Column()] = f
	}
	for _, col := range importIDColumns {
		f, ok := r.byColumn[col]
		if !ok {
			return nil, fmt.Errorf("importexport: resource %q: import id column %q has no field", name, col)
		}
		if f.Attribute() == "" {
			return nil, fmt.Errorf("importexport: resource %q: import id column %q has no attribute", name, col)
		}
	}
	return r, nil
}

func (r *Resource) Fields() []Field { return r.fields }

func (r *Resource) Field(column string) (Field, bool) {
	f, ok := r.byColumn[column]
	return f, ok
}

func (r *Resource) ImportIDFields() []Field {
	out := make([]Field, 0, len(r.importIDs))
	for _, col := range r.importIDs {
		out = append(out, r.byColumn[col])
	}
	return out
}

// slugField returns the first translated slug field, if any.
func (r *Resource) slugField() *TranslatableField {
	for _, f := range r.fields {
		if tf, ok := f.(*TranslatableField); ok && tf.Key.Name == "slug" {
			return tf
		}
	}
	return nil
}

func (r *Resource) Headers() []string {
	headers := make([]string, len(r.fields))
	for i, f := range r.fields {
		headers[i] = f.Column()
	}
	return headers
}

// ExportRow renders obj in header order.
func (r *Resource) ExportRow(ctx context.Context, obj domain.Entity) ([]string, error) {
	row := make([]string, len(r.fields))
	for i, f := range r.fields {
		v, err := f.Export(ctx, obj)
		if err != nil {
			return nil, fmt.Errorf("importexport: exporting column %q: %w", f.Column(), err)
		}
		row[i] = v
	}
	return row, nil
}

// ImportRow saves every field onto obj, persists obj and then saves the
// fields that write facts keyed by obj's identity. Nothing is rolled back
// when a field fails; obj may be left partially updated.
func (r *Resource) ImportRow(ctx context.Context, obj domain.Entity, row Row, saver store.ObjectSaver) error {
	for _, f := range r.fields {
		if f.AfterPersist() {
			continue
		}
		if err := f.Save(ctx, obj, row); err != nil {
			return err
		}
	}
	if err := saver.SaveObject(ctx, obj); err != nil {
		return err
	}
	for _, f := range r.fields {
		if !f.AfterPersist() {
			continue
		}
		if err := f.Save(ctx, obj, row); err != nil {
			return err
		}
	}
	return nil
}
