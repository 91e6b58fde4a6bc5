// Package mapping loads resource definitions from YAML and builds them into
// importexport resources.
//
// A definition lists the columns of one resource in import order:
//
//	resource: product
//	import_id_fields: [sku]
//	fields:
//	  - column: sku
//	    attribute: sku
//	    widget: char
//	  - column: price
//	    attribute: price__21__EUR
//	    kind: price
//
// Kinds select the field type (field, translatable, price, old_price,
// attribute, carousel, parent). Each kind has a default widget.
package mapping

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Field kinds.
const (
	KindField        = "field"
	KindTranslatable = "translatable"
	KindPrice        = "price"
	KindOldPrice     = "old_price"
	KindAttribute    = "attribute"
	KindCarousel     = "carousel"
	KindParent       = "parent"
)

// File is the root of a resource definition.
type File struct {
	Resource       string     `yaml:"resource" validate:"required"`
	ImportIDFields []string   `yaml:"import_id_fields,omitempty" validate:"dive,required"`
	Fields         []FieldDef `yaml:"fields" validate:"required,min=1,dive"`
}

// FieldDef defines one column.
type FieldDef struct {
	Column    string `yaml:"column" validate:"required"`
	Attribute string `yaml:"attribute,omitempty"`
	Kind      string `yaml:"kind,omitempty" validate:"oneof=field translatable price old_price attribute carousel parent"`
	Widget    string `yaml:"widget,omitempty" validate:"omitempty,oneof=base char string integer int decimal boolean bool list"`
	// Separator splits list cells. Only used by list widgets.
	Separator string `yaml:"separator,omitempty"`
	// Default is cleaned by the widget when the resource is built.
	Default         *string `yaml:"default,omitempty"`
	Readonly        bool    `yaml:"readonly,omitempty"`
	SavesNullValues bool    `yaml:"saves_null_values,omitempty"`
	M2M             bool    `yaml:"m2m,omitempty"`
}

var validate = validator.New()

// LoadFile reads and parses the definition at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: failed to read mapping file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML definition.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("mapping: failed to parse mapping YAML: %w", err)
	}
	applyDefaults(&f)
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func applyDefaults(f *File) {
	for i := range f.Fields {
		d := &f.Fields[i]
		if d.Kind == "" {
			d.Kind = KindField
		}
		if d.Widget == "" {
			d.Widget = defaultWidget(d.Kind)
		}
		if d.Separator == "" && d.Kind == KindCarousel {
			d.Separator = "|"
		}
	}
}

func defaultWidget(kind string) string {
	switch kind {
	case KindTranslatable, KindAttribute, KindParent:
		return "char"
	case KindPrice, KindOldPrice:
		return "decimal"
	case KindCarousel:
		return "list"
	default:
		return "base"
	}
}

// Validate checks struct constraints and the rules between fields.
func Validate(f *File) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("mapping: invalid definition: %w", err)
	}
	columns := make(map[string]bool, len(f.Fields))
	var parentColumn string
	for _, d := range f.Fields {
		if columns[d.Column] {
			return fmt.Errorf("mapping: duplicate column %q", d.Column)
		}
		columns[d.Column] = true
		if d.Kind == KindParent && parentColumn == "" {
			parentColumn = d.Column
		}
		// The parent field decides between root and child from is_parent,
		// so the flag has to be written first.
		if d.Attribute == "is_parent" && parentColumn != "" {
			return fmt.Errorf("mapping: column %q must come before parent column %q", d.Column, parentColumn)
		}
		if d.Kind != KindField && d.Attribute == "" {
			return fmt.Errorf("mapping: column %q: kind %s needs an attribute", d.Column, d.Kind)
		}
		if d.M2M && d.Kind != KindField {
			return fmt.Errorf("mapping: column %q: m2m is only supported for kind field", d.Column)
		}
	}
	for _, col := range f.ImportIDFields {
		if !columns[col] {
			return fmt.Errorf("mapping: import id column %q is not defined", col)
		}
	}
	return nil
}

// marshal serializes a definition back to YAML.
func marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}
