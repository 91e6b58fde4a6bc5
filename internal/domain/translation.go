package domain

// ProductTranslation is the per-language satellite of a Product.
type ProductTranslation struct {
	ID           int64   `json:"id"`
	MasterID     int64   `json:"master_id"`
	LanguageCode string  `json:"language_code"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  string  `json:"description"`
	MetaTitle    *string `json:"meta_title,omitempty"`
}

var productTranslationMeta = map[string]FieldMeta{
	"name":        {},
	"slug":        {},
	"description": {Blank: true},
	"meta_title":  {Blank: true, Null: true},
}

func (t *ProductTranslation) Language() string { return t.LanguageCode }

func (t *ProductTranslation) FieldMeta(name string) (FieldMeta, bool) {
	m, ok := productTranslationMeta[name]
	return m, ok
}

func (t *ProductTranslation) Attr(name string) (any, error) {
	switch name {
	case "name":
		return t.Name, nil
	case "slug":
		return t.Slug, nil
	case "description":
		return t.Description, nil
	case "meta_title":
		if t.MetaTitle == nil {
			return nil, nil
		}
		return *t.MetaTitle, nil
	}
	return nil, unknownAttr("product translation", name)
}

func (t *ProductTranslation) SetAttr(name string, value any) (err error) {
	switch name {
	case "name":
		t.Name, err = asString(value)
	case "slug":
		t.Slug, err = asString(value)
	case "description":
		t.Description, err = asString(value)
	case "meta_title":
		t.MetaTitle, err = asStringPtr(value)
	default:
		return unknownAttr("product translation", name)
	}
	return err
}
