package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Content types used in ObjectRef.
const (
	ContentTypeProduct  = "catalog.product"
	ContentTypeCategory = "catalog.category"
)

// Category represents a product category in the system.
type Category struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	ParentCategoryID *int64    `json:"parent_category_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c *Category) Attr(name string) (any, error) {
	switch name {
	case "id":
		if c.ID == 0 {
			return nil, nil
		}
		return c.ID, nil
	case "name":
		return c.Name, nil
	case "description":
		if c.Description == nil {
			return nil, nil
		}
		return *c.Description, nil
	case "parent_category_id":
		if c.ParentCategoryID == nil {
			return nil, nil
		}
		return *c.ParentCategoryID, nil
	}
	return nil, unknownAttr("category", name)
}

func (c *Category) SetAttr(name string, value any) (err error) {
	switch name {
	case "name":
		c.Name, err = asString(value)
	case "description":
		c.Description, err = asStringPtr(value)
	case "parent_category_id":
		c.ParentCategoryID, err = asInt64Ptr(value)
	default:
		return unknownAttr("category", name)
	}
	return err
}

func (c *Category) Ref() ObjectRef { return ObjectRef{ContentType: ContentTypeCategory, ObjectID: c.ID} }

func (c *Category) DisplayName() string { return c.Name }

// Product represents a product in the catalog.
//
// Products form a tree: ParentID is the authoritative link, Path, Depth and
// NumChild are the materialized-path index kept by the store. A node with an
// empty Path has not been placed in the tree yet.
type Product struct {
	ID             int64                          `json:"id"`
	ParentID       *int64                         `json:"parent_id,omitempty"`
	Path           string                         `json:"path,omitempty"`
	Depth          int                            `json:"depth"`
	NumChild       int                            `json:"numchild"`
	ProductClassID int64                          `json:"product_class_id"`
	CategoryID     *int64                         `json:"category_id,omitempty"`
	Category       *Category                      `json:"category,omitempty"`
	SKU            string                         `json:"sku"`
	IsParent       bool                           `json:"is_parent"`
	IsActive       bool                           `json:"is_active"`
	Tags           TagSet                         `json:"tags"`
	CarouselImages []string                       `json:"carousel_images,omitempty"`
	Translations   map[string]*ProductTranslation `json:"translations,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

func (p *Product) Attr(name string) (any, error) {
	switch name {
	case "id":
		if p.ID == 0 {
			return nil, nil
		}
		return p.ID, nil
	case "sku":
		return p.SKU, nil
	case "product_class_id":
		return p.ProductClassID, nil
	case "is_parent":
		return p.IsParent, nil
	case "is_active":
		return p.IsActive, nil
	case "parent_id":
		if p.ParentID == nil {
			return nil, nil
		}
		return *p.ParentID, nil
	case "category_id":
		if p.CategoryID == nil {
			return nil, nil
		}
		return *p.CategoryID, nil
	case "category":
		if p.Category == nil {
			return nil, nil
		}
		return p.Category, nil
	case "tags":
		return &p.Tags, nil
	case "carousel_images":
		if p.ID == 0 {
			return nil, ErrUnsetRelation
		}
		return p.CarouselImages, nil
	case "display_name":
		return func() any { return p.DisplayName() }, nil
	}
	return nil, unknownAttr("product", name)
}

func (p *Product) SetAttr(name string, value any) (err error) {
	switch name {
	case "sku":
		p.SKU, err = asString(value)
	case "product_class_id":
		p.ProductClassID, err = asInt64(value)
	case "is_parent":
		p.IsParent, err = asBool(value)
	case "is_active":
		p.IsActive, err = asBool(value)
	case "category_id":
		p.CategoryID, err = asInt64Ptr(value)
		p.Category = nil
	case "tags":
		var values []any
		if s, ok := value.([]string); ok {
			for _, v := range s {
				values = append(values, v)
			}
		} else if value != nil {
			values = []any{value}
		}
		err = p.Tags.Replace(values)
	default:
		return unknownAttr("product", name)
	}
	return err
}

func (p *Product) Ref() ObjectRef { return ObjectRef{ContentType: ContentTypeProduct, ObjectID: p.ID} }

// DisplayName returns the first non-empty translated name, falling back to
// the SKU and then to the id.
func (p *Product) DisplayName() string {
	for _, lang := range p.Languages() {
		if t := p.Translations[lang]; t.Name != "" {
			return t.Name
		}
	}
	if p.SKU != "" {
		return p.SKU
	}
	return fmt.Sprintf("product #%d", p.ID)
}

// Languages returns the languages the product has satellites for, sorted.
func (p *Product) Languages() []string {
	langs := make([]string, 0, len(p.Translations))
	for lang := range p.Translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (p *Product) Translation(lang string, create bool) (Satellite, bool) {
	if t, ok := p.Translations[lang]; ok {
		return t, true
	}
	if !create {
		return nil, false
	}
	if p.Translations == nil {
		p.Translations = make(map[string]*ProductTranslation)
	}
	t := &ProductTranslation{MasterID: p.ID, LanguageCode: lang}
	p.Translations[lang] = t
	return t, true
}

// Slug returns the product slug in lang, or "" when there is none.
func (p *Product) Slug(lang string) string {
	if t, ok := p.Translations[lang]; ok {
		return t.Slug
	}
	return ""
}

// InTree reports whether the store has placed the product in the hierarchy.
func (p *Product) InTree() bool { return p.Path != "" }

// TagSet is the product's multi-valued label relation.
type TagSet struct {
	items []string
}

// NewTagSet builds a set from stored values, dropping duplicates.
func NewTagSet(values ...string) TagSet {
	var s TagSet
	for _, v := range values {
		s.add(v)
	}
	return s
}

func (s *TagSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	for _, existing := range s.items {
		if existing == v {
			return
		}
	}
	s.items = append(s.items, v)
}

func (s *TagSet) Replace(values []any) error {
	s.items = nil
	for _, v := range values {
		str, err := asString(v)
		if err != nil {
			return err
		}
		s.add(str)
	}
	return nil
}

func (s *TagSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	if len(s.items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}
