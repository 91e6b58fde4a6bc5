package importexport

import (
	"context"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// SlugChecker reports whether a slug is taken in a language.
type SlugChecker interface {
	SlugExists(ctx context.Context, lang, slug string) (bool, error)
}

// TranslatableField maps a column to an attribute kept per language. The
// attribute is named <name>_<language>, for example "slug_en".
type TranslatableField struct {
	BaseField
	Key          LanguageKey
	Translations store.TranslationSaver
	Slugs        SlugChecker
}

var _ Field = (*TranslatableField)(nil)

func NewTranslatableField(base BaseField, translations store.TranslationSaver, slugs SlugChecker) (*TranslatableField, error) {
	key, err := ParseLanguageKey(base.AttributePath)
	if err != nil {
		return nil, err
	}
	return &TranslatableField{BaseField: base, Key: key, Translations: translations, Slugs: slugs}, nil
}

func (f *TranslatableField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	if f.AttributePath == "" {
		return nil, nil
	}
	var value any
	_, err := withLanguage(obj, f.Key.Language, false, func(target domain.Attributed, _ domain.Satellite) error {
		v, err := resolvePath(target, splitPath(f.Key.Name))
		value = v
		return err
	})
	return value, err
}

func (f *TranslatableField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

func (f *TranslatableField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	value, err := f.Clean(row)
	if err != nil {
		return err
	}

	_, err = withLanguage(obj, f.Key.Language, true, func(target domain.Attributed, sat domain.Satellite) error {
		meta := domain.FieldMeta{Null: true}
		if sat != nil {
			if m, ok := sat.FieldMeta(f.Key.Name); ok {
				meta = m
			}
		}
		if meta.Blank && !meta.Null && !meta.IsRelation {
			if value == nil {
				value = ""
			}
		} else if f.Key.Name == "slug" {
			if err := f.checkSlug(ctx, obj, target, value); err != nil {
				return err
			}
		}

		if err := target.SetAttr(f.Key.Name, value); err != nil {
			return fmt.Errorf("importexport: column %q: %w", f.ColumnName, err)
		}
		if sat != nil && f.Translations != nil {
			return f.Translations.SaveTranslation(ctx, obj, sat)
		}
		return nil
	})
	return err
}

// checkSlug rejects a slug owned by another object when obj has none yet
// in the field's language.
func (f *TranslatableField) checkSlug(ctx context.Context, obj domain.Entity, target domain.Attributed, value any) error {
	if f.Slugs == nil || isEmptyValue(value) {
		return nil
	}
	current, err := target.Attr("slug")
	if err != nil {
		return err
	}
	if !isEmptyValue(current) {
		return nil
	}
	slug := fmt.Sprint(value)
	exists, err := f.Slugs.SlugExists(ctx, f.Key.Language, slug)
	if err != nil {
		return err
	}
	if exists {
		return &DuplicateSlugError{Object: obj.DisplayName(), Slug: slug}
	}
	return nil
}
