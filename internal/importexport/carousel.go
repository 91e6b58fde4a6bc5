package importexport

import (
	"context"
	"fmt"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// CarouselImageField replaces an object's carousel with the images listed
// in its cell. Values are read from the carousel store, so any saved object
// with a carousel can be exported.
type CarouselImageField struct {
	BaseField
	Images store.CarouselStorer
}

var _ Field = (*CarouselImageField)(nil)

func NewCarouselImageField(base BaseField, images store.CarouselStorer) *CarouselImageField {
	return &CarouselImageField{BaseField: base, Images: images}
}

func (f *CarouselImageField) AfterPersist() bool { return true }

// Value returns the image names in carousel order. Unsaved objects have none.
func (f *CarouselImageField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	if f.AttributePath == "" || !obj.Ref().Saved() {
		return nil, nil
	}
	images, err := f.Images.CarouselImages(ctx, obj.Ref())
	if err != nil {
		return nil, err
	}
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.Image
	}
	return names, nil
}

func (f *CarouselImageField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

func (f *CarouselImageField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	value, err := f.Clean(row)
	if err != nil {
		return err
	}
	images, err := toItems(value)
	if err != nil {
		return &WidgetCleanError{Column: f.ColumnName, Err: err}
	}

	ref := obj.Ref()
	if err := f.Images.ClearCarouselImages(ctx, ref); err != nil {
		return err
	}
	for _, image := range images {
		if _, err := f.Images.AddCarouselImage(ctx, ref, fmt.Sprint(image)); err != nil {
			return err
		}
	}
	return nil
}
