package importexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/store"
)

// PricePrecision is the number of fractional digits kept for prices.
const PricePrecision = 5

// PriceField maps a column to one cell of an object's price matrix. The
// cell is addressed by the attribute name, see ParsePriceKey.
type PriceField struct {
	BaseField
	Key     domain.PriceKey
	Prices  store.PriceStorer
	Objects store.ObjectSaver
}

var _ Field = (*PriceField)(nil)

func NewPriceField(base BaseField, prices store.PriceStorer, objects store.ObjectSaver) (*PriceField, error) {
	key, err := ParsePriceKey(base.AttributePath)
	if err != nil {
		return nil, err
	}
	return &PriceField{BaseField: base, Key: key, Prices: prices, Objects: objects}, nil
}

func (f *PriceField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	ref := obj.Ref()
	if f.AttributePath == "" || !ref.Saved() {
		return nil, nil
	}
	price, err := f.Prices.GetPrice(ctx, ref, f.Key)
	if errors.Is(err, store.ErrPriceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return price.PriceExcludingTax, nil
}

func (f *PriceField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

// Save upserts the price. An empty cell leaves a stored price untouched.
// The object is persisted first when it has no identity yet.
func (f *PriceField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	amount, ok, err := cleanAmount(&f.BaseField, row)
	if err != nil || !ok {
		return err
	}
	if !obj.Ref().Saved() {
		if err := f.Objects.SaveObject(ctx, obj); err != nil {
			return fmt.Errorf("importexport: saving %q before its price: %w", obj.DisplayName(), err)
		}
	}
	_, _, err = f.Prices.UpsertPrice(ctx, obj.Ref(), f.Key, amount.Round(PricePrecision))
	return err
}

// OldPriceField maps a column to a historical price. Any price level in the
// attribute name is ignored and amounts keep full precision.
type OldPriceField struct {
	BaseField
	Currency  string
	TaxRatio  decimal.Decimal
	OldPrices store.OldPriceStorer
}

var _ Field = (*OldPriceField)(nil)

func NewOldPriceField(base BaseField, oldPrices store.OldPriceStorer) (*OldPriceField, error) {
	key, err := ParsePriceKey(base.AttributePath)
	if err != nil {
		return nil, err
	}
	return &OldPriceField{BaseField: base, Currency: key.Currency, TaxRatio: key.TaxRatio, OldPrices: oldPrices}, nil
}

func (f *OldPriceField) AfterPersist() bool { return true }

func (f *OldPriceField) Value(ctx context.Context, obj domain.Entity) (any, error) {
	ref := obj.Ref()
	if f.AttributePath == "" || !ref.Saved() {
		return nil, nil
	}
	price, err := f.OldPrices.GetOldPrice(ctx, ref, f.Currency, f.TaxRatio)
	if errors.Is(err, store.ErrPriceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return price.PriceExcludingTax, nil
}

func (f *OldPriceField) Export(ctx context.Context, obj domain.Entity) (string, error) {
	return f.render(ctx, obj, f.Value)
}

func (f *OldPriceField) Save(ctx context.Context, obj domain.Entity, row Row) error {
	if f.Readonly {
		return nil
	}
	amount, ok, err := cleanAmount(&f.BaseField, row)
	if err != nil || !ok {
		return err
	}
	_, _, err = f.OldPrices.UpsertOldPrice(ctx, obj.Ref(), f.Currency, f.TaxRatio, amount)
	return err
}

// cleanAmount cleans the field's cell into a decimal. ok is false for empty
// cells.
func cleanAmount(f *BaseField, row Row) (decimal.Decimal, bool, error) {
	value, err := f.Clean(row)
	if err != nil || isEmptyValue(value) {
		return decimal.Decimal{}, false, err
	}
	var amount decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		amount = v
	case float64:
		amount = decimal.NewFromFloat(v)
	case json.Number:
		amount, err = decimal.NewFromString(v.String())
	case int64:
		amount = decimal.NewFromInt(v)
	case int:
		amount = decimal.NewFromInt(int64(v))
	case string:
		amount, err = decimal.NewFromString(strings.TrimSpace(v))
	default:
		err = fmt.Errorf("cannot use %T as a price", value)
	}
	if err != nil {
		return decimal.Decimal{}, false, &WidgetCleanError{Column: f.ColumnName, Err: err}
	}
	return amount, true, nil
}
