package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
)

// --- PriceStorer Implementation ---

func (s *PostgresStore) GetPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey) (*domain.Price, error) {
	query := `
		SELECT p.id, p.price_level_id, p.price_excluding_tax, p.created_at, p.updated_at
		FROM pricing.prices p
		JOIN pricing.currencies c ON c.id = p.currency_id
		JOIN pricing.tax_ratios t ON t.id = p.tax_ratio_id
		WHERE p.content_type = $1 AND p.object_id = $2 AND c.code = $3 AND t.percentage = $4
			AND p.price_level_id IS NOT DISTINCT FROM $5::bigint
		ORDER BY p.id
		LIMIT 1;
	`
	price := domain.Price{Object: obj, Currency: key.Currency, TaxRatio: key.TaxRatio}
	var levelID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query,
		obj.ContentType, obj.ObjectID, key.Currency, key.TaxRatio, key.PriceLevelID,
	).Scan(&price.ID, &levelID, &price.PriceExcludingTax, &price.CreatedAt, &price.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPriceNotFound
		}
		return nil, fmt.Errorf("store: GetPrice failed: %w", err)
	}
	price.PriceLevelID = nullInt64Ptr(levelID)
	return &price, nil
}

func (s *PostgresStore) UpsertPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey, amount decimal.Decimal) (*domain.Price, bool, error) {
	price := &domain.Price{
		Object:            obj,
		Currency:          key.Currency,
		TaxRatio:          key.TaxRatio,
		PriceLevelID:      key.PriceLevelID,
		PriceExcludingTax: amount,
	}
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		currencyID, taxRatioID, err := resolvePriceKey(ctx, tx, obj, key.Currency, key.TaxRatio)
		if err != nil {
			return err
		}
		if key.PriceLevelID != nil {
			var exists bool
			query := "SELECT EXISTS(SELECT 1 FROM pricing.price_levels WHERE id = $1)"
			if err := tx.QueryRowContext(ctx, query, *key.PriceLevelID).Scan(&exists); err != nil {
				return fmt.Errorf("store: UpsertPrice failed to check price level: %w", err)
			}
			if !exists {
				return ErrPriceLevelNotFound
			}
		}

		update := `
		UPDATE pricing.prices
		SET price_excluding_tax = $1, updated_at = CURRENT_TIMESTAMP
		WHERE content_type = $2 AND object_id = $3 AND currency_id = $4 AND tax_ratio_id = $5
			AND price_level_id IS NOT DISTINCT FROM $6::bigint
		RETURNING id, created_at, updated_at;
	`
		err = tx.QueryRowContext(ctx, update,
			amount, obj.ContentType, obj.ObjectID, currencyID, taxRatioID, key.PriceLevelID,
		).Scan(&price.ID, &price.CreatedAt, &price.UpdatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: UpsertPrice failed to update price: %w", err)
		}

		insert := `
		INSERT INTO pricing.prices
			(content_type, object_id, currency_id, tax_ratio_id, price_level_id, price_excluding_tax)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at;
	`
		err = tx.QueryRowContext(ctx, insert,
			obj.ContentType, obj.ObjectID, currencyID, taxRatioID, key.PriceLevelID, amount,
		).Scan(&price.ID, &price.CreatedAt, &price.UpdatedAt)
		if err != nil {
			return fmt.Errorf("store: UpsertPrice failed to insert price: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return price, created, nil
}

// resolvePriceKey looks up the currency and tax ratio rows of a price key.
func resolvePriceKey(ctx context.Context, q queryer, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal) (int64, int64, error) {
	if !obj.Saved() {
		return 0, 0, ErrUnsavedObject
	}
	var currencyID, taxRatioID int64
	err := q.QueryRowContext(ctx, "SELECT id FROM pricing.currencies WHERE code = $1", currency).Scan(&currencyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("%w: %s", ErrCurrencyNotFound, currency)
		}
		return 0, 0, fmt.Errorf("store: failed to look up currency: %w", err)
	}
	err = q.QueryRowContext(ctx, "SELECT id FROM pricing.tax_ratios WHERE percentage = $1", taxRatio).Scan(&taxRatioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("%w: %s", ErrTaxRatioNotFound, taxRatio)
		}
		return 0, 0, fmt.Errorf("store: failed to look up tax ratio: %w", err)
	}
	return currencyID, taxRatioID, nil
}

// --- OldPriceStorer Implementation ---

func (s *PostgresStore) GetOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal) (*domain.OldPrice, error) {
	query := `
		SELECT p.id, p.price_excluding_tax, p.created_at, p.updated_at
		FROM pricing.old_prices p
		JOIN pricing.currencies c ON c.id = p.currency_id
		JOIN pricing.tax_ratios t ON t.id = p.tax_ratio_id
		WHERE p.content_type = $1 AND p.object_id = $2 AND c.code = $3 AND t.percentage = $4
		ORDER BY p.id
		LIMIT 1;
	`
	price := domain.OldPrice{Object: obj, Currency: currency, TaxRatio: taxRatio}
	err := s.db.QueryRowContext(ctx, query, obj.ContentType, obj.ObjectID, currency, taxRatio).
		Scan(&price.ID, &price.PriceExcludingTax, &price.CreatedAt, &price.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPriceNotFound
		}
		return nil, fmt.Errorf("store: GetOldPrice failed: %w", err)
	}
	return &price, nil
}

func (s *PostgresStore) UpsertOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal, amount decimal.Decimal) (*domain.OldPrice, bool, error) {
	price := &domain.OldPrice{Object: obj, Currency: currency, TaxRatio: taxRatio, PriceExcludingTax: amount}
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		currencyID, taxRatioID, err := resolvePriceKey(ctx, tx, obj, currency, taxRatio)
		if err != nil {
			return err
		}
		update := `
		UPDATE pricing.old_prices
		SET price_excluding_tax = $1, updated_at = CURRENT_TIMESTAMP
		WHERE content_type = $2 AND object_id = $3 AND currency_id = $4 AND tax_ratio_id = $5
		RETURNING id, created_at, updated_at;
	`
		err = tx.QueryRowContext(ctx, update, amount, obj.ContentType, obj.ObjectID, currencyID, taxRatioID).
			Scan(&price.ID, &price.CreatedAt, &price.UpdatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: UpsertOldPrice failed to update price: %w", err)
		}
		insert := `
		INSERT INTO pricing.old_prices (content_type, object_id, currency_id, tax_ratio_id, price_excluding_tax)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at;
	`
		err = tx.QueryRowContext(ctx, insert, obj.ContentType, obj.ObjectID, currencyID, taxRatioID, amount).
			Scan(&price.ID, &price.CreatedAt, &price.UpdatedAt)
		if err != nil {
			return fmt.Errorf("store: UpsertOldPrice failed to insert price: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return price, created, nil
}
