package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog-importer/internal/domain"
)

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewPostgresStore(db)
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

func PtrTo[T any](v T) *T {
	return &v
}

var productColumns = []string{
	"id", "parent_id", "path", "depth", "numchild", "product_class_id", "category_id",
	"sku", "is_parent", "is_active", "tags", "created_at", "updated_at",
	"c_id", "c_name", "c_description", "c_parent_category_id", "c_created_at", "c_updated_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS catalog;")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveProduct_Insert(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	product := &domain.Product{
		ProductClassID: 3,
		SKU:            "SKU-1",
		IsActive:       true,
		Translations: map[string]*domain.ProductTranslation{
			"en": {LanguageCode: "en", Name: "Chair", Slug: "chair"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO catalog.products")).
		WithArgs(nil, "", 0, 0, int64(3), nil, "SKU-1", false, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO catalog.product_translations")).
		WithArgs(int64(10), "en", "Chair", "chair", "", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectCommit()

	err := store.SaveProduct(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, int64(10), product.ID)
	assert.Equal(t, int64(100), product.Translations["en"].ID)
	assert.Equal(t, int64(10), product.Translations["en"].MasterID)
	assert.WithinDuration(t, now, product.CreatedAt, time.Second)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveProduct_SKUExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	product := &domain.Product{SKU: "SKU-1"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO catalog.products")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})
	mock.ExpectRollback()

	err := store.SaveProduct(context.Background(), product)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProductSKUExists)
	assert.Zero(t, product.ID)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveTranslation_SlugExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	product := &domain.Product{ID: 4}
	tr := &domain.ProductTranslation{LanguageCode: "en", Slug: "chair"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO catalog.product_translations")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "product_translations_slug_key"})

	err := store.SaveTranslation(context.Background(), product, tr)

	assert.ErrorIs(t, err, ErrSlugExists)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveTranslation_UnsavedOwner(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	err := store.SaveTranslation(context.Background(), &domain.Product{}, &domain.ProductTranslation{LanguageCode: "en"})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_GetProductByID_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	rows := sqlmock.NewRows(productColumns).AddRow(
		int64(7), int64(1), "00010001", 2, 0, int64(3), int64(5),
		"SKU-7", false, true, []byte("{red,blue}"), now, now,
		int64(5), "Chairs", nil, nil, now, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog.products p")).WithArgs(int64(7)).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog.product_translations")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "master_id", "language_code", "name", "slug", "description", "meta_title"}).
			AddRow(int64(70), int64(7), "en", "Chair", "chair", "", "Buy a chair"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog.carousel_images")).
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "image"}).
			AddRow(int64(7), "a.jpg").
			AddRow(int64(7), "b.jpg"))

	product, err := store.GetProductByID(context.Background(), 7)

	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, int64(7), product.ID)
	assert.Equal(t, PtrTo(int64(1)), product.ParentID)
	assert.Equal(t, "00010001", product.Path)
	assert.Equal(t, []string{"red", "blue"}, product.Tags.Values())
	require.NotNil(t, product.Category)
	assert.Equal(t, "Chairs", product.Category.Name)
	assert.Nil(t, product.Category.Description)
	require.Contains(t, product.Translations, "en")
	assert.Equal(t, "chair", product.Translations["en"].Slug)
	assert.Equal(t, PtrTo("Buy a chair"), product.Translations["en"].MetaTitle)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, product.CarouselImages)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog.products p")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(productColumns))

	product, err := store.GetProductByID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, product)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_FindProducts_UnsupportedFilter(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	_, err := store.FindProducts(context.Background(), Filter{"color": "red"})

	assert.ErrorIs(t, err, ErrUnsupportedFilter)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_FindProductsIn_NoValues(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	products, err := store.FindProductsIn(context.Background(), "id", []any{nil})

	require.NoError(t, err)
	assert.Empty(t, products)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_UpsertPrice_Creates(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	obj := domain.ObjectRef{ContentType: domain.ContentTypeProduct, ObjectID: 4}
	key := domain.PriceKey{Currency: "EUR", TaxRatio: decimal.NewFromInt(21)}
	amount := decimal.RequireFromString("10.5")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM pricing.currencies WHERE code = $1")).
		WithArgs("EUR").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM pricing.tax_ratios WHERE percentage = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE pricing.prices")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pricing.prices")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(30), now, now))
	mock.ExpectCommit()

	price, created, err := store.UpsertPrice(context.Background(), obj, key, amount)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(30), price.ID)
	assert.True(t, amount.Equal(price.PriceExcludingTax))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_UpsertPrice_UnknownCurrency(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	obj := domain.ObjectRef{ContentType: domain.ContentTypeProduct, ObjectID: 4}
	key := domain.PriceKey{Currency: "XXX", TaxRatio: decimal.NewFromInt(21)}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM pricing.currencies WHERE code = $1")).
		WithArgs("XXX").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	price, created, err := store.UpsertPrice(context.Background(), obj, key, decimal.NewFromInt(1))

	assert.ErrorIs(t, err, ErrCurrencyNotFound)
	assert.False(t, created)
	assert.Nil(t, price)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_GetOldPrice_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	obj := domain.ObjectRef{ContentType: domain.ContentTypeProduct, ObjectID: 4}
	mock.ExpectQuery(regexp.QuoteMeta("FROM pricing.old_prices p")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price_excluding_tax", "created_at", "updated_at"}))

	price, err := store.GetOldPrice(context.Background(), obj, "EUR", decimal.NewFromInt(21))

	assert.ErrorIs(t, err, ErrPriceNotFound)
	assert.Nil(t, price)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_Move_StaleIndex(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	lock := regexp.QuoteMeta("SELECT id, parent_id, path, depth, numchild FROM catalog.products WHERE id = $1 FOR UPDATE")
	children := regexp.QuoteMeta("SELECT path FROM catalog.products WHERE parent_id = $1")
	nodeCols := []string{"id", "parent_id", "path", "depth", "numchild"}

	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(nodeCols).AddRow(int64(2), nil, "0002", 1, 0))
	mock.ExpectQuery(lock).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(nodeCols).AddRow(int64(1), nil, "0001", 1, 1))
	mock.ExpectQuery(children).WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows([]string{"path"}))
	// numchild says 1 but no child row exists.
	mock.ExpectQuery(children).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows([]string{"path"}))
	mock.ExpectRollback()

	err := store.Move(context.Background(), &domain.Product{ID: 2}, &domain.Product{ID: 1})

	assert.ErrorIs(t, err, ErrStaleTreeIndex)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_FixTree(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog.products ORDER BY id FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id", "path", "depth", "numchild"}).
			AddRow(int64(1), nil, "0001", 1, 0).
			AddRow(int64(2), int64(1), "0005", 1, 0))
	update := regexp.QuoteMeta("UPDATE catalog.products SET path = $1, depth = $2, numchild = $3 WHERE id = $4")
	mock.ExpectExec(update).WithArgs("0001", 1, 1, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs("00010001", 2, 0, int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.FixTree(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_AddCarouselImage_Unsaved(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	img, err := store.AddCarouselImage(context.Background(), domain.ObjectRef{ContentType: domain.ContentTypeProduct}, "a.jpg")

	assert.ErrorIs(t, err, ErrUnsavedObject)
	assert.Nil(t, img)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}
