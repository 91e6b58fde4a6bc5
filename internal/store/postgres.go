package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lib/pq"

	"product-catalog-importer/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the catalog and pricing tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: Migrate failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return nil
}

// mapUniqueViolation turns known unique constraint violations into
// sentinel errors.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "products_sku_key") || strings.Contains(pqErr.Detail, "Key (sku)"):
			return ErrProductSKUExists
		case strings.Contains(pqErr.Constraint, "product_translations_slug_key"):
			return ErrSlugExists
		}
	}
	return nil
}

// --- ProductStorer Implementation ---

const productSelect = `
		SELECT p.id, p.parent_id, p.path, p.depth, p.numchild, p.product_class_id, p.category_id,
			COALESCE(p.sku, ''), p.is_parent, p.is_active, p.tags, p.created_at, p.updated_at,
			c.id, c.name, c.description, c.parent_category_id, c.created_at, c.updated_at
		FROM catalog.products p
		LEFT JOIN catalog.categories c ON c.id = p.category_id`

// filterColumns maps filterable attribute names to their columns.
var filterColumns = map[string]string{
	"id":               "p.id",
	"sku":              "p.sku",
	"product_class_id": "p.product_class_id",
	"category_id":      "p.category_id",
	"is_active":        "p.is_active",
	"is_parent":        "p.is_parent",
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p                      domain.Product
		parentID, categoryID   sql.NullInt64
		tags                   pq.StringArray
		catID, catParentID     sql.NullInt64
		catName, catDesc       sql.NullString
		catCreated, catUpdated sql.NullTime
	)
	err := row.Scan(
		&p.ID, &parentID, &p.Path, &p.Depth, &p.NumChild, &p.ProductClassID, &categoryID,
		&p.SKU, &p.IsParent, &p.IsActive, &tags, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catDesc, &catParentID, &catCreated, &catUpdated,
	)
	if err != nil {
		return nil, err
	}
	p.ParentID = nullInt64Ptr(parentID)
	p.CategoryID = nullInt64Ptr(categoryID)
	p.Tags = domain.NewTagSet(tags...)
	if catID.Valid {
		p.Category = &domain.Category{
			ID:               catID.Int64,
			Name:             catName.String,
			ParentCategoryID: nullInt64Ptr(catParentID),
			CreatedAt:        catCreated.Time,
			UpdatedAt:        catUpdated.Time,
		}
		if catDesc.Valid {
			desc := catDesc.String
			p.Category.Description = &desc
		}
	}
	return &p, nil
}

func (s *PostgresStore) queryProducts(ctx context.Context, q queryer, where, orderBy string, args ...any) ([]*domain.Product, error) {
	query := productSelect + "\n\t\tWHERE " + where + "\n\t\tORDER BY " + orderBy + ";"
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: product iteration error: %w", err)
	}
	if err := s.loadRelations(ctx, q, products); err != nil {
		return nil, err
	}
	return products, nil
}

// loadRelations fills translations and carousel images of products with
// one query each.
func (s *PostgresStore) loadRelations(ctx context.Context, q queryer, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Product, len(products))
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, master_id, language_code, name, slug, description, meta_title
		FROM catalog.product_translations
		WHERE master_id = ANY($1);
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("store: failed to query translations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t         domain.ProductTranslation
			metaTitle sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.MasterID, &t.LanguageCode, &t.Name, &t.Slug, &t.Description, &metaTitle); err != nil {
			return fmt.Errorf("store: failed to scan translation row: %w", err)
		}
		if metaTitle.Valid {
			mt := metaTitle.String
			t.MetaTitle = &mt
		}
		p := byID[t.MasterID]
		if p.Translations == nil {
			p.Translations = make(map[string]*domain.ProductTranslation)
		}
		p.Translations[t.LanguageCode] = &t
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: translation iteration error: %w", err)
	}

	imgRows, err := q.QueryContext(ctx, `
		SELECT object_id, image
		FROM catalog.carousel_images
		WHERE content_type = $1 AND object_id = ANY($2)
		ORDER BY object_id, position, id;
	`, domain.ContentTypeProduct, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("store: failed to query carousel images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var (
			objectID int64
			image    string
		)
		if err := imgRows.Scan(&objectID, &image); err != nil {
			return fmt.Errorf("store: failed to scan carousel image row: %w", err)
		}
		byID[objectID].CarouselImages = append(byID[objectID].CarouselImages, image)
	}
	if err := imgRows.Err(); err != nil {
		return fmt.Errorf("store: carousel image iteration error: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := s.queryProducts(ctx, s.db, "p.id = $1", "p.id", id)
	if err != nil {
		return nil, fmt.Errorf("store: GetProductByID failed: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return products[0], nil
}

func (s *PostgresStore) GetProductBySlug(ctx context.Context, lang, slug string) (*domain.Product, error) {
	where := `p.id = (
			SELECT master_id FROM catalog.product_translations
			WHERE language_code = $1 AND slug = $2
			ORDER BY master_id LIMIT 1
		)`
	products, err := s.queryProducts(ctx, s.db, where, "p.id", lang, slug)
	if err != nil {
		return nil, fmt.Errorf("store: GetProductBySlug failed: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return products[0], nil
}

func (s *PostgresStore) SlugExists(ctx context.Context, lang, slug string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM catalog.product_translations WHERE language_code = $1 AND slug = $2)"
	if err := s.db.QueryRowContext(ctx, query, lang, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: SlugExists failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindProducts(ctx context.Context, filter Filter) ([]*domain.Product, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	whereClauses := []string{"TRUE"}
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		col, ok := filterColumns[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, k)
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, filter[k])
	}
	products, err := s.queryProducts(ctx, s.db, strings.Join(whereClauses, " AND "), "p.id", args...)
	if err != nil {
		return nil, fmt.Errorf("store: FindProducts failed: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) FindProductsIn(ctx context.Context, attribute string, values []any) ([]*domain.Product, error) {
	col, ok := filterColumns[attribute]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, attribute)
	}
	wanted := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		if v != nil {
			wanted = append(wanted, fmt.Sprint(v))
		}
	}
	if len(wanted) == 0 {
		return []*domain.Product{}, nil
	}
	products, err := s.queryProducts(ctx, s.db, col+"::text = ANY($1)", "p.id", wanted)
	if err != nil {
		return nil, fmt.Errorf("store: FindProductsIn failed: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]*domain.Product, int, error) {
	whereCondition := "TRUE"
	var queryArgs []any
	if params.IsActive != nil {
		whereCondition = "p.is_active = $1"
		queryArgs = append(queryArgs, *params.IsActive)
	}

	countQuery := "SELECT COUNT(*) FROM catalog.products p WHERE " + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Product{}, 0, nil
	}

	limit := "ALL"
	if params.Limit > 0 {
		limit = fmt.Sprint(params.Limit)
	}
	orderBy := fmt.Sprintf("p.id LIMIT %s OFFSET %d", limit, params.Offset)
	products, err := s.queryProducts(ctx, s.db, whereCondition, orderBy, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed: %w", err)
	}
	return products, totalCount, nil
}

func (s *PostgresStore) SaveProduct(ctx context.Context, product *domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveProduct(ctx, tx, product)
	})
}

func (s *PostgresStore) saveProduct(ctx context.Context, q queryer, product *domain.Product) error {
	var err error
	if product.ID == 0 {
		err = insertProduct(ctx, q, product)
	} else {
		err = updateProduct(ctx, q, product)
	}
	if err != nil {
		return err
	}
	for _, lang := range product.Languages() {
		if err := upsertTranslation(ctx, q, product.ID, product.Translations[lang]); err != nil {
			return err
		}
	}
	return nil
}

func insertProduct(ctx context.Context, q queryer, product *domain.Product) error {
	query := `
		INSERT INTO catalog.products
			(parent_id, path, depth, numchild, product_class_id, category_id, sku, is_parent, is_active, tags)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING id, created_at, updated_at;
	`
	err := q.QueryRowContext(ctx, query,
		product.ParentID, product.Path, product.Depth, product.NumChild, product.ProductClassID,
		product.CategoryID, product.SKU, product.IsParent, product.IsActive, pq.Array(product.Tags.Values()),
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("store: insertProduct failed to scan row: %w", err)
	}
	return nil
}

func updateProduct(ctx context.Context, q queryer, product *domain.Product) error {
	query := `
		UPDATE catalog.products
		SET product_class_id = $1, category_id = $2, sku = NULLIF($3, ''), is_parent = $4,
			is_active = $5, tags = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING updated_at;
	`
	err := q.QueryRowContext(ctx, query,
		product.ProductClassID, product.CategoryID, product.SKU, product.IsParent,
		product.IsActive, pq.Array(product.Tags.Values()), product.ID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("store: updateProduct failed to scan row: %w", err)
	}
	return nil
}

func upsertTranslation(ctx context.Context, q queryer, masterID int64, t *domain.ProductTranslation) error {
	query := `
		INSERT INTO catalog.product_translations (master_id, language_code, name, slug, description, meta_title)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (master_id, language_code) DO UPDATE
		SET name = EXCLUDED.name, slug = EXCLUDED.slug,
			description = EXCLUDED.description, meta_title = EXCLUDED.meta_title
		RETURNING id;
	`
	err := q.QueryRowContext(ctx, query,
		masterID, t.LanguageCode, t.Name, t.Slug, t.Description, t.MetaTitle,
	).Scan(&t.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return fmt.Errorf("%w: %s/%s", mapped, t.LanguageCode, t.Slug)
		}
		return fmt.Errorf("store: upsertTranslation failed to scan row: %w", err)
	}
	t.MasterID = masterID
	return nil
}

// --- ObjectSaver / TranslationSaver Implementation ---

func (s *PostgresStore) SaveObject(ctx context.Context, obj domain.Entity) error {
	switch o := obj.(type) {
	case *domain.Product:
		return s.SaveProduct(ctx, o)
	case *domain.Category:
		return s.saveCategory(ctx, o)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
	}
}

func (s *PostgresStore) saveCategory(ctx context.Context, category *domain.Category) error {
	var row *sql.Row
	if category.ID == 0 {
		row = s.db.QueryRowContext(ctx, `
		INSERT INTO catalog.categories (name, description, parent_category_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
	`, category.Name, category.Description, category.ParentCategoryID)
	} else {
		row = s.db.QueryRowContext(ctx, `
		UPDATE catalog.categories
		SET name = $1, description = $2, parent_category_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING id, created_at, updated_at;
	`, category.Name, category.Description, category.ParentCategoryID, category.ID)
	}
	if err := row.Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt); err != nil {
		return fmt.Errorf("store: saveCategory failed to scan row: %w", err)
	}
	return nil
}

// SaveTranslation writes the satellite right away when its product is
// saved; satellites of unsaved products are written by SaveProduct.
func (s *PostgresStore) SaveTranslation(ctx context.Context, owner domain.Entity, satellite domain.Satellite) error {
	p, ok := owner.(*domain.Product)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, owner)
	}
	t, ok := satellite.(*domain.ProductTranslation)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, satellite)
	}
	if p.ID == 0 {
		return nil
	}
	return upsertTranslation(ctx, s.db, p.ID, t)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		slog.Info("closing database connection pool")
		if err := s.db.Close(); err != nil {
			slog.Error("failed to close database connection pool", "error", err)
			return err
		}
		slog.Info("database connection pool closed")
	}
	return nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
