package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product-catalog-importer/internal/domain"
)

// --- AttributeStorer Implementation ---

func (s *PostgresStore) GetOptionGroup(ctx context.Context, id int64, active bool) (*domain.AttributeOptionGroup, error) {
	var g domain.AttributeOptionGroup
	query := "SELECT id, name, is_active FROM catalog.attribute_option_groups WHERE id = $1 AND is_active = $2"
	err := s.db.QueryRowContext(ctx, query, id, active).Scan(&g.ID, &g.Name, &g.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOptionGroupNotFound
		}
		return nil, fmt.Errorf("store: GetOptionGroup failed: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) GetOrCreateOption(ctx context.Context, productClassID, groupID int64, name string) (*domain.AttributeOption, bool, error) {
	o := &domain.AttributeOption{ProductClassID: productClassID, GroupID: groupID, Name: name}
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		SELECT id FROM catalog.attribute_options
		WHERE product_class_id = $1 AND group_id = $2 AND name = $3
		ORDER BY id
		LIMIT 1;
	`
		err := tx.QueryRowContext(ctx, query, productClassID, groupID, name).Scan(&o.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: GetOrCreateOption failed to query option: %w", err)
		}
		insert := "INSERT INTO catalog.attribute_options (product_class_id, group_id, name) VALUES ($1, $2, $3) RETURNING id"
		if err := tx.QueryRowContext(ctx, insert, productClassID, groupID, name).Scan(&o.ID); err != nil {
			return fmt.Errorf("store: GetOrCreateOption failed to insert option: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return o, created, nil
}

func (s *PostgresStore) UpsertOptionValue(ctx context.Context, productID, groupID, optionID int64) (*domain.AttributeOptionGroupValue, bool, error) {
	if productID == 0 {
		return nil, false, ErrUnsavedObject
	}
	v := &domain.AttributeOptionGroupValue{ProductID: productID, GroupID: groupID, OptionID: optionID}
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		update := `
		UPDATE catalog.attribute_option_group_values
		SET option_id = $1
		WHERE id = (
			SELECT id FROM catalog.attribute_option_group_values
			WHERE product_id = $2 AND group_id = $3
			ORDER BY id
			LIMIT 1
		)
		RETURNING id;
	`
		err := tx.QueryRowContext(ctx, update, optionID, productID, groupID).Scan(&v.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: UpsertOptionValue failed to update value: %w", err)
		}
		insert := "INSERT INTO catalog.attribute_option_group_values (product_id, group_id, option_id) VALUES ($1, $2, $3) RETURNING id"
		if err := tx.QueryRowContext(ctx, insert, productID, groupID, optionID).Scan(&v.ID); err != nil {
			return fmt.Errorf("store: UpsertOptionValue failed to insert value: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, created, nil
}

func (s *PostgresStore) OptionValues(ctx context.Context, productID, groupID int64) ([]domain.AttributeOptionGroupValue, error) {
	query := `
		SELECT v.id, v.product_id, v.group_id, v.option_id, o.product_class_id, o.name
		FROM catalog.attribute_option_group_values v
		JOIN catalog.attribute_options o ON o.id = v.option_id
		WHERE v.product_id = $1 AND v.group_id = $2
		ORDER BY v.id;
	`
	rows, err := s.db.QueryContext(ctx, query, productID, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: OptionValues failed to query: %w", err)
	}
	defer rows.Close()

	var values []domain.AttributeOptionGroupValue
	for rows.Next() {
		var (
			v domain.AttributeOptionGroupValue
			o domain.AttributeOption
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.GroupID, &v.OptionID, &o.ProductClassID, &o.Name); err != nil {
			return nil, fmt.Errorf("store: OptionValues failed to scan row: %w", err)
		}
		o.ID, o.GroupID = v.OptionID, v.GroupID
		v.Option = &o
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: OptionValues iteration error: %w", err)
	}
	return values, nil
}

// --- CarouselStorer Implementation ---

func (s *PostgresStore) CarouselImages(ctx context.Context, obj domain.ObjectRef) ([]domain.CarouselImage, error) {
	query := `
		SELECT id, image, position
		FROM catalog.carousel_images
		WHERE content_type = $1 AND object_id = $2
		ORDER BY position, id;
	`
	rows, err := s.db.QueryContext(ctx, query, obj.ContentType, obj.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("store: CarouselImages failed to query: %w", err)
	}
	defer rows.Close()

	var images []domain.CarouselImage
	for rows.Next() {
		img := domain.CarouselImage{Object: obj}
		if err := rows.Scan(&img.ID, &img.Image, &img.Position); err != nil {
			return nil, fmt.Errorf("store: CarouselImages failed to scan row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: CarouselImages iteration error: %w", err)
	}
	return images, nil
}

func (s *PostgresStore) ClearCarouselImages(ctx context.Context, obj domain.ObjectRef) error {
	query := "DELETE FROM catalog.carousel_images WHERE content_type = $1 AND object_id = $2"
	if _, err := s.db.ExecContext(ctx, query, obj.ContentType, obj.ObjectID); err != nil {
		return fmt.Errorf("store: ClearCarouselImages failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddCarouselImage(ctx context.Context, obj domain.ObjectRef, image string) (*domain.CarouselImage, error) {
	if !obj.Saved() {
		return nil, ErrUnsavedObject
	}
	img := &domain.CarouselImage{Object: obj, Image: image}
	query := `
		INSERT INTO catalog.carousel_images (content_type, object_id, image, position)
		VALUES ($1, $2, $3, (
			SELECT COALESCE(MAX(position) + 1, 0) FROM catalog.carousel_images
			WHERE content_type = $1 AND object_id = $2
		))
		RETURNING id, position;
	`
	if err := s.db.QueryRowContext(ctx, query, obj.ContentType, obj.ObjectID, image).Scan(&img.ID, &img.Position); err != nil {
		return nil, fmt.Errorf("store: AddCarouselImage failed: %w", err)
	}
	return img, nil
}
