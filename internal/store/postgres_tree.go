package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"product-catalog-importer/internal/domain"
)

// --- TreeStorer Implementation ---

type nodeRow struct {
	ID       int64
	ParentID *int64
	Path     string
	Depth    int
	NumChild int
}

func lockNode(ctx context.Context, q queryer, id int64) (nodeRow, error) {
	var (
		n        nodeRow
		parentID sql.NullInt64
	)
	query := "SELECT id, parent_id, path, depth, numchild FROM catalog.products WHERE id = $1 FOR UPDATE"
	err := q.QueryRowContext(ctx, query, id).Scan(&n.ID, &parentID, &n.Path, &n.Depth, &n.NumChild)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nodeRow{}, ErrProductNotFound
		}
		return nodeRow{}, fmt.Errorf("store: failed to lock tree node %d: %w", id, err)
	}
	n.ParentID = nullInt64Ptr(parentID)
	return n, nil
}

func childPaths(ctx context.Context, q queryer, parentID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT path FROM catalog.products WHERE parent_id = $1", parentID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query children of %d: %w", parentID, err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: failed to scan child path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: child path iteration error: %w", err)
	}
	return paths, nil
}

// nextChildPath returns the path of a new last child below parent.
func nextChildPath(ctx context.Context, q queryer, parent nodeRow) (string, error) {
	paths, err := childPaths(ctx, q, parent.ID)
	if err != nil {
		return "", err
	}
	last := 0
	for _, p := range paths {
		if parentPath(p) == parent.Path && lastStep(p) > last {
			last = lastStep(p)
		}
	}
	return parent.Path + pathStep(last+1), nil
}

// indexConsistent checks that the materialized path of n agrees with its
// parent link and that numchild matches the real number of children.
func indexConsistent(ctx context.Context, q queryer, n nodeRow) (bool, error) {
	paths, err := childPaths(ctx, q, n.ID)
	if err != nil {
		return false, err
	}
	if len(paths) != n.NumChild {
		return false, nil
	}
	if n.ParentID == nil {
		return pathDepth(n.Path) == 1, nil
	}
	parent, err := lockNode(ctx, q, *n.ParentID)
	if errors.Is(err, ErrProductNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return parentPath(n.Path) == parent.Path && n.Depth == parent.Depth+1, nil
}

// claimProduct prepares a product for placement. It reports whether the
// product already has a row; a transient id with no row is cleared.
func claimProduct(ctx context.Context, q queryer, product *domain.Product) (nodeRow, bool, error) {
	if product.ID == 0 {
		return nodeRow{}, false, nil
	}
	n, err := lockNode(ctx, q, product.ID)
	if errors.Is(err, ErrProductNotFound) {
		product.ID = 0
		return nodeRow{}, false, nil
	}
	if err != nil {
		return nodeRow{}, false, err
	}
	return n, true, nil
}

func (s *PostgresStore) placeProduct(ctx context.Context, q queryer, product *domain.Product, saved bool, parentID *int64, path string) error {
	product.ParentID, product.Path, product.Depth = parentID, path, pathDepth(path)
	if !saved {
		product.NumChild = 0
		return s.saveProduct(ctx, q, product)
	}
	query := "UPDATE catalog.products SET parent_id = $1, path = $2, depth = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4"
	if _, err := q.ExecContext(ctx, query, parentID, path, product.Depth, product.ID); err != nil {
		return fmt.Errorf("store: failed to place product %d: %w", product.ID, err)
	}
	return nil
}

func (s *PostgresStore) ParentOf(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == 0 {
		return nil, nil
	}
	where := "p.id = (SELECT parent_id FROM catalog.products WHERE id = $1)"
	products, err := s.queryProducts(ctx, s.db, where, "p.id", product.ID)
	if err != nil {
		return nil, fmt.Errorf("store: ParentOf failed: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}
	return products[0], nil
}

func (s *PostgresStore) ChildrenOf(ctx context.Context, parent *domain.Product) ([]*domain.Product, error) {
	if parent.ID == 0 {
		return nil, nil
	}
	products, err := s.queryProducts(ctx, s.db, "p.parent_id = $1", "p.path, p.id", parent.ID)
	if err != nil {
		return nil, fmt.Errorf("store: ChildrenOf failed: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) AddRoot(ctx context.Context, product *domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, saved, err := claimProduct(ctx, tx, product)
		if err != nil {
			return err
		}
		if saved && n.Path != "" {
			return ErrAlreadyInTree
		}
		var lastRoot string
		query := "SELECT COALESCE(MAX(path), '') FROM catalog.products WHERE depth = 1"
		if err := tx.QueryRowContext(ctx, query).Scan(&lastRoot); err != nil {
			return fmt.Errorf("store: AddRoot failed to find last root: %w", err)
		}
		return s.placeProduct(ctx, tx, product, saved, nil, pathStep(lastStep(lastRoot)+1))
	})
}

func (s *PostgresStore) AddChild(ctx context.Context, parent, product *domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := lockNode(ctx, tx, parent.ID)
		if err != nil {
			return err
		}
		if p.Path == "" {
			return ErrNotInTree
		}
		n, saved, err := claimProduct(ctx, tx, product)
		if err != nil {
			return err
		}
		if saved && (n.Path != "" || n.ParentID != nil) {
			return ErrAlreadyInTree
		}
		path, err := nextChildPath(ctx, tx, p)
		if err != nil {
			return err
		}
		parentID := p.ID
		if err := s.placeProduct(ctx, tx, product, saved, &parentID, path); err != nil {
			return err
		}
		query := "UPDATE catalog.products SET numchild = numchild + 1 WHERE id = $1 RETURNING numchild"
		if err := tx.QueryRowContext(ctx, query, p.ID).Scan(&parent.NumChild); err != nil {
			return fmt.Errorf("store: AddChild failed to update numchild: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Move(ctx context.Context, product, target *domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		node, err := lockNode(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		dest, err := lockNode(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if node.Path == "" || dest.Path == "" {
			return ErrNotInTree
		}
		if dest.ID == node.ID || strings.HasPrefix(dest.Path, node.Path) {
			return ErrInvalidMove
		}
		check := []nodeRow{node, dest}
		if node.ParentID != nil {
			oldParent, err := lockNode(ctx, tx, *node.ParentID)
			if err != nil && !errors.Is(err, ErrProductNotFound) {
				return err
			}
			if err == nil {
				check = append(check, oldParent)
			}
		}
		for _, n := range check {
			ok, err := indexConsistent(ctx, tx, n)
			if err != nil {
				return err
			}
			if !ok {
				return ErrStaleTreeIndex
			}
		}

		newPath, err := nextChildPath(ctx, tx, dest)
		if err != nil {
			return err
		}
		if node.ParentID != nil {
			query := "UPDATE catalog.products SET numchild = numchild - 1 WHERE id = $1"
			if _, err := tx.ExecContext(ctx, query, *node.ParentID); err != nil {
				return fmt.Errorf("store: Move failed to update old parent: %w", err)
			}
		}
		query := `
		UPDATE catalog.products
		SET path = $1 || substr(path, $2), depth = depth + $3
		WHERE path LIKE $4;
	`
		shift := pathDepth(newPath) - node.Depth
		if _, err := tx.ExecContext(ctx, query, newPath, len(node.Path)+1, shift, node.Path+"%"); err != nil {
			return fmt.Errorf("store: Move failed to rewrite subtree: %w", err)
		}
		query = "UPDATE catalog.products SET parent_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2"
		if _, err := tx.ExecContext(ctx, query, dest.ID, node.ID); err != nil {
			return fmt.Errorf("store: Move failed to update parent link: %w", err)
		}
		query = "UPDATE catalog.products SET numchild = numchild + 1 WHERE id = $1 RETURNING numchild"
		if err := tx.QueryRowContext(ctx, query, dest.ID).Scan(&target.NumChild); err != nil {
			return fmt.Errorf("store: Move failed to update numchild: %w", err)
		}

		destID := dest.ID
		product.ParentID = &destID
		product.Path, product.Depth = newPath, pathDepth(newPath)
		return nil
	})
}

func (s *PostgresStore) FixTree(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id, parent_id, path, depth, numchild FROM catalog.products ORDER BY id FOR UPDATE")
		if err != nil {
			return fmt.Errorf("store: FixTree failed to query nodes: %w", err)
		}
		var current []nodeRow
		for rows.Next() {
			var (
				n        nodeRow
				parentID sql.NullInt64
			)
			if err := rows.Scan(&n.ID, &parentID, &n.Path, &n.Depth, &n.NumChild); err != nil {
				rows.Close()
				return fmt.Errorf("store: FixTree failed to scan node: %w", err)
			}
			n.ParentID = nullInt64Ptr(parentID)
			current = append(current, n)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("store: FixTree node iteration error: %w", err)
		}
		rows.Close()

		nodes := make([]treeNode, 0, len(current))
		for _, n := range current {
			nodes = append(nodes, treeNode{ID: n.ID, ParentID: n.ParentID, Path: n.Path})
		}
		index := rebuildIndex(nodes)
		for _, n := range current {
			pl, ok := index[n.ID]
			if !ok || (pl.Path == n.Path && pl.Depth == n.Depth && pl.NumChild == n.NumChild) {
				continue
			}
			query := "UPDATE catalog.products SET path = $1, depth = $2, numchild = $3 WHERE id = $4"
			if _, err := tx.ExecContext(ctx, query, pl.Path, pl.Depth, pl.NumChild, n.ID); err != nil {
				return fmt.Errorf("store: FixTree failed to update node %d: %w", n.ID, err)
			}
		}
		return nil
	})
}
