package store

import "errors"

// Predefined errors for store operations
var (
	ErrProductNotFound     = errors.New("store: product not found")
	ErrMultipleProducts    = errors.New("store: more than one product matches")
	ErrProductSKUExists    = errors.New("store: product SKU already exists")
	ErrSlugExists          = errors.New("store: slug already exists for language")
	ErrPriceNotFound       = errors.New("store: price not found")
	ErrCurrencyNotFound    = errors.New("store: currency not found")
	ErrTaxRatioNotFound    = errors.New("store: tax ratio not found")
	ErrPriceLevelNotFound  = errors.New("store: price level not found")
	ErrOptionGroupNotFound = errors.New("store: attribute option group not found")
	ErrUnsupportedFilter   = errors.New("store: unsupported filter attribute")
	ErrUnsupportedObject   = errors.New("store: unsupported object type")
	ErrUnsavedObject       = errors.New("store: object has not been saved")
	ErrStaleTreeIndex      = errors.New("store: tree index is stale")
	ErrAlreadyInTree       = errors.New("store: product is already placed in the tree")
	ErrNotInTree           = errors.New("store: product is not placed in the tree")
	ErrInvalidMove         = errors.New("store: cannot move a node below itself")
)
