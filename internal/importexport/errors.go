package importexport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrColumnMissing     = errors.New("importexport: column missing")
	ErrWidgetClean       = errors.New("importexport: invalid cell value")
	ErrDuplicateSlug     = errors.New("importexport: duplicate slug")
	ErrParentNotFound    = errors.New("importexport: parent not found")
	ErrMultipleFacts     = errors.New("importexport: multiple facts")
	ErrInvalidColumnKey  = errors.New("importexport: invalid column key")
	ErrUnsupportedTarget = errors.New("importexport: unsupported target")
	ErrAmbiguousInstance = errors.New("importexport: row matches more than one object")
)

// ColumnMissingError is returned by Clean when a row lacks the field's column.
type ColumnMissingError struct {
	Column    string
	Available []string
}

func (e *ColumnMissingError) Error() string {
	return fmt.Sprintf("importexport: column %q not found in dataset, available columns are: %s",
		e.Column, strings.Join(e.Available, ", "))
}

func (e *ColumnMissingError) Unwrap() error { return ErrColumnMissing }

// WidgetCleanError carries the column of a cell the widget rejected.
type WidgetCleanError struct {
	Column string
	Err    error
}

func (e *WidgetCleanError) Error() string {
	return fmt.Sprintf("importexport: column %q: %v", e.Column, e.Err)
}

func (e *WidgetCleanError) Unwrap() []error { return []error{ErrWidgetClean, e.Err} }

// DuplicateSlugError names the object whose slug collides with another one.
type DuplicateSlugError struct {
	Object string
	Slug   string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("importexport: in item %q: slug %q already exists, slugs have to be unique", e.Object, e.Slug)
}

func (e *DuplicateSlugError) Unwrap() error { return ErrDuplicateSlug }

// ParentNotFoundError is returned when no object owns the parent slug.
type ParentNotFoundError struct {
	Object string
	Slug   string
}

func (e *ParentNotFoundError) Error() string {
	return fmt.Sprintf("importexport: in product %q: parent slug %q does not exist", e.Object, e.Slug)
}

func (e *ParentNotFoundError) Unwrap() error { return ErrParentNotFound }

// MultipleFactsError reports persisted data with more than one fact where
// at most one is allowed.
type MultipleFactsError struct {
	Object string
	Column string
	Count  int
}

func (e *MultipleFactsError) Error() string {
	return fmt.Sprintf("importexport: in item %q: column %q has %d stored values, expected one", e.Object, e.Column, e.Count)
}

func (e *MultipleFactsError) Unwrap() error { return ErrMultipleFacts }
