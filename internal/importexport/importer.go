package importexport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/logging"
	"product-catalog-importer/internal/store"
)

// Row outcomes.
const (
	StatusNew    = "new"
	StatusUpdate = "update"
	StatusError  = "error"
)

// RowResult is the outcome of one imported row. Line is 1-based.
type RowResult struct {
	Line     int    `json:"line"`
	Status   string `json:"status"`
	ObjectID int64  `json:"object_id,omitempty"`
	Object   string `json:"object,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result summarises one import batch.
type Result struct {
	BatchID string         `json:"batch_id"`
	Rows    []RowResult    `json:"rows"`
	Totals  map[string]int `json:"totals"`
}

// HasErrors reports whether any row failed.
func (r *Result) HasErrors() bool { return r.Totals[StatusError] > 0 }

// Importer runs a resource over batches of rows.
type Importer struct {
	resource  *Resource
	finder    Finder
	saver     store.ObjectSaver
	newObject func() domain.Entity
	cached    bool
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithCachedLoader prefetches the batch's objects with CachedInstanceLoader.
func WithCachedLoader(enabled bool) ImporterOption {
	return func(im *Importer) { im.cached = enabled }
}

// WithNewObject sets the constructor for rows no stored object matches.
func WithNewObject(fn func() domain.Entity) ImporterOption {
	return func(im *Importer) { im.newObject = fn }
}

func NewImporter(resource *Resource, finder Finder, saver store.ObjectSaver, opts ...ImporterOption) *Importer {
	im := &Importer{
		resource:  resource,
		finder:    finder,
		saver:     saver,
		newObject: func() domain.Entity { return &domain.Product{IsActive: true} },
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) Resource() *Resource { return im.resource }

func (im *Importer) loader(ctx context.Context, rows []Row) (InstanceLoader, error) {
	if im.cached {
		return NewCachedInstanceLoader(ctx, im.resource, im.finder, rows)
	}
	return NewModelInstanceLoader(im.resource, im.finder), nil
}

// Import processes rows in order. A failing row is recorded in the result
// and does not stop the batch; the returned error is reserved for failures
// that prevent the batch from running at all.
func (im *Importer) Import(ctx context.Context, rows []Row) (*Result, error) {
	result := &Result{
		BatchID: uuid.NewString(),
		Rows:    make([]RowResult, 0, len(rows)),
		Totals:  map[string]int{StatusNew: 0, StatusUpdate: 0, StatusError: 0},
	}
	logger := logging.WithFields(ctx, "batch_id", result.BatchID, "resource", im.resource.Name)
	logger.Info("import started", "rows", len(rows), "cached_loader", im.cached)
	start := time.Now()

	loader, err := im.loader(ctx, rows)
	if err != nil {
		logger.Error("import aborted", "error", err)
		return nil, fmt.Errorf("importexport: preparing instance loader: %w", err)
	}

	for i, row := range rows {
		rr := im.importRow(ctx, loader, row)
		rr.Line = i + 1
		if rr.Status == StatusError {
			logger.Warn("row failed", "line", rr.Line, "object", rr.Object, "error", rr.Error)
		}
		result.Rows = append(result.Rows, rr)
		result.Totals[rr.Status]++
	}

	logger.Info("import finished",
		"new", result.Totals[StatusNew],
		"updated", result.Totals[StatusUpdate],
		"failed", result.Totals[StatusError],
		"duration", time.Since(start),
	)
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, loader InstanceLoader, row Row) RowResult {
	obj, err := loader.Instance(ctx, row)
	if err != nil {
		return RowResult{Status: StatusError, Error: err.Error()}
	}
	status := StatusUpdate
	if obj == nil {
		obj = im.newObject()
		status = StatusNew
	}
	if err := im.resource.ImportRow(ctx, obj, row, im.saver); err != nil {
		return RowResult{Status: StatusError, ObjectID: obj.Ref().ObjectID, Object: obj.DisplayName(), Error: err.Error()}
	}
	return RowResult{Status: status, ObjectID: obj.Ref().ObjectID, Object: obj.DisplayName()}
}

// Export renders objs as rows in header order.
func (im *Importer) Export(ctx context.Context, objs []domain.Entity) ([][]string, error) {
	rows := make([][]string, 0, len(objs))
	for _, obj := range objs {
		row, err := im.resource.ExportRow(ctx, obj)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
