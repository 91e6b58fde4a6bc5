package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"product-catalog-importer/internal/domain"
	"product-catalog-importer/internal/importexport"
	"product-catalog-importer/internal/logging"
	"product-catalog-importer/internal/store"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	importer     *importexport.Importer
	productStore store.ProductStorer
	maxRows      int
	maxBodyBytes int64
	validate     *validator.Validate

	// importMu serialises imports. Rows of concurrent batches could
	// otherwise race on slugs and tree positions.
	importMu sync.Mutex
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(importer *importexport.Importer, ps store.ProductStorer, maxRows int, maxBodyBytes int64) *HTTPHandler {
	return &HTTPHandler{
		importer:     importer,
		productStore: ps,
		maxRows:      maxRows,
		maxBodyBytes: maxBodyBytes,
		validate:     validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// Headers are already written, nothing left but to log.
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// respondWithExportError reports inconsistent stored data as a conflict.
func respondWithExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, importexport.ErrMultipleFacts) {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to export products")
}

// Pagination matches the pagination block of list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func pageParams(r *http.Request) (page, limit int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return page, limit
}

// --- Import / Export Handlers ---

// ImportInput defines the expected input for an import batch. Cells are
// keyed by column name. Numbers are kept as json.Number so large ids
// survive decoding.
type ImportInput struct {
	Rows []map[string]any `json:"rows" validate:"required,min=1,dive,required"`
}

// Import runs one batch through the importer. Failed rows are reported in
// the result and do not fail the request; rows that succeeded stay saved.
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	defer r.Body.Close()

	var input ImportInput
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body too large: at most %d bytes", tooLarge.Limit))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if h.maxRows > 0 && len(input.Rows) > h.maxRows {
		respondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Too many rows: %d, at most %d per batch", len(input.Rows), h.maxRows))
		return
	}

	rows := make([]importexport.Row, len(input.Rows))
	for i, row := range input.Rows {
		rows[i] = importexport.Row(row)
	}

	h.importMu.Lock()
	result, err := h.importer.Import(r.Context(), rows)
	h.importMu.Unlock()
	if err != nil {
		// Id cells are read for the whole batch up front, so bad data there
		// fails the batch rather than a row.
		if errors.Is(err, importexport.ErrColumnMissing) || errors.Is(err, importexport.ErrWidgetClean) {
			respondWithError(w, http.StatusBadRequest, "Invalid import data: "+err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("import failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to run import")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ExportResponse is a page of exported rows in header order.
type ExportResponse struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Pagination Pagination `json:"pagination"`
}

func (h *HTTPHandler) Export(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	params := store.ListProductsParams{Limit: limit, Offset: (page - 1) * limit}
	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		b, err := strconv.ParseBool(activeStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid is_active value: must be true or false")
			return
		}
		params.IsActive = &b
	}

	logger := logging.FromContext(r.Context())
	products, totalCount, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		logger.Error("ListProducts store operation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	objs := make([]domain.Entity, len(products))
	for i, p := range products {
		objs[i] = p
	}
	rows, err := h.importer.Export(r.Context(), objs)
	if err != nil {
		logger.Error("export failed", "error", err)
		respondWithExportError(w, err)
		return
	}

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	respondWithJSON(w, http.StatusOK, ExportResponse{
		Headers: h.importer.Resource().Headers(),
		Rows:    rows,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: totalCount,
			TotalPages: totalPages,
		},
	})
}

// ExportProduct renders a single product as one row.
func (h *HTTPHandler) ExportProduct(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			logging.FromContext(r.Context()).Error("GetProductByID store operation failed", "product_id", productID, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		}
		return
	}

	row, err := h.importer.Resource().ExportRow(r.Context(), product)
	if err != nil {
		logging.FromContext(r.Context()).Error("export failed", "product_id", productID, "error", err)
		respondWithExportError(w, err)
		return
	}

	headers := h.importer.Resource().Headers()
	out := make(map[string]string, len(headers))
	for i, header := range headers {
		out[header] = row[i]
	}
	respondWithJSON(w, http.StatusOK, out)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/import", h.Import) // POST /api/v1/import
	r.Route("/api/v1/export", func(r chi.Router) {
		r.Get("/", h.Export)                   // GET /api/v1/export
		r.Get("/{productId}", h.ExportProduct) // GET /api/v1/export/{productId}
	})
}
