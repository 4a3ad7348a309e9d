package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brasserie/internal/service"
	"brasserie/models"
	"brasserie/pkg/logger"
)

type StockHandler struct {
	stockService service.StockServiceInterface
	logger       *logger.Logger
}

func NewStockHandler(stockService service.StockServiceInterface, logger *logger.Logger) *StockHandler {
	return &StockHandler{
		stockService: stockService,
		logger:       logger.WithComponent("stock_handler"),
	}
}

// GetAllStock handles GET /api/v1/stock
func (h *StockHandler) GetAllStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.stockService.GetAll()
	if err != nil {
		h.logger.Error("Failed to get stock items", "error", err)
		writeErrorResponse(h.logger, w, http.StatusInternalServerError, "Failed to fetch stock items")
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, items)
}

// GetStock handles GET /api/v1/stock/{name}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	item, err := h.stockService.Get(name)
	if err != nil {
		h.logger.Warn("Failed to get stock item", "name", name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, item)
}

// CreateStock handles POST /api/v1/stock
func (h *StockHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var item models.StockItem
	if err := parseRequestBody(r, &item); err != nil {
		h.logger.Warn("Invalid request body for create stock item", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.stockService.Create(&item); err != nil {
		h.logger.Warn("Failed to create stock item", "name", item.Name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusCreated, item)
}

// UpdateStock handles PATCH /api/v1/stock/{name}
func (h *StockHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var item models.StockItem
	if err := parseRequestBody(r, &item); err != nil {
		h.logger.Warn("Invalid request body for update stock item", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.stockService.Update(name, &item); err != nil {
		h.logger.Warn("Failed to update stock item", "name", name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]string{"name": name, "message": "Stock item updated"})
}

type adjustStockRequest struct {
	DeltaReserve int `json:"delta_reserve"`
	DeltaActive  int `json:"delta_active"`
}

// AdjustStock handles POST /api/v1/stock/{name}/adjust
func (h *StockHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req adjustStockRequest
	if err := parseRequestBody(r, &req); err != nil {
		h.logger.Warn("Invalid request body for stock adjustment", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.stockService.Adjust(name, req.DeltaReserve, req.DeltaActive)
	if err != nil {
		h.logger.Warn("Failed to adjust stock item", "name", name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, item)
}
