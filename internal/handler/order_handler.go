package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brasserie/internal/service"
	"brasserie/models"
	"brasserie/pkg/logger"
)

type OrderHandler struct {
	orderService service.OrderServiceInterface
	logger       *logger.Logger
}

func NewOrderHandler(orderService service.OrderServiceInterface, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger.WithComponent("order_handler"),
	}
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if err := parseRequestBody(r, &req); err != nil {
		h.logger.Warn("Invalid request body for create order", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orderService.PlaceOrder(&req)
	if err != nil {
		h.logger.Warn("Failed to place order", "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusCreated, order)
}

// GetAllOrders handles GET /api/v1/orders
func (h *OrderHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListOrders()
	if err != nil {
		h.logger.Error("Failed to get orders", "error", err)
		writeErrorResponse(h.logger, w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, orders)
}

// GetOrderByID handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.orderService.GetOrder(id)
	if err != nil {
		h.logger.Warn("Failed to get order", "order_id", id, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, order)
}

// CancelOrder handles DELETE /api/v1/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.orderService.CancelOrder(id); err != nil {
		h.logger.Warn("Failed to cancel order", "order_id", id, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]string{"order_id": id, "message": "Order cancelled"})
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := parseRequestBody(r, &req); err != nil {
		h.logger.Warn("Invalid request body for status update", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.orderService.UpdateOrderStatus(id, req.Status); err != nil {
		h.logger.Warn("Failed to update order status", "order_id", id, "status", req.Status, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]string{"order_id": id, "status": string(req.Status)})
}
