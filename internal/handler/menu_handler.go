package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brasserie/internal/service"
	"brasserie/models"
	"brasserie/pkg/logger"
)

type MenuHandler struct {
	menuService service.MenuServiceInterface
	resolver    service.AvailabilityServiceInterface
	logger      *logger.Logger
}

func NewMenuHandler(
	menuService service.MenuServiceInterface,
	resolver service.AvailabilityServiceInterface,
	logger *logger.Logger,
) *MenuHandler {
	return &MenuHandler{
		menuService: menuService,
		resolver:    resolver,
		logger:      logger.WithComponent("menu_handler"),
	}
}

// GetAllMenuItems handles GET /api/v1/menu
func (h *MenuHandler) GetAllMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.menuService.GetAll()
	if err != nil {
		h.logger.Error("Failed to get menu items", "error", err)
		writeErrorResponse(h.logger, w, http.StatusInternalServerError, "Failed to fetch menu items")
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, items)
}

// GetAvailability handles GET /api/v1/menu/availability
func (h *MenuHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.resolver.Snapshot()
	if err != nil {
		h.logger.Error("Failed to build catalog snapshot", "error", err)
		writeErrorResponse(h.logger, w, http.StatusInternalServerError, "Failed to build catalog snapshot")
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, snapshot)
}

// GetMenuItem handles GET /api/v1/menu/{id}
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.menuService.Get(id)
	if err != nil {
		h.logger.Warn("Failed to get menu item", "menu_item_id", id, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, item)
}

// CreateMenuItem handles POST /api/v1/menu
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item models.MenuItem
	if err := parseRequestBody(r, &item); err != nil {
		h.logger.Warn("Invalid request body for create menu item", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.menuService.Create(&item); err != nil {
		h.logger.Warn("Failed to create menu item", "name", item.Name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /api/v1/menu/{id}
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var item models.MenuItem
	if err := parseRequestBody(r, &item); err != nil {
		h.logger.Warn("Invalid request body for update menu item", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.menuService.Update(id, &item); err != nil {
		h.logger.Warn("Failed to update menu item", "menu_item_id", id, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]string{"menu_item_id": id, "message": "Menu item updated"})
}

// DeleteMenuItem handles DELETE /api/v1/menu/{id}
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.menuService.Delete(id); err != nil {
		h.logger.Warn("Failed to delete menu item", "menu_item_id", id, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
