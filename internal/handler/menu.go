package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/middleware"
	"github.com/ekhaya-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// InventoryServicer defines the service methods needed by menu handlers.
// Satisfied by *service.InventoryService; narrow interface for testability.
type InventoryServicer interface {
	ListItems(ctx context.Context) ([]database.MenuItem, error)
	GetItem(ctx context.Context, id int64) (database.MenuItem, error)
	AddItem(ctx context.Context, req service.AddItemRequest) (database.MenuItem, error)
	EditItem(ctx context.Context, req service.EditItemRequest) (database.MenuItem, error)
	AdjustStock(ctx context.Context, req service.AdjustStockRequest) (database.MenuItem, error)
	DeleteItem(ctx context.Context, id int64) error
	ListStockHistory(ctx context.Context, filter service.StockHistoryFilter) ([]database.ListStockHistoryRow, error)
}

// MenuHandler handles menu catalog and stock management endpoints.
type MenuHandler struct {
	svc InventoryServicer
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc InventoryServicer) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// RegisterRoutes registers the read-only catalog endpoints every
// authenticated role may call.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.List)
	r.Get("/menu/{id}", h.Get)
}

// RegisterPuncherRoutes registers the stock-management endpoints reserved
// for punchers.
func (h *MenuHandler) RegisterPuncherRoutes(r chi.Router) {
	r.Get("/puncher/menu", h.List)
	r.Post("/puncher/menu", h.Create)
	r.Put("/puncher/menu/{id}", h.Update)
	r.Delete("/puncher/menu/{id}", h.Delete)
	r.Put("/puncher/stock/{id}", h.AdjustStock)
	r.Get("/puncher/stock-history", h.StockHistory)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Category     string `json:"category"`
	Stock        int32  `json:"stock"`
	RequiresSide bool   `json:"requires_side"`
}

type adjustStockRequest struct {
	Delta int32  `json:"delta"`
	Note  string `json:"note"`
}

type menuItemResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Category     string `json:"category"`
	Stock        int32  `json:"stock"`
	RequiresSide bool   `json:"requires_side"`
}

type stockHistoryResponse struct {
	ID             int64     `json:"id"`
	MenuItemID     int64     `json:"menu_item_id"`
	MenuItemName   string    `json:"menu_item_name"`
	QuantityChange int32     `json:"quantity_change"`
	StockBefore    int32     `json:"stock_before"`
	StockAfter     int32     `json:"stock_after"`
	ChangeType     string    `json:"change_type"`
	Note           *string   `json:"note"`
	ActorName      *string   `json:"actor_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListItems(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toMenuItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: failed to fetch menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create handles POST /puncher/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		Name:         req.Name,
		Price:        req.Price,
		Category:     req.Category,
		Stock:        req.Stock,
		RequiresSide: req.RequiresSide,
		ActorID:      claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyItemName),
			errors.Is(err, service.ErrNegativeStock),
			errors.Is(err, service.ErrInvalidPrice):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: failed to create menu item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /puncher/menu/{id}. Stock is not editable here; the
// stock endpoint keeps the ledger consistent.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.EditItem(r.Context(), service.EditItemRequest{
		ID:           id,
		Name:         req.Name,
		Price:        req.Price,
		Category:     req.Category,
		RequiresSide: req.RequiresSide,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case errors.Is(err, service.ErrEmptyItemName), errors.Is(err, service.ErrInvalidPrice):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: failed to update menu item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete handles DELETE /puncher/menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case errors.Is(err, service.ErrItemInUse):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menu item appears in past orders and cannot be deleted"})
		default:
			log.Printf("ERROR: failed to delete menu item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "menu item deleted"})
}

// AdjustStock handles PUT /puncher/stock/{id}.
func (h *MenuHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.AdjustStock(r.Context(), service.AdjustStockRequest{
		MenuItemID: id,
		Delta:      req.Delta,
		Note:       req.Note,
		ActorID:    claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case errors.Is(err, service.ErrStockUnderflow):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "adjustment would drive stock negative"})
		default:
			log.Printf("ERROR: failed to adjust stock: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// StockHistory handles GET /puncher/stock-history?item_id=N&limit=N.
func (h *MenuHandler) StockHistory(w http.ResponseWriter, r *http.Request) {
	var filter service.StockHistoryFilter

	if raw := r.URL.Query().Get("item_id"); raw != "" {
		itemID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
			return
		}
		filter.MenuItemID = itemID
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		filter.Limit = int32(limit)
	}

	rows, err := h.svc.ListStockHistory(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: failed to list stock history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stockHistoryResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toStockHistoryResponse(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toMenuItemResponse(item database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Price:        numericToString(item.Price),
		Category:     item.Category,
		Stock:        item.Stock,
		RequiresSide: item.RequiresSide,
	}
}

func toStockHistoryResponse(row database.ListStockHistoryRow) stockHistoryResponse {
	resp := stockHistoryResponse{
		ID:             row.ID,
		MenuItemID:     row.MenuItemID,
		MenuItemName:   row.MenuItemName,
		QuantityChange: row.QuantityChange,
		StockBefore:    row.StockBefore,
		StockAfter:     row.StockAfter,
		ChangeType:     row.ChangeType,
		CreatedAt:      row.CreatedAt,
	}
	if row.Note.Valid {
		s := row.Note.String
		resp.Note = &s
	}
	if row.ActorName.Valid {
		s := row.ActorName.String
		resp.ActorName = &s
	}
	return resp
}
