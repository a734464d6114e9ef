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
	"github.com/ekhaya-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error)
	CompleteOrder(ctx context.Context, orderID int64) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
}

// Broadcaster pushes order events to connected kitchen displays.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Create is cashier-only, Complete is kitchen-only; that split is applied
// by the router, not here.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
}

// RegisterCashierRoutes registers endpoints only cashiers may call.
func (h *OrderHandler) RegisterCashierRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterKitchenRoutes registers endpoints only kitchen staff may call.
func (h *OrderHandler) RegisterKitchenRoutes(r chi.Router) {
	r.Put("/orders/{id}/complete", h.Complete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName  string                   `json:"customer_name"`
	Total         string                   `json:"total"`
	PaymentMethod string                   `json:"payment_method"`
	Items         []createOrderLineRequest `json:"items"`
}

type createOrderLineRequest struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Price      string `json:"price"`
	SideOption string `json:"side_option"`
}

type orderResponse struct {
	ID            int64      `json:"id"`
	CustomerName  string     `json:"customer_name"`
	Total         string     `json:"total"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadyBy       time.Time  `json:"ready_by"`
	CompletedAt   *time.Time `json:"completed_at"`
}

type orderItemResponse struct {
	ID           int64   `json:"id"`
	MenuItemID   int64   `json:"menu_item_id"`
	MenuItemName string  `json:"menu_item_name"`
	Quantity     int32   `json:"quantity"`
	Price        string  `json:"price"`
	SideOption   *string `json:"side_option"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

type orderListResponse struct {
	Orders []orderDetailResponse `json:"orders"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines := make([]service.CartLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = service.CartLine{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Price:      item.Price,
			SideOption: item.SideOption,
		}
	}

	order, err := h.svc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		CustomerName:  req.CustomerName,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		CashierID:     claims.UserID,
		Lines:         lines,
	})
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":        stockErr.Error(),
				"menu_item_id": stockErr.MenuItemID,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			})
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrEmptyCustomerName),
			errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidPrice),
			errors.Is(err, service.ErrInvalidTotal):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: failed to submit order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcastOrderEvent(ws.EventOrderCreated, order)

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /orders. Orders come back newest first, each with its
// line items.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderListResponse{Orders: make([]orderDetailResponse, 0, len(orders))}
	for _, order := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
		if err != nil {
			log.Printf("ERROR: failed to list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp.Orders = append(resp.Orders, toOrderDetailResponse(order, items))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: failed to fetch order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: failed to list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(order, items))
}

// Complete handles PUT /orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.CompleteOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: failed to complete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastOrderEvent(ws.EventOrderReady, order)

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func (h *OrderHandler) broadcastOrderEvent(eventType string, order database.Order) {
	payload, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		log.Printf("ERROR: failed to marshal %s payload: %v", eventType, err)
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: payload})
}

func toOrderResponse(order database.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		CustomerName:  order.CustomerName,
		Total:         numericToString(order.Total),
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     order.CreatedAt,
		ReadyBy:       order.ReadyBy,
	}
	if order.CompletedAt.Valid {
		t := order.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}

func toOrderDetailResponse(order database.Order, items []database.OrderItem) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(order),
		Items:         make([]orderItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(item))
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:           item.ID,
		MenuItemID:   item.MenuItemID,
		MenuItemName: item.MenuItemName,
		Quantity:     item.Quantity,
		Price:        numericToString(item.Price),
	}
	if item.SideOption.Valid {
		s := item.SideOption.String
		resp.SideOption = &s
	}
	return resp
}

// numericToString renders a pgtype.Numeric as a fixed two-decimal string.
func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
