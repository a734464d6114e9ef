package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ekhaya-pos/api/internal/auth"
	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/enum"
	"github.com/ekhaya-pos/api/internal/handler"
	"github.com/ekhaya-pos/api/internal/middleware"
	"github.com/ekhaya-pos/api/internal/service"
	"github.com/ekhaya-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const testJWTSecret = "test-secret-for-handlers"

// --- Mocks ---

type mockOrderService struct {
	submitFn   func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error)
	completeFn func(ctx context.Context, orderID int64) (database.Order, error)
}

func (m *mockOrderService) SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
	return m.submitFn(ctx, req)
}

func (m *mockOrderService) CompleteOrder(ctx context.Context, orderID int64) (database.Order, error) {
	return m.completeFn(ctx, orderID)
}

type mockOrderStore struct {
	orders map[int64]database.Order
	items  map[int64][]database.OrderItem
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders: make(map[int64]database.Order),
		items:  make(map[int64][]database.OrderItem),
	}
}

func (m *mockOrderStore) GetOrder(_ context.Context, id int64) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context) ([]database.Order, error) {
	var result []database.Order
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(_ context.Context, orderID int64) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

// mockHub records broadcast events instead of pushing them to sockets.
type mockHub struct {
	events []ws.Event
}

func (m *mockHub) Broadcast(event ws.Event) {
	m.events = append(m.events, event)
}

// --- Helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func testOrder(id int64) database.Order {
	now := time.Now()
	return database.Order{
		ID:            id,
		CustomerName:  "Thandi",
		Total:         makeNumeric("135.00"),
		Status:        enum.OrderStatusPending,
		PaymentMethod: enum.PaymentMethodCash,
		CreatedAt:     now,
		ReadyBy:       now.Add(15 * time.Minute),
	}
}

// setupOrderRouter mounts the handler the way the real router does: all
// routes behind Authenticate, Create cashier-only, Complete kitchen-only.
func setupOrderRouter(svc *mockOrderService, store *mockOrderStore, hub *mockHub) *chi.Mux {
	h := handler.NewOrderHandler(svc, store, hub)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.RoleCashier))
			h.RegisterCashierRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.RoleKitchen))
			h.RegisterKitchenRoutes(r)
		})
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, 9, "tester", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	decodeInto(t, rr, &resp)
	return resp
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	var gotReq service.SubmitOrderRequest
	svc := &mockOrderService{
		submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
			gotReq = req
			return testOrder(7), nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, newMockOrderStore(), hub)

	rr := doAuthRequest(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"customer_name": "Thandi",
		"total":         "135.00",
		"items": []map[string]interface{}{
			{"menu_item_id": 1, "quantity": 3, "price": "45.00"},
		},
	}, enum.RoleCashier)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotReq.CashierID != 9 {
		t.Errorf("expected cashier ID from claims, got %d", gotReq.CashierID)
	}
	if len(gotReq.Lines) != 1 || gotReq.Lines[0].Quantity != 3 {
		t.Errorf("unexpected lines: %+v", gotReq.Lines)
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != enum.OrderStatusPending {
		t.Errorf("expected status pending, got %v", resp["status"])
	}
	if resp["total"] != "135.00" {
		t.Errorf("expected total 135.00, got %v", resp["total"])
	}

	if len(hub.events) != 1 || hub.events[0].Type != ws.EventOrderCreated {
		t.Errorf("expected one %s broadcast, got %+v", ws.EventOrderCreated, hub.events)
	}
}

func TestCreateOrder_InsufficientStockConflict(t *testing.T) {
	svc := &mockOrderService{
		submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
			return database.Order{}, &service.InsufficientStockError{
				MenuItemID: 1,
				Name:       "Braaied Wors",
				Requested:  3,
				Available:  2,
			}
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, newMockOrderStore(), hub)

	rr := doAuthRequest(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"customer_name": "Thandi",
		"total":         "135.00",
		"items":         []map[string]interface{}{{"menu_item_id": 1, "quantity": 3, "price": "45.00"}},
	}, enum.RoleCashier)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["available"] != float64(2) {
		t.Errorf("expected available=2 in body, got %v", resp["available"])
	}
	if len(hub.events) != 0 {
		t.Error("failed order must not broadcast")
	}
}

func TestCreateOrder_ValidationError(t *testing.T) {
	svc := &mockOrderService{
		submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
			return database.Order{}, service.ErrEmptyCustomerName
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"total": "10.00",
		"items": []map[string]interface{}{{"menu_item_id": 1, "quantity": 1, "price": "10.00"}},
	}, enum.RoleCashier)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateOrder_UnknownItemNotFound(t *testing.T) {
	svc := &mockOrderService{
		submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
			return database.Order{}, service.ErrItemNotFound
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"customer_name": "Thandi",
		"total":         "10.00",
		"items":         []map[string]interface{}{{"menu_item_id": 999, "quantity": 1, "price": "10.00"}},
	}, enum.RoleCashier)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateOrder_KitchenRoleForbidden(t *testing.T) {
	svc := &mockOrderService{
		submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error) {
			t.Fatal("service must not be called")
			return database.Order{}, nil
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"customer_name": "Thandi",
	}, enum.RoleKitchen)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, newMockOrderStore(), &mockHub{})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestListOrders_IncludesItems(t *testing.T) {
	store := newMockOrderStore()
	store.orders[7] = testOrder(7)
	store.items[7] = []database.OrderItem{
		{
			ID:           1,
			OrderID:      7,
			MenuItemID:   1,
			MenuItemName: "Braaied Wors",
			Quantity:     3,
			Price:        makeNumeric("45.00"),
			SideOption:   pgtype.Text{String: "Uphuthu", Valid: true},
		},
	}
	router := setupOrderRouter(&mockOrderService{}, store, &mockHub{})

	rr := doAuthRequest(t, router, http.MethodGet, "/orders", nil, enum.RoleKitchen)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok || len(orders) != 1 {
		t.Fatalf("expected 1 order, got %v", resp["orders"])
	}
	order := orders[0].(map[string]interface{})
	items := order["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["menu_item_name"] != "Braaied Wors" {
		t.Errorf("expected snapshotted name, got %v", item["menu_item_name"])
	}
	if item["side_option"] != "Uphuthu" {
		t.Errorf("expected side option, got %v", item["side_option"])
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodGet, "/orders/404", nil, enum.RoleCashier)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCompleteOrder_Success(t *testing.T) {
	svc := &mockOrderService{
		completeFn: func(ctx context.Context, orderID int64) (database.Order, error) {
			o := testOrder(orderID)
			o.Status = enum.OrderStatusReady
			o.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return o, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, newMockOrderStore(), hub)

	rr := doAuthRequest(t, router, http.MethodPut, "/orders/7/complete", nil, enum.RoleKitchen)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != enum.OrderStatusReady {
		t.Errorf("expected status ready, got %v", resp["status"])
	}
	if resp["completed_at"] == nil {
		t.Error("expected completed_at to be set")
	}
	if len(hub.events) != 1 || hub.events[0].Type != ws.EventOrderReady {
		t.Errorf("expected one %s broadcast, got %+v", ws.EventOrderReady, hub.events)
	}
}

func TestCompleteOrder_NotFound(t *testing.T) {
	svc := &mockOrderService{
		completeFn: func(ctx context.Context, orderID int64) (database.Order, error) {
			return database.Order{}, service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodPut, "/orders/404/complete", nil, enum.RoleKitchen)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCompleteOrder_CashierRoleForbidden(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, http.MethodPut, "/orders/7/complete", nil, enum.RoleCashier)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
