package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// readyWindow is the advisory "ready by" SLA stamped on every new order.
// It is stored data, not an enforced deadline.
const readyWindow = 15 * time.Minute

// Errors returned by the order service.
var (
	ErrEmptyCustomerName = errors.New("customer name is required")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidTotal      = errors.New("invalid total")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrOrderNotFound     = errors.New("order not found")
)

// InsufficientStockError identifies the cart line that could not be
// fulfilled. The whole order is rolled back when it occurs.
type InsufficientStockError struct {
	MenuItemID int64
	Name       string
	Requested  int32
	Available  int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and complete orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItem(ctx context.Context, id int64) (database.MenuItem, error)
	DecrementMenuItemStock(ctx context.Context, arg database.DecrementMenuItemStockParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateStockHistory(ctx context.Context, arg database.CreateStockHistoryParams) (database.StockHistory, error)
	MarkOrderReady(ctx context.Context, arg database.MarkOrderReadyParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// SubmitOrderRequest is the validated input for submitting an order.
// Line prices and the declared total are caller-computed (base price plus
// side surcharge) and stored as supplied; the engine does not recompute
// them against the catalog.
type SubmitOrderRequest struct {
	CustomerName  string
	Total         string
	PaymentMethod string
	CashierID     int64 // 0 when the actor could not be resolved
	Lines         []CartLine
}

// CartLine is a single item/quantity/price tuple in the cart.
type CartLine struct {
	MenuItemID int64
	Quantity   int32
	Price      string
	SideOption string
}

// OrderService handles the order-and-inventory ledger side of a sale:
// order row, line items, stock decrements, and ledger entries committed as
// one transaction.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store is bound to the pool
// and used for single-statement operations; newStore rebinds the queries
// inside transactions.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// SubmitOrder validates the cart and commits order + line items + stock
// decrements + ledger rows atomically. If any line exceeds available stock
// the whole order fails with *InsufficientStockError and nothing is
// written.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (database.Order, error) {
	if req.CustomerName == "" {
		return database.Order{}, ErrEmptyCustomerName
	}
	if len(req.Lines) == 0 {
		return database.Order{}, ErrEmptyCart
	}

	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		return database.Order{}, ErrInvalidTotal
	}

	linePrices := make([]decimal.Decimal, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return database.Order{}, fmt.Errorf("lines[%d]: %w", i, ErrInvalidQuantity)
		}
		p, err := decimal.NewFromString(line.Price)
		if err != nil || p.IsNegative() {
			return database.Order{}, fmt.Errorf("lines[%d]: %w", i, ErrInvalidPrice)
		}
		linePrices[i] = p
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = enum.PaymentMethodCash
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	cashierID := pgtype.Int8{}
	if req.CashierID != 0 {
		cashierID = pgtype.Int8{Int64: req.CashierID, Valid: true}
	}

	now := time.Now()
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerName:  req.CustomerName,
		Total:         decimalToNumeric(total),
		Status:        enum.OrderStatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     now,
		ReadyBy:       now.Add(readyWindow),
		CashierID:     cashierID,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	for i, line := range req.Lines {
		// Stock check and decrement in one guarded statement: ErrNoRows
		// means either an unknown item or not enough stock.
		item, err := store.DecrementMenuItemStock(ctx, database.DecrementMenuItemStockParams{
			ID:       line.MenuItemID,
			Quantity: line.Quantity,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Order{}, s.classifyDecrementFailure(ctx, store, i, line)
			}
			return database.Order{}, fmt.Errorf("lines[%d]: decrement stock: %w", i, err)
		}

		sideOption := pgtype.Text{}
		if line.SideOption != "" {
			sideOption = pgtype.Text{String: line.SideOption, Valid: true}
		}

		// The line item snapshots the catalog name and carries the price
		// exactly as supplied.
		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      order.ID,
			MenuItemID:   item.ID,
			MenuItemName: item.Name,
			Quantity:     line.Quantity,
			Price:        decimalToNumeric(linePrices[i]),
			SideOption:   sideOption,
		}); err != nil {
			return database.Order{}, fmt.Errorf("lines[%d]: create order item: %w", i, err)
		}

		if _, err := store.CreateStockHistory(ctx, database.CreateStockHistoryParams{
			MenuItemID:     item.ID,
			MenuItemName:   item.Name,
			QuantityChange: -line.Quantity,
			StockBefore:    item.Stock + line.Quantity,
			StockAfter:     item.Stock,
			ChangeType:     enum.ChangeTypeSale,
			Note:           pgtype.Text{String: fmt.Sprintf("Order #%d", order.ID), Valid: true},
			ActorID:        pgtype.Int8{}, // sale-triggered changes carry no actor
		}); err != nil {
			return database.Order{}, fmt.Errorf("lines[%d]: create ledger entry: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// classifyDecrementFailure distinguishes an unknown item from insufficient
// stock after the guarded decrement matched no row.
func (s *OrderService) classifyDecrementFailure(ctx context.Context, store OrderStore, idx int, line CartLine) error {
	item, err := store.GetMenuItem(ctx, line.MenuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lines[%d]: %w", idx, ErrItemNotFound)
		}
		return fmt.Errorf("lines[%d]: get menu item: %w", idx, err)
	}
	return &InsufficientStockError{
		MenuItemID: item.ID,
		Name:       item.Name,
		Requested:  line.Quantity,
		Available:  item.Stock,
	}
}

// CompleteOrder transitions an order from pending to ready and stamps
// completed_at. Re-invoking on an already-ready order re-stamps the
// timestamp.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64) (database.Order, error) {
	order, err := s.store.MarkOrderReady(ctx, database.MarkOrderReadyParams{
		ID:          orderID,
		Status:      enum.OrderStatusReady,
		CompletedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("mark order ready: %w", err)
	}
	return order, nil
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
