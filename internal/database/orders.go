package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_name, total, status, payment_method, created_at, ready_by, completed_at, cashier_id`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerName, &o.Total, &o.Status, &o.PaymentMethod,
		&o.CreatedAt, &o.ReadyBy, &o.CompletedAt, &o.CashierID)
	return o, err
}

const createOrder = `
INSERT INTO orders (customer_name, total, status, payment_method, created_at, ready_by, cashier_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerName  string
	Total         pgtype.Numeric
	Status        string
	PaymentMethod string
	CreatedAt     time.Time
	ReadyBy       time.Time
	CashierID     pgtype.Int8
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.CustomerName, arg.Total, arg.Status, arg.PaymentMethod,
		arg.CreatedAt, arg.ReadyBy, arg.CashierID))
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
ORDER BY created_at DESC
`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const markOrderReady = `
UPDATE orders
SET status = $2, completed_at = $3
WHERE id = $1
RETURNING ` + orderColumns

type MarkOrderReadyParams struct {
	ID          int64
	Status      string
	CompletedAt time.Time
}

// MarkOrderReady stamps completed_at unconditionally: re-invoking on an
// already-ready order re-stamps the timestamp rather than failing.
func (q *Queries) MarkOrderReady(ctx context.Context, arg MarkOrderReadyParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderReady, arg.ID, arg.Status, arg.CompletedAt))
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, menu_item_name, quantity, price, side_option)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, menu_item_id, menu_item_name, quantity, price, side_option
`

type CreateOrderItemParams struct {
	OrderID      int64
	MenuItemID   int64
	MenuItemName string
	Quantity     int32
	Price        pgtype.Numeric
	SideOption   pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.MenuItemName, arg.Quantity, arg.Price, arg.SideOption)
	var oi OrderItem
	err := row.Scan(&oi.ID, &oi.OrderID, &oi.MenuItemID, &oi.MenuItemName, &oi.Quantity, &oi.Price, &oi.SideOption)
	return oi, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, menu_item_name, quantity, price, side_option
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var oi OrderItem
		if err := rows.Scan(&oi.ID, &oi.OrderID, &oi.MenuItemID, &oi.MenuItemName,
			&oi.Quantity, &oi.Price, &oi.SideOption); err != nil {
			return nil, err
		}
		items = append(items, oi)
	}
	return items, rows.Err()
}
