package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, price, category, stock, requires_side, created_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Category, &m.Stock, &m.RequiresSide, &m.CreatedAt)
	return m, err
}

const listMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
ORDER BY category, name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMenuItem = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const createMenuItem = `
INSERT INTO menu_items (name, price, category, stock, requires_side)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name         string
	Price        pgtype.Numeric
	Category     string
	Stock        int32
	RequiresSide bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.Name, arg.Price, arg.Category, arg.Stock, arg.RequiresSide))
}

const updateMenuItemDetails = `
UPDATE menu_items
SET name = $2, price = $3, category = $4, requires_side = $5
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemDetailsParams struct {
	ID           int64
	Name         string
	Price        pgtype.Numeric
	Category     string
	RequiresSide bool
}

// UpdateMenuItemDetails changes descriptive fields only. Stock is mutated
// exclusively by the ledger-producing statements below.
func (q *Queries) UpdateMenuItemDetails(ctx context.Context, arg UpdateMenuItemDetailsParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItemDetails,
		arg.ID, arg.Name, arg.Price, arg.Category, arg.RequiresSide))
}

const decrementMenuItemStock = `
UPDATE menu_items
SET stock = stock - $2
WHERE id = $1 AND stock >= $2
RETURNING ` + menuItemColumns

type DecrementMenuItemStockParams struct {
	ID       int64
	Quantity int32
}

// DecrementMenuItemStock performs the stock check and the decrement as one
// guarded statement: it returns pgx.ErrNoRows when the item is missing OR
// when available stock is below the requested quantity, so two concurrent
// sellers can never jointly drive stock negative.
func (q *Queries) DecrementMenuItemStock(ctx context.Context, arg DecrementMenuItemStockParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, decrementMenuItemStock, arg.ID, arg.Quantity))
}

const applyMenuItemStockDelta = `
UPDATE menu_items
SET stock = stock + $2
WHERE id = $1 AND stock + $2 >= 0
RETURNING ` + menuItemColumns

type ApplyMenuItemStockDeltaParams struct {
	ID    int64
	Delta int32
}

// ApplyMenuItemStockDelta applies a signed stock delta, refusing (ErrNoRows)
// when the result would be negative.
func (q *Queries) ApplyMenuItemStockDelta(ctx context.Context, arg ApplyMenuItemStockDeltaParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, applyMenuItemStockDelta, arg.ID, arg.Delta))
}

const lockMenuItem = `
SELECT id
FROM menu_items
WHERE id = $1
FOR UPDATE
`

// LockMenuItem takes the catalog row lock inside the current transaction so
// callers serialize with the guarded stock UPDATEs on the same row.
func (q *Queries) LockMenuItem(ctx context.Context, id int64) (int64, error) {
	var lockedID int64
	err := q.db.QueryRow(ctx, lockMenuItem, id).Scan(&lockedID)
	return lockedID, err
}

const deleteMenuItem = `
DELETE FROM menu_items
WHERE id = $1
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countOrderItemsByMenuItem = `
SELECT COUNT(*)
FROM order_items
WHERE menu_item_id = $1
`

func (q *Queries) CountOrderItemsByMenuItem(ctx context.Context, menuItemID int64) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrderItemsByMenuItem, menuItemID).Scan(&count)
	return count, err
}
