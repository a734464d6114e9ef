package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createStockHistory = `
INSERT INTO stock_history (menu_item_id, menu_item_name, quantity_change, stock_before, stock_after, change_type, note, actor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, menu_item_id, menu_item_name, quantity_change, stock_before, stock_after, change_type, note, actor_id, created_at
`

type CreateStockHistoryParams struct {
	MenuItemID     int64
	MenuItemName   string
	QuantityChange int32
	StockBefore    int32
	StockAfter     int32
	ChangeType     string
	Note           pgtype.Text
	ActorID        pgtype.Int8
}

func (q *Queries) CreateStockHistory(ctx context.Context, arg CreateStockHistoryParams) (StockHistory, error) {
	row := q.db.QueryRow(ctx, createStockHistory,
		arg.MenuItemID, arg.MenuItemName, arg.QuantityChange, arg.StockBefore,
		arg.StockAfter, arg.ChangeType, arg.Note, arg.ActorID)
	var sh StockHistory
	err := row.Scan(&sh.ID, &sh.MenuItemID, &sh.MenuItemName, &sh.QuantityChange,
		&sh.StockBefore, &sh.StockAfter, &sh.ChangeType, &sh.Note, &sh.ActorID, &sh.CreatedAt)
	return sh, err
}

const listStockHistory = `
SELECT sh.id, sh.menu_item_id, sh.menu_item_name, sh.quantity_change, sh.stock_before,
       sh.stock_after, sh.change_type, sh.note, sh.actor_id, sh.created_at,
       u.username AS actor_name
FROM stock_history sh
LEFT JOIN users u ON sh.actor_id = u.id
WHERE ($1::bigint IS NULL OR sh.menu_item_id = $1)
ORDER BY sh.created_at DESC, sh.id DESC
LIMIT $2
`

type ListStockHistoryParams struct {
	MenuItemID pgtype.Int8
	Limit      int32
}

type ListStockHistoryRow struct {
	StockHistory
	ActorName pgtype.Text
}

// ListStockHistory returns ledger entries newest first, optionally filtered
// to one item. A null actor joins to a null name, not an error.
func (q *Queries) ListStockHistory(ctx context.Context, arg ListStockHistoryParams) ([]ListStockHistoryRow, error) {
	rows, err := q.db.Query(ctx, listStockHistory, arg.MenuItemID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ListStockHistoryRow
	for rows.Next() {
		var r ListStockHistoryRow
		if err := rows.Scan(&r.ID, &r.MenuItemID, &r.MenuItemName, &r.QuantityChange,
			&r.StockBefore, &r.StockAfter, &r.ChangeType, &r.Note, &r.ActorID,
			&r.CreatedAt, &r.ActorName); err != nil {
			return nil, err
		}
		entries = append(entries, r)
	}
	return entries, rows.Err()
}

const deleteStockHistoryByMenuItem = `
DELETE FROM stock_history
WHERE menu_item_id = $1
`

// DeleteStockHistoryByMenuItem is the single intentional exception to the
// ledger's append-only rule: removing an item erases its stock biography.
func (q *Queries) DeleteStockHistoryByMenuItem(ctx context.Context, menuItemID int64) error {
	_, err := q.db.Exec(ctx, deleteStockHistoryByMenuItem, menuItemID)
	return err
}
