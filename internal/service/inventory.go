package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the inventory service.
var (
	ErrEmptyItemName  = errors.New("item name is required")
	ErrNegativeStock  = errors.New("stock must not be negative")
	ErrStockUnderflow = errors.New("adjustment would drive stock negative")
	ErrItemInUse      = errors.New("menu item is referenced by order history")
)

// InventoryStore defines the DB methods needed to manage the menu catalog
// and its stock ledger. Satisfied by *database.Queries.
type InventoryStore interface {
	GetMenuItem(ctx context.Context, id int64) (database.MenuItem, error)
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItemDetails(ctx context.Context, arg database.UpdateMenuItemDetailsParams) (database.MenuItem, error)
	ApplyMenuItemStockDelta(ctx context.Context, arg database.ApplyMenuItemStockDeltaParams) (database.MenuItem, error)
	LockMenuItem(ctx context.Context, id int64) (int64, error)
	DeleteMenuItem(ctx context.Context, id int64) (int64, error)
	CountOrderItemsByMenuItem(ctx context.Context, menuItemID int64) (int64, error)
	CreateStockHistory(ctx context.Context, arg database.CreateStockHistoryParams) (database.StockHistory, error)
	DeleteStockHistoryByMenuItem(ctx context.Context, menuItemID int64) error
	ListStockHistory(ctx context.Context, arg database.ListStockHistoryParams) ([]database.ListStockHistoryRow, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// AddItemRequest is the validated input for adding a menu item.
type AddItemRequest struct {
	Name         string
	Price        string
	Category     string
	Stock        int32
	RequiresSide bool
	ActorID      int64
}

// EditItemRequest updates an item's descriptive fields. Stock is excluded:
// it changes only through AdjustStock so every unit is accounted for in the
// ledger.
type EditItemRequest struct {
	ID           int64
	Name         string
	Price        string
	Category     string
	RequiresSide bool
}

// AdjustStockRequest applies a signed delta to an item's stock.
type AdjustStockRequest struct {
	MenuItemID int64
	Delta      int32
	Note       string
	ActorID    int64
}

// InventoryService manages the menu catalog and keeps the stock ledger in
// lockstep with every stock mutation.
type InventoryService struct {
	pool     TxBeginner
	store    InventoryStore
	newStore NewInventoryStore
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(pool TxBeginner, store InventoryStore, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, store: store, newStore: newStore}
}

// ListItems returns the full catalog.
func (s *InventoryService) ListItems(ctx context.Context) ([]database.MenuItem, error) {
	return s.store.ListMenuItems(ctx)
}

// GetItem returns a single catalog item.
func (s *InventoryService) GetItem(ctx context.Context, id int64) (database.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, ErrItemNotFound
		}
		return database.MenuItem{}, err
	}
	return item, nil
}

// AddItem creates a menu item and records an "initial" ledger entry for its
// opening stock, both in one transaction.
func (s *InventoryService) AddItem(ctx context.Context, req AddItemRequest) (database.MenuItem, error) {
	if req.Name == "" {
		return database.MenuItem{}, ErrEmptyItemName
	}
	if req.Stock < 0 {
		return database.MenuItem{}, ErrNegativeStock
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return database.MenuItem{}, ErrInvalidPrice
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.CreateMenuItem(ctx, database.CreateMenuItemParams{
		Name:         req.Name,
		Price:        decimalToNumeric(price),
		Category:     req.Category,
		Stock:        req.Stock,
		RequiresSide: req.RequiresSide,
	})
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}

	if _, err := store.CreateStockHistory(ctx, database.CreateStockHistoryParams{
		MenuItemID:     item.ID,
		MenuItemName:   item.Name,
		QuantityChange: item.Stock,
		StockBefore:    0,
		StockAfter:     item.Stock,
		ChangeType:     enum.ChangeTypeInitial,
		Note:           pgtype.Text{String: "Initial stock", Valid: true},
		ActorID:        actorRef(req.ActorID),
	}); err != nil {
		return database.MenuItem{}, fmt.Errorf("create ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, nil
}

// EditItem updates name, price, category and the side requirement. It never
// touches stock and writes no ledger entry.
func (s *InventoryService) EditItem(ctx context.Context, req EditItemRequest) (database.MenuItem, error) {
	if req.Name == "" {
		return database.MenuItem{}, ErrEmptyItemName
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return database.MenuItem{}, ErrInvalidPrice
	}

	item, err := s.store.UpdateMenuItemDetails(ctx, database.UpdateMenuItemDetailsParams{
		ID:           req.ID,
		Name:         req.Name,
		Price:        decimalToNumeric(price),
		Category:     req.Category,
		RequiresSide: req.RequiresSide,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, ErrItemNotFound
		}
		return database.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	return item, nil
}

// AdjustStock applies a signed delta and records a matching ledger entry in
// one transaction. Positive deltas are recorded as restocks, zero and
// negative deltas as adjustments. A delta that would drive stock below zero
// is rejected with ErrStockUnderflow and nothing is written.
func (s *InventoryService) AdjustStock(ctx context.Context, req AdjustStockRequest) (database.MenuItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.ApplyMenuItemStockDelta(ctx, database.ApplyMenuItemStockDeltaParams{
		ID:    req.MenuItemID,
		Delta: req.Delta,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, s.classifyDeltaFailure(ctx, store, req.MenuItemID)
		}
		return database.MenuItem{}, fmt.Errorf("apply stock delta: %w", err)
	}

	changeType := enum.ChangeTypeAdjustment
	if req.Delta > 0 {
		changeType = enum.ChangeTypeRestock
	}

	note := pgtype.Text{}
	if req.Note != "" {
		note = pgtype.Text{String: req.Note, Valid: true}
	}

	if _, err := store.CreateStockHistory(ctx, database.CreateStockHistoryParams{
		MenuItemID:     item.ID,
		MenuItemName:   item.Name,
		QuantityChange: req.Delta,
		StockBefore:    item.Stock - req.Delta,
		StockAfter:     item.Stock,
		ChangeType:     changeType,
		Note:           note,
		ActorID:        actorRef(req.ActorID),
	}); err != nil {
		return database.MenuItem{}, fmt.Errorf("create ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, nil
}

func (s *InventoryService) classifyDeltaFailure(ctx context.Context, store InventoryStore, id int64) error {
	if _, err := store.GetMenuItem(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("get menu item: %w", err)
	}
	return ErrStockUnderflow
}

// DeleteItem removes a catalog item and its ledger history. Items that
// appear in any order's line items cannot be deleted; order_items carries
// no DB-level foreign key to the catalog, so the referential check lives
// here.
func (s *InventoryService) DeleteItem(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Take the catalog row lock before counting references. A concurrent
	// order submission holds the same lock through its guarded decrement,
	// so the count cannot go stale between check and delete.
	if _, err := store.LockMenuItem(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("lock menu item: %w", err)
	}

	refs, err := store.CountOrderItemsByMenuItem(ctx, id)
	if err != nil {
		return fmt.Errorf("count order references: %w", err)
	}
	if refs > 0 {
		return ErrItemInUse
	}

	if err := store.DeleteStockHistoryByMenuItem(ctx, id); err != nil {
		return fmt.Errorf("delete stock history: %w", err)
	}

	affected, err := store.DeleteMenuItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}

	return tx.Commit(ctx)
}

// defaultHistoryLimit caps stock history listings when the caller does not
// ask for a specific page size.
const defaultHistoryLimit = 50

// StockHistoryFilter narrows a ledger listing.
type StockHistoryFilter struct {
	MenuItemID int64 // 0 = all items
	Limit      int32 // 0 = defaultHistoryLimit
}

// ListStockHistory returns ledger entries, newest first, with the acting
// user's name joined in where one was recorded.
func (s *InventoryService) ListStockHistory(ctx context.Context, filter StockHistoryFilter) ([]database.ListStockHistoryRow, error) {
	itemID := pgtype.Int8{}
	if filter.MenuItemID != 0 {
		itemID = pgtype.Int8{Int64: filter.MenuItemID, Valid: true}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.ListStockHistory(ctx, database.ListStockHistoryParams{
		MenuItemID: itemID,
		Limit:      limit,
	})
}

func actorRef(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
