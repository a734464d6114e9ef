package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             int64
	Username       string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

type MenuItem struct {
	ID           int64
	Name         string
	Price        pgtype.Numeric
	Category     string
	Stock        int32
	RequiresSide bool
	CreatedAt    time.Time
}

type Order struct {
	ID            int64
	CustomerName  string
	Total         pgtype.Numeric
	Status        string
	PaymentMethod string
	CreatedAt     time.Time
	ReadyBy       time.Time
	CompletedAt   pgtype.Timestamptz
	CashierID     pgtype.Int8
}

type OrderItem struct {
	ID           int64
	OrderID      int64
	MenuItemID   int64
	MenuItemName string
	Quantity     int32
	Price        pgtype.Numeric
	SideOption   pgtype.Text
}

type StockHistory struct {
	ID             int64
	MenuItemID     int64
	MenuItemName   string
	QuantityChange int32
	StockBefore    int32
	StockAfter     int32
	ChangeType     string
	Note           pgtype.Text
	ActorID        pgtype.Int8
	CreatedAt      time.Time
}
