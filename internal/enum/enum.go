package enum

// ── Order lifecycle (CHECK constrained in DB) ──
// Single one-way edge: pending → ready. Ready is terminal.

const (
	OrderStatusPending = "pending"
	OrderStatusReady   = "ready"
)

// ── Stock ledger change types (CHECK constrained in DB) ──

const (
	ChangeTypeSale       = "sale"
	ChangeTypeRestock    = "restock"
	ChangeTypeAdjustment = "adjustment"
	ChangeTypeInitial    = "initial"
)

// ── Staff roles (CHECK constrained in DB) ──
// The puncher is the inventory role: catalog and stock management.

const (
	RoleCashier = "cashier"
	RoleKitchen = "kitchen"
	RoleAdmin   = "admin"
	RolePuncher = "puncher"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

const (
	CategoryMeat   = "Meat"
	CategorySides  = "Sides"
	CategoryDrinks = "Drinks"
)
