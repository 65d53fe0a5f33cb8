package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Organisation struct {
	ID        uuid.UUID   `json:"id"`
	TenantID  uuid.UUID   `json:"tenant_id"`
	Name      string      `json:"name"`
	LegalName pgtype.Text `json:"legal_name"`
	TaxNumber pgtype.Text `json:"tax_number"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Branch struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	OrganisationID uuid.UUID   `json:"organisation_id"`
	Name           string      `json:"name"`
	Address        pgtype.Text `json:"address"`
	Phone          pgtype.Text `json:"phone"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	BranchID       pgtype.UUID `json:"branch_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           string      `json:"role"`
	Pin            pgtype.Text `json:"pin"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Tax struct {
	ID          uuid.UUID       `json:"id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"`
	IsInclusive bool            `json:"is_inclusive"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	TaxID       pgtype.UUID     `json:"tax_id"`
	Name        string          `json:"name"`
	Description pgtype.Text     `json:"description"`
	Category    pgtype.Text     `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Station     string          `json:"station"`
	IsAvailable bool            `json:"is_available"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Supplier struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	OrganisationID uuid.UUID   `json:"organisation_id"`
	Name           string      `json:"name"`
	ContactName    pgtype.Text `json:"contact_name"`
	Phone          pgtype.Text `json:"phone"`
	Email          pgtype.Text `json:"email"`
	Address        pgtype.Text `json:"address"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type InventoryItem struct {
	ID           uuid.UUID       `json:"id"`
	BranchID     uuid.UUID       `json:"branch_id"`
	SupplierID   pgtype.UUID     `json:"supplier_id"`
	Sku          string          `json:"sku"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type StockMovement struct {
	ID              uuid.UUID       `json:"id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Delta           decimal.Decimal `json:"delta"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
	Reason          string          `json:"reason"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Voucher struct {
	ID            uuid.UUID           `json:"id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	Code          string              `json:"code"`
	DiscountType  string              `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	MinSpend      decimal.Decimal     `json:"min_spend"`
	MaxUses       pgtype.Int4         `json:"max_uses"`
	UsedCount     int32               `json:"used_count"`
	ValidFrom     pgtype.Timestamptz  `json:"valid_from"`
	ValidUntil    pgtype.Timestamptz  `json:"valid_until"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type DiningOrder struct {
	ID          uuid.UUID          `json:"id"`
	BranchID    uuid.UUID          `json:"branch_id"`
	OrderNumber string             `json:"order_number"`
	OrderType   string             `json:"order_type"`
	Status      string             `json:"status"`
	TableNumber pgtype.Text        `json:"table_number"`
	GuestCount  int32              `json:"guest_count"`
	Notes       pgtype.Text        `json:"notes"`
	CreatedBy   uuid.UUID          `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	ClosedAt    pgtype.Timestamptz `json:"closed_at"`
}

type Kot struct {
	ID            uuid.UUID   `json:"id"`
	BranchID      uuid.UUID   `json:"branch_id"`
	DiningOrderID uuid.UUID   `json:"dining_order_id"`
	KotNumber     string      `json:"kot_number"`
	Status        string      `json:"status"`
	Notes         pgtype.Text `json:"notes"`
	CreatedBy     uuid.UUID   `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type KotItem struct {
	ID         uuid.UUID       `json:"id"`
	KotID      uuid.UUID       `json:"kot_id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	ItemName   string          `json:"item_name"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      pgtype.Text     `json:"notes"`
	Station    string          `json:"station"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Bill struct {
	ID             uuid.UUID          `json:"id"`
	BranchID       uuid.UUID          `json:"branch_id"`
	DiningOrderID  uuid.UUID          `json:"dining_order_id"`
	BillNumber     string             `json:"bill_number"`
	Status         string             `json:"status"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	VoucherID      pgtype.UUID        `json:"voucher_id"`
	CreatedBy      uuid.UUID          `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	PaidAt         pgtype.Timestamptz `json:"paid_at"`
}

type BillItem struct {
	ID           uuid.UUID       `json:"id"`
	BillID       uuid.UUID       `json:"bill_id"`
	KotItemID    uuid.UUID       `json:"kot_item_id"`
	MenuItemID   uuid.UUID       `json:"menu_item_id"`
	SplitBillID  pgtype.UUID     `json:"split_bill_id"`
	ItemName     string          `json:"item_name"`
	Quantity     int32           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Position     int32           `json:"position"`
}

type SplitBill struct {
	ID          uuid.UUID          `json:"id"`
	BillID      uuid.UUID          `json:"bill_id"`
	SplitNumber int32              `json:"split_number"`
	Amount      decimal.Decimal    `json:"amount"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	PaidAt      pgtype.Timestamptz `json:"paid_at"`
}

type Payment struct {
	ID              uuid.UUID           `json:"id"`
	BillID          uuid.UUID           `json:"bill_id"`
	SplitBillID     pgtype.UUID         `json:"split_bill_id"`
	PaymentMethod   string              `json:"payment_method"`
	Amount          decimal.Decimal     `json:"amount"`
	AmountReceived  decimal.NullDecimal `json:"amount_received"`
	ChangeAmount    decimal.NullDecimal `json:"change_amount"`
	ReferenceNumber pgtype.Text         `json:"reference_number"`
	ProcessedBy     uuid.UUID           `json:"processed_by"`
	ProcessedAt     time.Time           `json:"processed_at"`
}
