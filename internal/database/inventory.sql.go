package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const inventoryItemColumns = `id, branch_id, supplier_id, sku, name, unit, quantity, reorder_level, cost_price, is_active, created_at, updated_at`

func scanInventoryItem(row pgx.Row) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(&i.ID, &i.BranchID, &i.SupplierID, &i.Sku, &i.Name, &i.Unit, &i.Quantity,
		&i.ReorderLevel, &i.CostPrice, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListInventoryItems(ctx context.Context, branchID uuid.UUID) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+inventoryItemColumns+` FROM inventory_items
WHERE branch_id = $1 AND is_active = true
ORDER BY name`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInventoryItem)
}

func (q *Queries) ListLowStockItems(ctx context.Context, branchID uuid.UUID) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+inventoryItemColumns+` FROM inventory_items
WHERE branch_id = $1 AND is_active = true AND quantity <= reorder_level
ORDER BY (quantity - reorder_level), name`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInventoryItem)
}

type GetInventoryItemParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetInventoryItem(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+inventoryItemColumns+` FROM inventory_items
WHERE id = $1 AND branch_id = $2 AND is_active = true`, arg.ID, arg.BranchID)
	return scanInventoryItem(row)
}

func (q *Queries) GetInventoryItemForUpdate(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+inventoryItemColumns+` FROM inventory_items
WHERE id = $1 AND branch_id = $2 AND is_active = true
FOR UPDATE`, arg.ID, arg.BranchID)
	return scanInventoryItem(row)
}

type CreateInventoryItemParams struct {
	BranchID     uuid.UUID
	SupplierID   pgtype.UUID
	Sku          string
	Name         string
	Unit         string
	Quantity     decimal.Decimal
	ReorderLevel decimal.Decimal
	CostPrice    decimal.Decimal
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO inventory_items (branch_id, supplier_id, sku, name, unit, quantity, reorder_level, cost_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+inventoryItemColumns,
		arg.BranchID, arg.SupplierID, arg.Sku, arg.Name, arg.Unit, arg.Quantity, arg.ReorderLevel, arg.CostPrice)
	return scanInventoryItem(row)
}

// UpdateInventoryItemParams leaves quantity out; stock only moves through
// adjustments so every change has a movement row.
type UpdateInventoryItemParams struct {
	ID           uuid.UUID
	BranchID     uuid.UUID
	SupplierID   pgtype.UUID
	Sku          string
	Name         string
	Unit         string
	ReorderLevel decimal.Decimal
	CostPrice    decimal.Decimal
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `UPDATE inventory_items
SET supplier_id = $3, sku = $4, name = $5, unit = $6, reorder_level = $7, cost_price = $8, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING `+inventoryItemColumns,
		arg.ID, arg.BranchID, arg.SupplierID, arg.Sku, arg.Name, arg.Unit, arg.ReorderLevel, arg.CostPrice)
	return scanInventoryItem(row)
}

type SoftDeleteInventoryItemParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) SoftDeleteInventoryItem(ctx context.Context, arg SoftDeleteInventoryItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE inventory_items SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}

type SetInventoryQuantityParams struct {
	ID       uuid.UUID
	Quantity decimal.Decimal
}

func (q *Queries) SetInventoryQuantity(ctx context.Context, arg SetInventoryQuantityParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, `UPDATE inventory_items SET quantity = $2, updated_at = now()
WHERE id = $1
RETURNING `+inventoryItemColumns, arg.ID, arg.Quantity)
	return scanInventoryItem(row)
}

const stockMovementColumns = `id, inventory_item_id, delta, quantity_after, reason, created_by, created_at`

func scanStockMovement(row pgx.Row) (StockMovement, error) {
	var i StockMovement
	err := row.Scan(&i.ID, &i.InventoryItemID, &i.Delta, &i.QuantityAfter, &i.Reason, &i.CreatedBy, &i.CreatedAt)
	return i, err
}

type CreateStockMovementParams struct {
	InventoryItemID uuid.UUID
	Delta           decimal.Decimal
	QuantityAfter   decimal.Decimal
	Reason          string
	CreatedBy       uuid.UUID
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO stock_movements (inventory_item_id, delta, quantity_after, reason, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+stockMovementColumns,
		arg.InventoryItemID, arg.Delta, arg.QuantityAfter, arg.Reason, arg.CreatedBy)
	return scanStockMovement(row)
}

func (q *Queries) ListStockMovements(ctx context.Context, inventoryItemID uuid.UUID) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, `SELECT `+stockMovementColumns+` FROM stock_movements
WHERE inventory_item_id = $1
ORDER BY created_at DESC
LIMIT 200`, inventoryItemID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStockMovement)
}
