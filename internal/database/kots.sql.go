package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const kotColumns = `id, branch_id, dining_order_id, kot_number, status, notes, created_by, created_at, updated_at`

func scanKot(row pgx.Row) (Kot, error) {
	var i Kot
	err := row.Scan(&i.ID, &i.BranchID, &i.DiningOrderID, &i.KotNumber, &i.Status, &i.Notes,
		&i.CreatedBy, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `SELECT (COALESCE(MAX(CAST(SUBSTRING(kot_number FROM 5) AS INTEGER)), 0) + 1)::int4
FROM kots
WHERE branch_id = $1`, branchID).Scan(&next)
	return next, err
}

type CreateKotParams struct {
	BranchID      uuid.UUID
	DiningOrderID uuid.UUID
	KotNumber     string
	Notes         pgtype.Text
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateKot(ctx context.Context, arg CreateKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO kots (branch_id, dining_order_id, kot_number, notes, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+kotColumns,
		arg.BranchID, arg.DiningOrderID, arg.KotNumber, arg.Notes, arg.CreatedBy)
	return scanKot(row)
}

type GetKotParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetKot(ctx context.Context, arg GetKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx, `SELECT `+kotColumns+` FROM kots
WHERE id = $1 AND branch_id = $2`, arg.ID, arg.BranchID)
	return scanKot(row)
}

func (q *Queries) ListKotsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]Kot, error) {
	rows, err := q.db.Query(ctx, `SELECT `+kotColumns+` FROM kots
WHERE dining_order_id = $1
ORDER BY created_at, kot_number`, diningOrderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanKot)
}

type ListActiveKotsParams struct {
	BranchID uuid.UUID
	Status   pgtype.Text
}

// ListActiveKots returns tickets still on the pass, oldest first. A status
// filter narrows to one state, including finished ones.
func (q *Queries) ListActiveKots(ctx context.Context, arg ListActiveKotsParams) ([]Kot, error) {
	rows, err := q.db.Query(ctx, `SELECT `+kotColumns+` FROM kots
WHERE branch_id = $1
  AND (($2::text IS NULL AND status IN ('PENDING', 'PREPARING', 'READY')) OR status = $2)
ORDER BY created_at
LIMIT 200`, arg.BranchID, arg.Status)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanKot)
}

type UpdateKotStatusParams struct {
	ID         uuid.UUID
	BranchID   uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateKotStatus only applies when the row still holds PrevStatus; a lost
// race surfaces as pgx.ErrNoRows.
func (q *Queries) UpdateKotStatus(ctx context.Context, arg UpdateKotStatusParams) (Kot, error) {
	row := q.db.QueryRow(ctx, `UPDATE kots SET status = $3, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND status = $4
RETURNING `+kotColumns, arg.ID, arg.BranchID, arg.Status, arg.PrevStatus)
	return scanKot(row)
}

func (q *Queries) CancelOpenKotsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]Kot, error) {
	rows, err := q.db.Query(ctx, `UPDATE kots SET status = 'CANCELLED', updated_at = now()
WHERE dining_order_id = $1 AND status IN ('PENDING', 'PREPARING')
RETURNING `+kotColumns, diningOrderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanKot)
}

const kotItemColumns = `id, kot_id, menu_item_id, item_name, quantity, unit_price, notes, station, created_at`

func scanKotItem(row pgx.Row) (KotItem, error) {
	var i KotItem
	err := row.Scan(&i.ID, &i.KotID, &i.MenuItemID, &i.ItemName, &i.Quantity, &i.UnitPrice,
		&i.Notes, &i.Station, &i.CreatedAt)
	return i, err
}

type CreateKotItemParams struct {
	KotID      uuid.UUID
	MenuItemID uuid.UUID
	ItemName   string
	Quantity   int32
	UnitPrice  decimal.Decimal
	Notes      pgtype.Text
	Station    string
}

func (q *Queries) CreateKotItem(ctx context.Context, arg CreateKotItemParams) (KotItem, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO kot_items (kot_id, menu_item_id, item_name, quantity, unit_price, notes, station)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+kotItemColumns,
		arg.KotID, arg.MenuItemID, arg.ItemName, arg.Quantity, arg.UnitPrice, arg.Notes, arg.Station)
	return scanKotItem(row)
}

func (q *Queries) ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]KotItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+kotItemColumns+` FROM kot_items
WHERE kot_id = $1
ORDER BY created_at, id`, kotID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanKotItem)
}

type ListBillableItemsByOrderRow struct {
	KotItemID    uuid.UUID
	MenuItemID   uuid.UUID
	ItemName     string
	Quantity     int32
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	TaxInclusive bool
}

// ListBillableItemsByOrder joins each non-cancelled KOT item with the current
// tax of its menu item. Items without an active tax carry a zero rate.
func (q *Queries) ListBillableItemsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]ListBillableItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, `SELECT ki.id, ki.menu_item_id, ki.item_name, ki.quantity, ki.unit_price,
       COALESCE(t.rate, 0)::numeric, COALESCE(t.is_inclusive, false)
FROM kot_items ki
JOIN kots k ON k.id = ki.kot_id
JOIN menu_items mi ON mi.id = ki.menu_item_id
LEFT JOIN taxes t ON t.id = mi.tax_id AND t.is_active = true
WHERE k.dining_order_id = $1 AND k.status <> 'CANCELLED'
ORDER BY k.created_at, ki.created_at, ki.id`, diningOrderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (ListBillableItemsByOrderRow, error) {
		var i ListBillableItemsByOrderRow
		err := row.Scan(&i.KotItemID, &i.MenuItemID, &i.ItemName, &i.Quantity, &i.UnitPrice,
			&i.TaxRate, &i.TaxInclusive)
		return i, err
	})
}
