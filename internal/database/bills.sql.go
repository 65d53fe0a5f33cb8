package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const billColumns = `id, branch_id, dining_order_id, bill_number, status, subtotal, discount_amount, tax_amount, total_amount, voucher_id, created_by, created_at, updated_at, paid_at`

func scanBill(row pgx.Row) (Bill, error) {
	var i Bill
	err := row.Scan(&i.ID, &i.BranchID, &i.DiningOrderID, &i.BillNumber, &i.Status, &i.Subtotal,
		&i.DiscountAmount, &i.TaxAmount, &i.TotalAmount, &i.VoucherID, &i.CreatedBy,
		&i.CreatedAt, &i.UpdatedAt, &i.PaidAt)
	return i, err
}

func (q *Queries) GetNextBillNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `SELECT (COALESCE(MAX(CAST(SUBSTRING(bill_number FROM 6) AS INTEGER)), 0) + 1)::int4
FROM bills
WHERE branch_id = $1`, branchID).Scan(&next)
	return next, err
}

type CreateBillParams struct {
	BranchID       uuid.UUID
	DiningOrderID  uuid.UUID
	BillNumber     string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	VoucherID      pgtype.UUID
	CreatedBy      uuid.UUID
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO bills (branch_id, dining_order_id, bill_number, subtotal, discount_amount, tax_amount, total_amount, voucher_id, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+billColumns,
		arg.BranchID, arg.DiningOrderID, arg.BillNumber, arg.Subtotal, arg.DiscountAmount,
		arg.TaxAmount, arg.TotalAmount, arg.VoucherID, arg.CreatedBy)
	return scanBill(row)
}

type GetBillParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetBill(ctx context.Context, arg GetBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills
WHERE id = $1 AND branch_id = $2`, arg.ID, arg.BranchID)
	return scanBill(row)
}

func (q *Queries) GetBillForUpdate(ctx context.Context, arg GetBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills
WHERE id = $1 AND branch_id = $2
FOR UPDATE`, arg.ID, arg.BranchID)
	return scanBill(row)
}

// GetLiveBillByOrder returns the order's bill that has not been voided.
func (q *Queries) GetLiveBillByOrder(ctx context.Context, diningOrderID uuid.UUID) (Bill, error) {
	row := q.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills
WHERE dining_order_id = $1 AND status <> 'VOID'`, diningOrderID)
	return scanBill(row)
}

type UpdateBillStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateBillStatus(ctx context.Context, arg UpdateBillStatusParams) (Bill, error) {
	row := q.db.QueryRow(ctx, `UPDATE bills SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+billColumns, arg.ID, arg.Status)
	return scanBill(row)
}

func (q *Queries) MarkBillPaid(ctx context.Context, id uuid.UUID) (Bill, error) {
	row := q.db.QueryRow(ctx, `UPDATE bills SET status = 'PAID', paid_at = now(), updated_at = now()
WHERE id = $1
RETURNING `+billColumns, id)
	return scanBill(row)
}

const billItemColumns = `id, bill_id, kot_item_id, menu_item_id, split_bill_id, item_name, quantity, unit_price, tax_rate, tax_inclusive, tax_amount, line_total, position`

func scanBillItem(row pgx.Row) (BillItem, error) {
	var i BillItem
	err := row.Scan(&i.ID, &i.BillID, &i.KotItemID, &i.MenuItemID, &i.SplitBillID, &i.ItemName,
		&i.Quantity, &i.UnitPrice, &i.TaxRate, &i.TaxInclusive, &i.TaxAmount, &i.LineTotal, &i.Position)
	return i, err
}

type CreateBillItemParams struct {
	BillID       uuid.UUID
	KotItemID    uuid.UUID
	MenuItemID   uuid.UUID
	ItemName     string
	Quantity     int32
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	TaxInclusive bool
	TaxAmount    decimal.Decimal
	LineTotal    decimal.Decimal
	Position     int32
}

func (q *Queries) CreateBillItem(ctx context.Context, arg CreateBillItemParams) (BillItem, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO bill_items (bill_id, kot_item_id, menu_item_id, item_name, quantity, unit_price, tax_rate, tax_inclusive, tax_amount, line_total, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+billItemColumns,
		arg.BillID, arg.KotItemID, arg.MenuItemID, arg.ItemName, arg.Quantity, arg.UnitPrice,
		arg.TaxRate, arg.TaxInclusive, arg.TaxAmount, arg.LineTotal, arg.Position)
	return scanBillItem(row)
}

func (q *Queries) ListBillItems(ctx context.Context, billID uuid.UUID) ([]BillItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+billItemColumns+` FROM bill_items
WHERE bill_id = $1
ORDER BY position`, billID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBillItem)
}

type AssignBillItemSplitParams struct {
	ID          uuid.UUID
	SplitBillID pgtype.UUID
}

func (q *Queries) AssignBillItemSplit(ctx context.Context, arg AssignBillItemSplitParams) error {
	_, err := q.db.Exec(ctx, `UPDATE bill_items SET split_bill_id = $2 WHERE id = $1`, arg.ID, arg.SplitBillID)
	return err
}

func (q *Queries) ClearBillItemSplits(ctx context.Context, billID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE bill_items SET split_bill_id = NULL WHERE bill_id = $1`, billID)
	return err
}

// --- split bills ---

const splitBillColumns = `id, bill_id, split_number, amount, status, created_at, paid_at`

func scanSplitBill(row pgx.Row) (SplitBill, error) {
	var i SplitBill
	err := row.Scan(&i.ID, &i.BillID, &i.SplitNumber, &i.Amount, &i.Status, &i.CreatedAt, &i.PaidAt)
	return i, err
}

type CreateSplitBillParams struct {
	BillID      uuid.UUID
	SplitNumber int32
	Amount      decimal.Decimal
}

func (q *Queries) CreateSplitBill(ctx context.Context, arg CreateSplitBillParams) (SplitBill, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO split_bills (bill_id, split_number, amount)
VALUES ($1, $2, $3)
RETURNING `+splitBillColumns, arg.BillID, arg.SplitNumber, arg.Amount)
	return scanSplitBill(row)
}

func (q *Queries) ListSplitBillsByBill(ctx context.Context, billID uuid.UUID) ([]SplitBill, error) {
	rows, err := q.db.Query(ctx, `SELECT `+splitBillColumns+` FROM split_bills
WHERE bill_id = $1
ORDER BY split_number`, billID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSplitBill)
}

type GetSplitBillParams struct {
	ID     uuid.UUID
	BillID uuid.UUID
}

func (q *Queries) GetSplitBillForUpdate(ctx context.Context, arg GetSplitBillParams) (SplitBill, error) {
	row := q.db.QueryRow(ctx, `SELECT `+splitBillColumns+` FROM split_bills
WHERE id = $1 AND bill_id = $2
FOR UPDATE`, arg.ID, arg.BillID)
	return scanSplitBill(row)
}

func (q *Queries) MarkSplitBillPaid(ctx context.Context, id uuid.UUID) (SplitBill, error) {
	row := q.db.QueryRow(ctx, `UPDATE split_bills SET status = 'PAID', paid_at = now()
WHERE id = $1 AND status = 'UNPAID'
RETURNING `+splitBillColumns, id)
	return scanSplitBill(row)
}

func (q *Queries) CountUnpaidSplitBills(ctx context.Context, billID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM split_bills
WHERE bill_id = $1 AND status = 'UNPAID'`, billID).Scan(&count)
	return count, err
}

func (q *Queries) DeleteSplitBillsByBill(ctx context.Context, billID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM split_bills WHERE bill_id = $1`, billID)
	return err
}
