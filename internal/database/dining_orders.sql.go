package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const diningOrderColumns = `id, branch_id, order_number, order_type, status, table_number, guest_count, notes, created_by, created_at, updated_at, closed_at`

func scanDiningOrder(row pgx.Row) (DiningOrder, error) {
	var i DiningOrder
	err := row.Scan(&i.ID, &i.BranchID, &i.OrderNumber, &i.OrderType, &i.Status, &i.TableNumber,
		&i.GuestCount, &i.Notes, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt, &i.ClosedAt)
	return i, err
}

// GetNextOrderNumber reads MAX+1 of the numeric suffix of ORD-NNNN. Two
// concurrent callers can get the same value; the unique constraint catches it.
func (q *Queries) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `SELECT (COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1)::int4
FROM dining_orders
WHERE branch_id = $1`, branchID).Scan(&next)
	return next, err
}

type CreateDiningOrderParams struct {
	BranchID    uuid.UUID
	OrderNumber string
	OrderType   string
	TableNumber pgtype.Text
	GuestCount  int32
	Notes       pgtype.Text
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateDiningOrder(ctx context.Context, arg CreateDiningOrderParams) (DiningOrder, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO dining_orders (branch_id, order_number, order_type, table_number, guest_count, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+diningOrderColumns,
		arg.BranchID, arg.OrderNumber, arg.OrderType, arg.TableNumber, arg.GuestCount, arg.Notes, arg.CreatedBy)
	return scanDiningOrder(row)
}

type GetDiningOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetDiningOrder(ctx context.Context, arg GetDiningOrderParams) (DiningOrder, error) {
	row := q.db.QueryRow(ctx, `SELECT `+diningOrderColumns+` FROM dining_orders
WHERE id = $1 AND branch_id = $2`, arg.ID, arg.BranchID)
	return scanDiningOrder(row)
}

func (q *Queries) GetDiningOrderForUpdate(ctx context.Context, arg GetDiningOrderParams) (DiningOrder, error) {
	row := q.db.QueryRow(ctx, `SELECT `+diningOrderColumns+` FROM dining_orders
WHERE id = $1 AND branch_id = $2
FOR UPDATE`, arg.ID, arg.BranchID)
	return scanDiningOrder(row)
}

type ListDiningOrdersParams struct {
	BranchID  uuid.UUID
	Status    pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListDiningOrders(ctx context.Context, arg ListDiningOrdersParams) ([]DiningOrder, error) {
	rows, err := q.db.Query(ctx, `SELECT `+diningOrderColumns+` FROM dining_orders
WHERE branch_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`, arg.BranchID, arg.Status, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDiningOrder)
}

type UpdateDiningOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

// UpdateDiningOrderStatus stamps closed_at when the order reaches CLOSED or
// CANCELLED and clears it otherwise.
func (q *Queries) UpdateDiningOrderStatus(ctx context.Context, arg UpdateDiningOrderStatusParams) (DiningOrder, error) {
	row := q.db.QueryRow(ctx, `UPDATE dining_orders
SET status = $2,
    closed_at = CASE WHEN $2 IN ('CLOSED', 'CANCELLED') THEN now() ELSE NULL END,
    updated_at = now()
WHERE id = $1
RETURNING `+diningOrderColumns, arg.ID, arg.Status)
	return scanDiningOrder(row)
}
