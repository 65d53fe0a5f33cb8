package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, bill_id, split_bill_id, payment_method, amount, amount_received, change_amount, reference_number, processed_by, processed_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(&i.ID, &i.BillID, &i.SplitBillID, &i.PaymentMethod, &i.Amount, &i.AmountReceived,
		&i.ChangeAmount, &i.ReferenceNumber, &i.ProcessedBy, &i.ProcessedAt)
	return i, err
}

type CreatePaymentParams struct {
	BillID          uuid.UUID
	SplitBillID     pgtype.UUID
	PaymentMethod   string
	Amount          decimal.Decimal
	AmountReceived  decimal.NullDecimal
	ChangeAmount    decimal.NullDecimal
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO payments (bill_id, split_bill_id, payment_method, amount, amount_received, change_amount, reference_number, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+paymentColumns,
		arg.BillID, arg.SplitBillID, arg.PaymentMethod, arg.Amount, arg.AmountReceived,
		arg.ChangeAmount, arg.ReferenceNumber, arg.ProcessedBy)
	return scanPayment(row)
}

func (q *Queries) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments
WHERE bill_id = $1
ORDER BY processed_at`, billID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayment)
}

func (q *Queries) SumPaymentsByBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::numeric FROM payments WHERE bill_id = $1`, billID).Scan(&total)
	return total, err
}

func (q *Queries) CountPaymentsByBill(ctx context.Context, billID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE bill_id = $1`, billID).Scan(&count)
	return count, err
}
