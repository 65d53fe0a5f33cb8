package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type ReportRangeParams struct {
	BranchID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

type GetDailySalesRow struct {
	Day           pgtype.Date     `json:"day"`
	BillCount     int64           `json:"bill_count"`
	GrossSales    decimal.Decimal `json:"gross_sales"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	NetSales      decimal.Decimal `json:"net_sales"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg ReportRangeParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, `SELECT (paid_at AT TIME ZONE 'UTC')::date AS day,
       COUNT(*) AS bill_count,
       COALESCE(SUM(subtotal), 0)::numeric AS gross_sales,
       COALESCE(SUM(discount_amount), 0)::numeric AS discount_total,
       COALESCE(SUM(tax_amount), 0)::numeric AS tax_total,
       COALESCE(SUM(total_amount), 0)::numeric AS net_sales
FROM bills
WHERE branch_id = $1 AND status = 'PAID' AND paid_at >= $2 AND paid_at < $3
GROUP BY day
ORDER BY day`, arg.BranchID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (GetDailySalesRow, error) {
		var i GetDailySalesRow
		err := row.Scan(&i.Day, &i.BillCount, &i.GrossSales, &i.DiscountTotal, &i.TaxTotal, &i.NetSales)
		return i, err
	})
}

type GetPaymentSummaryRow struct {
	PaymentMethod string          `json:"payment_method"`
	PaymentCount  int64           `json:"payment_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg ReportRangeParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, `SELECT p.payment_method, COUNT(*) AS payment_count,
       COALESCE(SUM(p.amount), 0)::numeric AS total_amount
FROM payments p
JOIN bills b ON b.id = p.bill_id
WHERE b.branch_id = $1 AND b.status <> 'VOID' AND p.processed_at >= $2 AND p.processed_at < $3
GROUP BY p.payment_method
ORDER BY p.payment_method`, arg.BranchID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (GetPaymentSummaryRow, error) {
		var i GetPaymentSummaryRow
		err := row.Scan(&i.PaymentMethod, &i.PaymentCount, &i.TotalAmount)
		return i, err
	})
}

type ListPaidBillsRow struct {
	BillNumber     string
	OrderNumber    string
	OrderType      string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	PaidAt         time.Time
}

func (q *Queries) ListPaidBills(ctx context.Context, arg ReportRangeParams) ([]ListPaidBillsRow, error) {
	rows, err := q.db.Query(ctx, `SELECT b.bill_number, o.order_number, o.order_type, b.subtotal,
       b.discount_amount, b.tax_amount, b.total_amount, b.paid_at
FROM bills b
JOIN dining_orders o ON o.id = b.dining_order_id
WHERE b.branch_id = $1 AND b.status = 'PAID' AND b.paid_at >= $2 AND b.paid_at < $3
ORDER BY b.paid_at`, arg.BranchID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (ListPaidBillsRow, error) {
		var i ListPaidBillsRow
		err := row.Scan(&i.BillNumber, &i.OrderNumber, &i.OrderType, &i.Subtotal, &i.DiscountAmount,
			&i.TaxAmount, &i.TotalAmount, &i.PaidAt)
		return i, err
	})
}
