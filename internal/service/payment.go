package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PaymentStore defines the DB methods needed to settle bills.
// Satisfied by *database.Queries.
type PaymentStore interface {
	GetBillForUpdate(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
	GetSplitBillForUpdate(ctx context.Context, arg database.GetSplitBillParams) (database.SplitBill, error)
	SumPaymentsByBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	MarkSplitBillPaid(ctx context.Context, id uuid.UUID) (database.SplitBill, error)
	CountUnpaidSplitBills(ctx context.Context, billID uuid.UUID) (int64, error)
	MarkBillPaid(ctx context.Context, id uuid.UUID) (database.Bill, error)
	UpdateDiningOrderStatus(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error)
}

type NewPaymentStore func(db database.DBTX) PaymentStore

// RecordPaymentRequest is one tender against a bill or one of its splits.
type RecordPaymentRequest struct {
	BranchID        uuid.UUID
	BillID          uuid.UUID
	ProcessedBy     uuid.UUID
	Method          string
	Amount          decimal.Decimal
	AmountReceived  decimal.NullDecimal
	ReferenceNumber string
	SplitBillID     *uuid.UUID
}

// PaymentResult is the recorded payment with the bill (and split) as they
// stand afterwards.
type PaymentResult struct {
	Payment database.Payment    `json:"payment"`
	Bill    database.Bill       `json:"bill"`
	Split   *database.SplitBill `json:"split,omitempty"`
}

// PaymentService records payments and closes fully paid bills.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore}
}

// RecordPayment writes a payment under the bill row lock. A split bill is
// paid one part at a time, each for its exact amount. An unsplit bill takes
// partial payments up to its total. Once nothing is outstanding the bill is
// PAID and its order CLOSED.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (result *PaymentResult, err error) {
	ctx, span := tracer.Start(ctx, "PaymentService.RecordPayment",
		trace.WithAttributes(
			attribute.String("bill_id", req.BillID.String()),
			attribute.String("payment_method", req.Method),
		))
	defer func() { endSpan(span, err) }()

	if !validPaymentMethod(req.Method) {
		return nil, ErrInvalidPaymentMethod
	}
	req.Amount = round2(req.Amount)
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	change := decimal.NullDecimal{}
	received := decimal.NullDecimal{}
	if req.Method == enum.PaymentMethodCash {
		if !req.AmountReceived.Valid || req.AmountReceived.Decimal.LessThan(req.Amount) {
			return nil, ErrInsufficientCash
		}
		received = decimal.NullDecimal{Decimal: round2(req.AmountReceived.Decimal), Valid: true}
		change = decimal.NullDecimal{Decimal: received.Decimal.Sub(req.Amount), Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	bill, err := store.GetBillForUpdate(ctx, database.GetBillParams{ID: req.BillID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("lock bill: %w", err)
	}
	switch bill.Status {
	case enum.BillStatusPaid:
		return nil, ErrBillAlreadyPaid
	case enum.BillStatusVoid:
		return nil, ErrBillVoided
	}

	params := database.CreatePaymentParams{
		BillID:          bill.ID,
		PaymentMethod:   req.Method,
		Amount:          req.Amount,
		AmountReceived:  received,
		ChangeAmount:    change,
		ReferenceNumber: textOrNull(req.ReferenceNumber),
		ProcessedBy:     req.ProcessedBy,
	}

	var (
		split   *database.SplitBill
		settled bool
	)
	if bill.Status == enum.BillStatusSplit {
		if req.SplitBillID == nil {
			return nil, ErrSplitRequired
		}
		sb, err := store.GetSplitBillForUpdate(ctx, database.GetSplitBillParams{ID: *req.SplitBillID, BillID: bill.ID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrSplitNotFound
			}
			return nil, fmt.Errorf("lock split bill: %w", err)
		}
		if sb.Status == enum.SplitBillStatusPaid {
			return nil, ErrSplitAlreadyPaid
		}
		if !req.Amount.Equal(sb.Amount) {
			return nil, ErrSplitAmountMismatch
		}
		params.SplitBillID = pgtype.UUID{Bytes: sb.ID, Valid: true}

		payment, err := store.CreatePayment(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		sb, err = store.MarkSplitBillPaid(ctx, sb.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrSplitAlreadyPaid
			}
			return nil, fmt.Errorf("mark split bill paid: %w", err)
		}
		split = &sb

		unpaid, err := store.CountUnpaidSplitBills(ctx, bill.ID)
		if err != nil {
			return nil, fmt.Errorf("count unpaid splits: %w", err)
		}
		settled = unpaid == 0
		result = &PaymentResult{Payment: payment}
	} else {
		if req.SplitBillID != nil {
			return nil, ErrBillNotSplit
		}
		paid, err := store.SumPaymentsByBill(ctx, bill.ID)
		if err != nil {
			return nil, fmt.Errorf("sum payments: %w", err)
		}
		after := paid.Add(req.Amount)
		if after.GreaterThan(bill.TotalAmount) {
			return nil, ErrOverpayment
		}

		payment, err := store.CreatePayment(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		settled = after.Equal(bill.TotalAmount)
		result = &PaymentResult{Payment: payment}
	}

	if settled {
		bill, err = store.MarkBillPaid(ctx, bill.ID)
		if err != nil {
			return nil, fmt.Errorf("mark bill paid: %w", err)
		}
		if _, err := store.UpdateDiningOrderStatus(ctx, database.UpdateDiningOrderStatusParams{
			ID:     bill.DiningOrderID,
			Status: enum.DiningOrderStatusClosed,
		}); err != nil {
			return nil, fmt.Errorf("close order: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result.Bill = bill
	result.Split = split
	return result, nil
}

func validPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodQRIS, enum.PaymentMethodTransfer:
		return true
	}
	return false
}
