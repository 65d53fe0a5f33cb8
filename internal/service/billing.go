package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/cache"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	minSplitParts = 2
	maxSplitParts = 20
)

// BillingStore defines the DB methods needed to bill, split and void.
// Satisfied by *database.Queries.
type BillingStore interface {
	GetDiningOrderForUpdate(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error)
	UpdateDiningOrderStatus(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error)
	GetLiveBillByOrder(ctx context.Context, diningOrderID uuid.UUID) (database.Bill, error)
	ListBillableItemsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]database.ListBillableItemsByOrderRow, error)
	GetVoucherByCodeForUpdate(ctx context.Context, arg database.GetVoucherByCodeParams) (database.Voucher, error)
	IncrementVoucherUse(ctx context.Context, id uuid.UUID) (int32, error)
	ReleaseVoucherUse(ctx context.Context, id uuid.UUID) error
	GetNextBillNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error)
	CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error)
	GetBillForUpdate(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
	UpdateBillStatus(ctx context.Context, arg database.UpdateBillStatusParams) (database.Bill, error)
	MarkBillPaid(ctx context.Context, id uuid.UUID) (database.Bill, error)
	ListBillItems(ctx context.Context, billID uuid.UUID) ([]database.BillItem, error)
	CountPaymentsByBill(ctx context.Context, billID uuid.UUID) (int64, error)
	ClearBillItemSplits(ctx context.Context, billID uuid.UUID) error
	DeleteSplitBillsByBill(ctx context.Context, billID uuid.UUID) error
	CreateSplitBill(ctx context.Context, arg database.CreateSplitBillParams) (database.SplitBill, error)
	AssignBillItemSplit(ctx context.Context, arg database.AssignBillItemSplitParams) error
}

type NewBillingStore func(db database.DBTX) BillingStore

// GenerateBillRequest bills an open order, optionally redeeming a voucher.
type GenerateBillRequest struct {
	BranchID    uuid.UUID
	OrderID     uuid.UUID
	CreatedBy   uuid.UUID
	VoucherCode string
}

// BillResult is a bill with its lines and split parts.
type BillResult struct {
	Bill   database.Bill        `json:"bill"`
	Items  []database.BillItem  `json:"items"`
	Splits []database.SplitBill `json:"splits"`
}

// BillingService turns orders into bills and manages equal splits.
type BillingService struct {
	pool     TxBeginner
	newStore NewBillingStore
	locker   cache.Locker
	now      func() time.Time
}

func NewBillingService(pool TxBeginner, newStore NewBillingStore, locker cache.Locker) *BillingService {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	return &BillingService{pool: pool, newStore: newStore, locker: locker, now: time.Now}
}

// GenerateBill prices every line of the order's live tickets, applies the
// voucher and writes the bill and its items in one transaction. Tax is
// computed per line on the undiscounted price. A bill whose total comes to
// zero is settled immediately.
func (s *BillingService) GenerateBill(ctx context.Context, req GenerateBillRequest) (result *BillResult, err error) {
	ctx, span := tracer.Start(ctx, "BillingService.GenerateBill",
		trace.WithAttributes(attribute.String("order_id", req.OrderID.String())))
	defer func() { endSpan(span, err) }()

	return withNumberRetry(func() (*BillResult, error) {
		return s.generateBillTx(ctx, req)
	})
}

func (s *BillingService) generateBillTx(ctx context.Context, req GenerateBillRequest) (*BillResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetDiningOrderForUpdate(ctx, database.GetDiningOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.DiningOrderStatusOpen {
		if order.Status == enum.DiningOrderStatusBilled {
			return nil, ErrBillExists
		}
		return nil, ErrOrderNotOpen
	}

	if _, err := store.GetLiveBillByOrder(ctx, order.ID); err == nil {
		return nil, ErrBillExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get live bill: %w", err)
	}

	items, err := store.ListBillableItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list billable items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNothingToBill
	}

	totals := priceLines(items)

	discount := decimal.Zero
	voucherID := pgtype.UUID{}
	if code := strings.TrimSpace(req.VoucherCode); code != "" {
		v, err := store.GetVoucherByCodeForUpdate(ctx, database.GetVoucherByCodeParams{
			BranchID: req.BranchID,
			Code:     strings.ToUpper(code),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrVoucherNotFound
			}
			return nil, fmt.Errorf("get voucher: %w", err)
		}
		if err := checkVoucher(v, totals.subtotal, s.now()); err != nil {
			return nil, err
		}
		discount = voucherDiscount(v, totals.subtotal)
		if _, err := store.IncrementVoucherUse(ctx, v.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrVoucherExhausted
			}
			return nil, fmt.Errorf("increment voucher use: %w", err)
		}
		voucherID = pgtype.UUID{Bytes: v.ID, Valid: true}
	}

	total := totals.subtotal.Add(totals.exclusiveTax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	nextNum, err := store.GetNextBillNumber(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("get next bill number: %w", err)
	}

	bill, err := store.CreateBill(ctx, database.CreateBillParams{
		BranchID:       req.BranchID,
		DiningOrderID:  order.ID,
		BillNumber:     fmt.Sprintf("BILL-%04d", nextNum),
		Subtotal:       round2(totals.subtotal),
		DiscountAmount: discount,
		TaxAmount:      round2(totals.taxAmount),
		TotalAmount:    round2(total),
		VoucherID:      voucherID,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	billItems := make([]database.BillItem, 0, len(totals.lines))
	for i, line := range totals.lines {
		bi, err := store.CreateBillItem(ctx, database.CreateBillItemParams{
			BillID:       bill.ID,
			KotItemID:    line.item.KotItemID,
			MenuItemID:   line.item.MenuItemID,
			ItemName:     line.item.ItemName,
			Quantity:     line.item.Quantity,
			UnitPrice:    line.item.UnitPrice,
			TaxRate:      line.item.TaxRate,
			TaxInclusive: line.item.TaxInclusive,
			TaxAmount:    line.taxAmount,
			LineTotal:    line.lineTotal,
			Position:     int32(i + 1),
		})
		if err != nil {
			return nil, fmt.Errorf("create bill item: %w", err)
		}
		billItems = append(billItems, bi)
	}

	orderStatus := enum.DiningOrderStatusBilled
	if bill.TotalAmount.IsZero() {
		if bill, err = store.MarkBillPaid(ctx, bill.ID); err != nil {
			return nil, fmt.Errorf("mark bill paid: %w", err)
		}
		orderStatus = enum.DiningOrderStatusClosed
	}
	if _, err := store.UpdateDiningOrderStatus(ctx, database.UpdateDiningOrderStatusParams{
		ID:     order.ID,
		Status: orderStatus,
	}); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &BillResult{Bill: bill, Items: billItems, Splits: []database.SplitBill{}}, nil
}

// SplitBill divides the bill into parts equal shares. Any earlier split is
// replaced. Items are dealt round-robin in bill order so each part lists
// what it roughly covers; the amounts themselves are equal shares of the
// total with the leftover cents on part 1.
func (s *BillingService) SplitBill(ctx context.Context, branchID, billID uuid.UUID, parts int) (result *BillResult, err error) {
	ctx, span := tracer.Start(ctx, "BillingService.SplitBill",
		trace.WithAttributes(attribute.String("bill_id", billID.String()), attribute.Int("parts", parts)))
	defer func() { endSpan(span, err) }()

	if parts < minSplitParts || parts > maxSplitParts {
		return nil, ErrInvalidSplitParts
	}

	release, err := s.lockBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	bill, err := lockUnpaidBill(ctx, store, branchID, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status != enum.BillStatusOpen && bill.Status != enum.BillStatusSplit {
		return nil, ErrBillNotSplittable
	}
	// Every part must be payable, so each needs at least one cent.
	if bill.TotalAmount.LessThan(cent.Mul(decimal.NewFromInt(int64(parts)))) {
		return nil, ErrSplitTooSmall
	}

	if err := clearSplits(ctx, store, billID); err != nil {
		return nil, err
	}

	amounts := splitEqual(bill.TotalAmount, parts)
	splits := make([]database.SplitBill, 0, parts)
	for i, amount := range amounts {
		sb, err := store.CreateSplitBill(ctx, database.CreateSplitBillParams{
			BillID:      billID,
			SplitNumber: int32(i + 1),
			Amount:      amount,
		})
		if err != nil {
			return nil, fmt.Errorf("create split bill %d: %w", i+1, err)
		}
		splits = append(splits, sb)
	}

	items, err := store.ListBillItems(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("list bill items: %w", err)
	}
	for k := range items {
		target := splits[k%parts].ID
		if err := store.AssignBillItemSplit(ctx, database.AssignBillItemSplitParams{
			ID:          items[k].ID,
			SplitBillID: pgtype.UUID{Bytes: target, Valid: true},
		}); err != nil {
			return nil, fmt.Errorf("assign bill item: %w", err)
		}
		items[k].SplitBillID = pgtype.UUID{Bytes: target, Valid: true}
	}

	bill, err = store.UpdateBillStatus(ctx, database.UpdateBillStatusParams{ID: billID, Status: enum.BillStatusSplit})
	if err != nil {
		return nil, fmt.Errorf("update bill status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &BillResult{Bill: bill, Items: items, Splits: splits}, nil
}

// UndoSplit drops the split parts of a bill nobody has paid yet.
func (s *BillingService) UndoSplit(ctx context.Context, branchID, billID uuid.UUID) (result *BillResult, err error) {
	ctx, span := tracer.Start(ctx, "BillingService.UndoSplit",
		trace.WithAttributes(attribute.String("bill_id", billID.String())))
	defer func() { endSpan(span, err) }()

	release, err := s.lockBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	bill, err := lockUnpaidBill(ctx, store, branchID, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status != enum.BillStatusSplit {
		return nil, ErrBillNotSplit
	}

	if err := clearSplits(ctx, store, billID); err != nil {
		return nil, err
	}
	bill, err = store.UpdateBillStatus(ctx, database.UpdateBillStatusParams{ID: billID, Status: enum.BillStatusOpen})
	if err != nil {
		return nil, fmt.Errorf("update bill status: %w", err)
	}
	items, err := store.ListBillItems(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("list bill items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &BillResult{Bill: bill, Items: items, Splits: []database.SplitBill{}}, nil
}

// VoidBill cancels an unpaid bill, reopens its order for more tickets and
// gives the voucher use back.
func (s *BillingService) VoidBill(ctx context.Context, branchID, billID uuid.UUID) (bill database.Bill, err error) {
	ctx, span := tracer.Start(ctx, "BillingService.VoidBill",
		trace.WithAttributes(attribute.String("bill_id", billID.String())))
	defer func() { endSpan(span, err) }()

	release, err := s.lockBill(ctx, billID)
	if err != nil {
		return database.Bill{}, err
	}
	defer release(context.WithoutCancel(ctx))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Bill{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	bill, err = lockUnpaidBill(ctx, store, branchID, billID)
	if err != nil {
		return database.Bill{}, err
	}
	if bill.Status != enum.BillStatusOpen && bill.Status != enum.BillStatusSplit {
		return database.Bill{}, ErrBillNotVoidable
	}

	if err := clearSplits(ctx, store, billID); err != nil {
		return database.Bill{}, err
	}
	bill, err = store.UpdateBillStatus(ctx, database.UpdateBillStatusParams{ID: billID, Status: enum.BillStatusVoid})
	if err != nil {
		return database.Bill{}, fmt.Errorf("update bill status: %w", err)
	}
	if _, err := store.UpdateDiningOrderStatus(ctx, database.UpdateDiningOrderStatusParams{
		ID:     bill.DiningOrderID,
		Status: enum.DiningOrderStatusOpen,
	}); err != nil {
		return database.Bill{}, fmt.Errorf("reopen order: %w", err)
	}
	if bill.VoucherID.Valid {
		if err := store.ReleaseVoucherUse(ctx, uuid.UUID(bill.VoucherID.Bytes)); err != nil {
			return database.Bill{}, fmt.Errorf("release voucher use: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Bill{}, fmt.Errorf("commit tx: %w", err)
	}
	return bill, nil
}

// lockBill takes the cross-instance bill lock. Only contention is fatal; an
// unreachable Redis is logged and the row lock alone guards the bill.
func (s *BillingService) lockBill(ctx context.Context, billID uuid.UUID) (func(context.Context), error) {
	release, err := s.locker.Obtain(ctx, "bill:"+billID.String())
	if errors.Is(err, cache.ErrLocked) {
		return release, ErrBillBusy
	}
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("bill_id", billID).Warn("bill lock unavailable, continuing with row lock")
	}
	return release, nil
}

// lockUnpaidBill locks the bill row and rejects bills that already took
// money.
func lockUnpaidBill(ctx context.Context, store BillingStore, branchID, billID uuid.UUID) (database.Bill, error) {
	bill, err := store.GetBillForUpdate(ctx, database.GetBillParams{ID: billID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Bill{}, ErrBillNotFound
		}
		return database.Bill{}, fmt.Errorf("lock bill: %w", err)
	}
	n, err := store.CountPaymentsByBill(ctx, billID)
	if err != nil {
		return database.Bill{}, fmt.Errorf("count payments: %w", err)
	}
	if n > 0 {
		return database.Bill{}, ErrBillHasPayments
	}
	return bill, nil
}

func clearSplits(ctx context.Context, store BillingStore, billID uuid.UUID) error {
	if err := store.ClearBillItemSplits(ctx, billID); err != nil {
		return fmt.Errorf("clear bill item splits: %w", err)
	}
	if err := store.DeleteSplitBillsByBill(ctx, billID); err != nil {
		return fmt.Errorf("delete split bills: %w", err)
	}
	return nil
}
