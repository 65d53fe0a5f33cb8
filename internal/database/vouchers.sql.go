package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const voucherColumns = `id, branch_id, code, discount_type, discount_value, max_discount, min_spend, max_uses, used_count, valid_from, valid_until, is_active, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var i Voucher
	err := row.Scan(&i.ID, &i.BranchID, &i.Code, &i.DiscountType, &i.DiscountValue, &i.MaxDiscount,
		&i.MinSpend, &i.MaxUses, &i.UsedCount, &i.ValidFrom, &i.ValidUntil, &i.IsActive,
		&i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListVouchersByBranch(ctx context.Context, branchID uuid.UUID) ([]Voucher, error) {
	rows, err := q.db.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE branch_id = $1 AND is_active = true
ORDER BY code`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVoucher)
}

type GetVoucherParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetVoucher(ctx context.Context, arg GetVoucherParams) (Voucher, error) {
	row := q.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE id = $1 AND branch_id = $2 AND is_active = true`, arg.ID, arg.BranchID)
	return scanVoucher(row)
}

type GetVoucherByCodeParams struct {
	BranchID uuid.UUID
	Code     string
}

func (q *Queries) GetVoucherByCodeForUpdate(ctx context.Context, arg GetVoucherByCodeParams) (Voucher, error) {
	row := q.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE branch_id = $1 AND code = upper($2) AND is_active = true
FOR UPDATE`, arg.BranchID, arg.Code)
	return scanVoucher(row)
}

type CreateVoucherParams struct {
	BranchID      uuid.UUID
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	MinSpend      decimal.Decimal
	MaxUses       pgtype.Int4
	ValidFrom     pgtype.Timestamptz
	ValidUntil    pgtype.Timestamptz
}

func (q *Queries) CreateVoucher(ctx context.Context, arg CreateVoucherParams) (Voucher, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO vouchers (branch_id, code, discount_type, discount_value, max_discount, min_spend, max_uses, valid_from, valid_until)
VALUES ($1, upper($2), $3, $4, $5, $6, $7, $8, $9)
RETURNING `+voucherColumns,
		arg.BranchID, arg.Code, arg.DiscountType, arg.DiscountValue, arg.MaxDiscount, arg.MinSpend,
		arg.MaxUses, arg.ValidFrom, arg.ValidUntil)
	return scanVoucher(row)
}

type UpdateVoucherParams struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	MinSpend      decimal.Decimal
	MaxUses       pgtype.Int4
	ValidFrom     pgtype.Timestamptz
	ValidUntil    pgtype.Timestamptz
}

func (q *Queries) UpdateVoucher(ctx context.Context, arg UpdateVoucherParams) (Voucher, error) {
	row := q.db.QueryRow(ctx, `UPDATE vouchers
SET code = upper($3), discount_type = $4, discount_value = $5, max_discount = $6, min_spend = $7,
    max_uses = $8, valid_from = $9, valid_until = $10, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING `+voucherColumns,
		arg.ID, arg.BranchID, arg.Code, arg.DiscountType, arg.DiscountValue, arg.MaxDiscount,
		arg.MinSpend, arg.MaxUses, arg.ValidFrom, arg.ValidUntil)
	return scanVoucher(row)
}

type SoftDeleteVoucherParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) SoftDeleteVoucher(ctx context.Context, arg SoftDeleteVoucherParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE vouchers SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}

// IncrementVoucherUse returns pgx.ErrNoRows when the voucher is already at
// max_uses.
func (q *Queries) IncrementVoucherUse(ctx context.Context, id uuid.UUID) (int32, error) {
	var usedCount int32
	err := q.db.QueryRow(ctx, `UPDATE vouchers SET used_count = used_count + 1, updated_at = now()
WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
RETURNING used_count`, id).Scan(&usedCount)
	return usedCount, err
}

func (q *Queries) ReleaseVoucherUse(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE vouchers SET used_count = used_count - 1, updated_at = now()
WHERE id = $1 AND used_count > 0`, id)
	return err
}
