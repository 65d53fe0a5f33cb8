package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- taxes ---

const taxColumns = `id, branch_id, name, rate, is_inclusive, is_active, created_at, updated_at`

func scanTax(row pgx.Row) (Tax, error) {
	var i Tax
	err := row.Scan(&i.ID, &i.BranchID, &i.Name, &i.Rate, &i.IsInclusive, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListTaxesByBranch(ctx context.Context, branchID uuid.UUID) ([]Tax, error) {
	rows, err := q.db.Query(ctx, `SELECT `+taxColumns+` FROM taxes
WHERE branch_id = $1 AND is_active = true
ORDER BY name`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTax)
}

type GetTaxParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetTax(ctx context.Context, arg GetTaxParams) (Tax, error) {
	row := q.db.QueryRow(ctx, `SELECT `+taxColumns+` FROM taxes
WHERE id = $1 AND branch_id = $2 AND is_active = true`, arg.ID, arg.BranchID)
	return scanTax(row)
}

type CreateTaxParams struct {
	BranchID    uuid.UUID
	Name        string
	Rate        decimal.Decimal
	IsInclusive bool
}

func (q *Queries) CreateTax(ctx context.Context, arg CreateTaxParams) (Tax, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO taxes (branch_id, name, rate, is_inclusive)
VALUES ($1, $2, $3, $4)
RETURNING `+taxColumns, arg.BranchID, arg.Name, arg.Rate, arg.IsInclusive)
	return scanTax(row)
}

type UpdateTaxParams struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	Name        string
	Rate        decimal.Decimal
	IsInclusive bool
}

func (q *Queries) UpdateTax(ctx context.Context, arg UpdateTaxParams) (Tax, error) {
	row := q.db.QueryRow(ctx, `UPDATE taxes SET name = $3, rate = $4, is_inclusive = $5, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING `+taxColumns, arg.ID, arg.BranchID, arg.Name, arg.Rate, arg.IsInclusive)
	return scanTax(row)
}

type SoftDeleteTaxParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) SoftDeleteTax(ctx context.Context, arg SoftDeleteTaxParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE taxes SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}

// --- menu items ---

const menuItemColumns = `id, branch_id, tax_id, name, description, category, price, station, is_available, is_active, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(&i.ID, &i.BranchID, &i.TaxID, &i.Name, &i.Description, &i.Category, &i.Price,
		&i.Station, &i.IsAvailable, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListMenuItemsByBranch(ctx context.Context, branchID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items
WHERE branch_id = $1 AND is_active = true
ORDER BY category NULLS LAST, name`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMenuItem)
}

type GetMenuItemParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items
WHERE id = $1 AND branch_id = $2 AND is_active = true`, arg.ID, arg.BranchID)
	return scanMenuItem(row)
}

type CreateMenuItemParams struct {
	BranchID    uuid.UUID
	TaxID       pgtype.UUID
	Name        string
	Description pgtype.Text
	Category    pgtype.Text
	Price       decimal.Decimal
	Station     string
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO menu_items (branch_id, tax_id, name, description, category, price, station, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+menuItemColumns,
		arg.BranchID, arg.TaxID, arg.Name, arg.Description, arg.Category, arg.Price, arg.Station, arg.IsAvailable)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	TaxID       pgtype.UUID
	Name        string
	Description pgtype.Text
	Category    pgtype.Text
	Price       decimal.Decimal
	Station     string
	IsAvailable bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `UPDATE menu_items
SET tax_id = $3, name = $4, description = $5, category = $6, price = $7, station = $8,
    is_available = $9, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING `+menuItemColumns,
		arg.ID, arg.BranchID, arg.TaxID, arg.Name, arg.Description, arg.Category, arg.Price, arg.Station, arg.IsAvailable)
	return scanMenuItem(row)
}

type SoftDeleteMenuItemParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, arg SoftDeleteMenuItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE menu_items SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}

type GetMenuItemForOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	Name        string
	Price       decimal.Decimal
	Station     string
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	var i GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, `SELECT id, branch_id, name, price, station, is_available FROM menu_items
WHERE id = $1 AND branch_id = $2 AND is_active = true`, arg.ID, arg.BranchID).Scan(
		&i.ID, &i.BranchID, &i.Name, &i.Price, &i.Station, &i.IsAvailable)
	return i, err
}
