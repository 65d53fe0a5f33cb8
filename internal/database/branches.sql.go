package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const branchColumns = `id, tenant_id, organisation_id, name, address, phone, is_active, created_at, updated_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var i Branch
	err := row.Scan(&i.ID, &i.TenantID, &i.OrganisationID, &i.Name, &i.Address, &i.Phone,
		&i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type ListBranchesByOrganisationParams struct {
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
}

func (q *Queries) ListBranchesByOrganisation(ctx context.Context, arg ListBranchesByOrganisationParams) ([]Branch, error) {
	rows, err := q.db.Query(ctx, `SELECT `+branchColumns+` FROM branches
WHERE organisation_id = $1 AND tenant_id = $2 AND is_active = true
ORDER BY name`, arg.OrganisationID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBranch)
}

// GetBranchByID is unscoped; callers compare TenantID themselves.
func (q *Queries) GetBranchByID(ctx context.Context, id uuid.UUID) (Branch, error) {
	row := q.db.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1 AND is_active = true`, id)
	return scanBranch(row)
}

type GetBranchParams struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
}

func (q *Queries) GetBranch(ctx context.Context, arg GetBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches
WHERE id = $1 AND organisation_id = $2 AND tenant_id = $3 AND is_active = true`,
		arg.ID, arg.OrganisationID, arg.TenantID)
	return scanBranch(row)
}

type CreateBranchParams struct {
	TenantID       uuid.UUID
	OrganisationID uuid.UUID
	Name           string
	Address        pgtype.Text
	Phone          pgtype.Text
}

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO branches (tenant_id, organisation_id, name, address, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+branchColumns, arg.TenantID, arg.OrganisationID, arg.Name, arg.Address, arg.Phone)
	return scanBranch(row)
}

type UpdateBranchParams struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
	Name           string
	Address        pgtype.Text
	Phone          pgtype.Text
}

func (q *Queries) UpdateBranch(ctx context.Context, arg UpdateBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx, `UPDATE branches
SET name = $4, address = $5, phone = $6, updated_at = now()
WHERE id = $1 AND organisation_id = $2 AND tenant_id = $3 AND is_active = true
RETURNING `+branchColumns, arg.ID, arg.OrganisationID, arg.TenantID, arg.Name, arg.Address, arg.Phone)
	return scanBranch(row)
}

type SoftDeleteBranchParams struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
}

func (q *Queries) SoftDeleteBranch(ctx context.Context, arg SoftDeleteBranchParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE branches SET is_active = false, updated_at = now()
WHERE id = $1 AND organisation_id = $2 AND tenant_id = $3 AND is_active = true
RETURNING id`, arg.ID, arg.OrganisationID, arg.TenantID).Scan(&id)
	return id, err
}
