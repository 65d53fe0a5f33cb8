package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const supplierColumns = `id, tenant_id, organisation_id, name, contact_name, phone, email, address, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var i Supplier
	err := row.Scan(&i.ID, &i.TenantID, &i.OrganisationID, &i.Name, &i.ContactName, &i.Phone,
		&i.Email, &i.Address, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type ListSuppliersByOrganisationParams struct {
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
}

func (q *Queries) ListSuppliersByOrganisation(ctx context.Context, arg ListSuppliersByOrganisationParams) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE organisation_id = $1 AND tenant_id = $2 AND is_active = true
ORDER BY name`, arg.OrganisationID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSupplier)
}

type GetSupplierParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

// GetSupplier is tenant scoped so inventory can reference any supplier of the
// same tenant.
func (q *Queries) GetSupplier(ctx context.Context, arg GetSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE id = $1 AND tenant_id = $2 AND is_active = true`, arg.ID, arg.TenantID)
	return scanSupplier(row)
}

type CreateSupplierParams struct {
	TenantID       uuid.UUID
	OrganisationID uuid.UUID
	Name           string
	ContactName    pgtype.Text
	Phone          pgtype.Text
	Email          pgtype.Text
	Address        pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO suppliers (tenant_id, organisation_id, name, contact_name, phone, email, address)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+supplierColumns,
		arg.TenantID, arg.OrganisationID, arg.Name, arg.ContactName, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

type UpdateSupplierParams struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
	Name           string
	ContactName    pgtype.Text
	Phone          pgtype.Text
	Email          pgtype.Text
	Address        pgtype.Text
}

func (q *Queries) UpdateSupplier(ctx context.Context, arg UpdateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, `UPDATE suppliers
SET name = $4, contact_name = $5, phone = $6, email = $7, address = $8, updated_at = now()
WHERE id = $1 AND organisation_id = $2 AND tenant_id = $3 AND is_active = true
RETURNING `+supplierColumns,
		arg.ID, arg.OrganisationID, arg.TenantID, arg.Name, arg.ContactName, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

type SoftDeleteSupplierParams struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	TenantID       uuid.UUID
}

func (q *Queries) SoftDeleteSupplier(ctx context.Context, arg SoftDeleteSupplierParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE suppliers SET is_active = false, updated_at = now()
WHERE id = $1 AND organisation_id = $2 AND tenant_id = $3 AND is_active = true
RETURNING id`, arg.ID, arg.OrganisationID, arg.TenantID).Scan(&id)
	return id, err
}
