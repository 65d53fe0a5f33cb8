package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tenantColumns = `id, name, slug, is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var i Tenant
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type CreateTenantParams struct {
	Name string
	Slug string
}

func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO tenants (name, slug) VALUES ($1, $2)
RETURNING `+tenantColumns, arg.Name, arg.Slug)
	return scanTenant(row)
}

func (q *Queries) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND is_active = true`, id)
	return scanTenant(row)
}

type UpdateTenantParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpdateTenant(ctx context.Context, arg UpdateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `UPDATE tenants SET name = $2, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING `+tenantColumns, arg.ID, arg.Name)
	return scanTenant(row)
}

const organisationColumns = `id, tenant_id, name, legal_name, tax_number, is_active, created_at, updated_at`

func scanOrganisation(row pgx.Row) (Organisation, error) {
	var i Organisation
	err := row.Scan(&i.ID, &i.TenantID, &i.Name, &i.LegalName, &i.TaxNumber, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListOrganisations(ctx context.Context, tenantID uuid.UUID) ([]Organisation, error) {
	rows, err := q.db.Query(ctx, `SELECT `+organisationColumns+` FROM organisations
WHERE tenant_id = $1 AND is_active = true
ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrganisation)
}

type GetOrganisationParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetOrganisation(ctx context.Context, arg GetOrganisationParams) (Organisation, error) {
	row := q.db.QueryRow(ctx, `SELECT `+organisationColumns+` FROM organisations
WHERE id = $1 AND tenant_id = $2 AND is_active = true`, arg.ID, arg.TenantID)
	return scanOrganisation(row)
}

type CreateOrganisationParams struct {
	TenantID  uuid.UUID
	Name      string
	LegalName pgtype.Text
	TaxNumber pgtype.Text
}

func (q *Queries) CreateOrganisation(ctx context.Context, arg CreateOrganisationParams) (Organisation, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO organisations (tenant_id, name, legal_name, tax_number)
VALUES ($1, $2, $3, $4)
RETURNING `+organisationColumns, arg.TenantID, arg.Name, arg.LegalName, arg.TaxNumber)
	return scanOrganisation(row)
}

type UpdateOrganisationParams struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	LegalName pgtype.Text
	TaxNumber pgtype.Text
}

func (q *Queries) UpdateOrganisation(ctx context.Context, arg UpdateOrganisationParams) (Organisation, error) {
	row := q.db.QueryRow(ctx, `UPDATE organisations
SET name = $3, legal_name = $4, tax_number = $5, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND is_active = true
RETURNING `+organisationColumns, arg.ID, arg.TenantID, arg.Name, arg.LegalName, arg.TaxNumber)
	return scanOrganisation(row)
}

type SoftDeleteOrganisationParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) SoftDeleteOrganisation(ctx context.Context, arg SoftDeleteOrganisationParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE organisations SET is_active = false, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.TenantID).Scan(&id)
	return id, err
}

func (q *Queries) CountActiveBranchesByOrganisation(ctx context.Context, organisationID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM branches
WHERE organisation_id = $1 AND is_active = true`, organisationID).Scan(&count)
	return count, err
}
