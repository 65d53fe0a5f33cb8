package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, tenant_id, branch_id, email, hashed_password, full_name, role, pin, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var i User
	err := row.Scan(&i.ID, &i.TenantID, &i.BranchID, &i.Email, &i.HashedPassword, &i.FullName,
		&i.Role, &i.Pin, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users
WHERE lower(email) = lower($1) AND is_active = true`, email)
	return scanUser(row)
}

type GetUserByBranchAndPinParams struct {
	BranchID uuid.UUID
	Pin      pgtype.Text
}

func (q *Queries) GetUserByBranchAndPin(ctx context.Context, arg GetUserByBranchAndPinParams) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users
WHERE branch_id = $1 AND pin = $2 AND is_active = true`, arg.BranchID, arg.Pin)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active = true`, id)
	return scanUser(row)
}

func (q *Queries) ListUsersByBranch(ctx context.Context, branchID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users
WHERE branch_id = $1 AND is_active = true
ORDER BY full_name`, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

type CreateUserParams struct {
	TenantID       uuid.UUID
	BranchID       pgtype.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Pin            pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO users (tenant_id, branch_id, email, hashed_password, full_name, role, pin)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		arg.TenantID, arg.BranchID, arg.Email, arg.HashedPassword, arg.FullName, arg.Role, arg.Pin)
	return scanUser(row)
}

type UpdateUserParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Email    string
	FullName string
	Role     string
	Pin      pgtype.Text
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `UPDATE users
SET email = $3, full_name = $4, role = $5, pin = $6, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING `+userColumns, arg.ID, arg.BranchID, arg.Email, arg.FullName, arg.Role, arg.Pin)
	return scanUser(row)
}

type SoftDeleteUserParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteUserParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND is_active = true
RETURNING id`, arg.ID, arg.BranchID).Scan(&id)
	return id, err
}
