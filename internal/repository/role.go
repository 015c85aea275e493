package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type RoleRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindAll(ctx context.Context) ([]model.Role, error)
	// FindAssignable lists every role except Admin.
	FindAssignable(ctx context.Context) ([]model.Role, error)
	Create(ctx context.Context, params model.CreateRoleParams) (*model.Role, error)
	Update(ctx context.Context, id int64, params model.UpdateRoleParams) (*model.Role, error)
	SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error)
}

type roleRepo struct {
	db sqlxDB
}

func NewRoleRepository(db *sqlx.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		SELECT * FROM roles WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&role, err)
}

func (r *roleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		SELECT * FROM roles WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL
		LIMIT 1
	`, name)
	return HandleNotFound(&role, err)
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	roles := []model.Role{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT * FROM roles WHERE deleted_at IS NULL ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) FindAssignable(ctx context.Context) ([]model.Role, error) {
	roles := []model.Role{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT * FROM roles WHERE id > $1 AND deleted_at IS NULL ORDER BY id
	`, model.AdminRoleID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) Create(ctx context.Context, params model.CreateRoleParams) (*model.Role, error) {
	status := params.Status
	if status == "" {
		status = model.RecordStatusActive
	}

	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		INSERT INTO roles (name, status, created_by_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Name, status, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) Update(ctx context.Context, id int64, params model.UpdateRoleParams) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		UPDATE roles SET
			name = COALESCE($2, name),
			status = COALESCE($3, status),
			updated_by_id = COALESCE($4, updated_by_id),
			updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, params.Name, params.Status, params.UpdatedByID, time.Now())
	return HandleNotFound(&role, err)
}

func (r *roleRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	now := time.Now()
	return rowsAffected(r.db.ExecContext(ctx, `
		UPDATE roles SET
			status = $2,
			deleted_by_id = $3,
			updated_at = $4,
			deleted_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, id, model.RecordStatusInactive, deletedBy, now))
}
