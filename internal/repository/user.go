package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	FindSummariesByOrgIDs(ctx context.Context, orgIDs []int64) ([]model.UserSummary, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	Update(ctx context.Context, id int64, params model.UpdateUserParams) (*model.User, error)
	SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error)

	FindRoles(ctx context.Context, userID int64) ([]model.Role, error)
	HasRole(ctx context.Context, userID, roleID int64) (bool, error)
	AssignRole(ctx context.Context, userID, roleID int64, actorID *int64) error
	// ReplaceRoles soft-deletes current role links and assigns roleID.
	ReplaceRoles(ctx context.Context, userID, roleID int64, actorID *int64) error
	RemoveRoles(ctx context.Context, userID int64, actorID *int64) error

	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sqlxDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1 AND deleted_at IS NULL
	`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users WHERE deleted_at IS NULL ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) FindSummariesByOrgIDs(ctx context.Context, orgIDs []int64) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	if len(orgIDs) == 0 {
		return users, nil
	}
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, org_id, first_name, last_name, email FROM users
		WHERE org_id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
	`, pq.Array(orgIDs))
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (first_name, last_name, email, phone, hash_password, org_id, acc_limit, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.FirstName, params.LastName, params.Email, params.Phone, params.HashPassword,
		params.OrgID, params.AccLimit, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, id int64, params model.UpdateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			status = COALESCE($6, status),
			org_id = COALESCE($7, org_id),
			acc_limit = COALESCE($8, acc_limit),
			updated_by_id = COALESCE($9, updated_by_id),
			updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, params.FirstName, params.LastName, params.Email, params.Phone, params.Status,
		params.OrgID, params.AccLimit, params.UpdatedByID, time.Now())
	return HandleNotFound(&user, err)
}

func (r *userRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	now := time.Now()
	return rowsAffected(r.db.ExecContext(ctx, `
		UPDATE users SET
			status = $2,
			deleted_by_id = $3,
			updated_at = $4,
			deleted_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, id, model.RecordStatusInactive, deletedBy, now))
}

func (r *userRepo) FindRoles(ctx context.Context, userID int64) ([]model.Role, error) {
	roles := []model.Role{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT r.* FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND ur.deleted_at IS NULL
		  AND r.deleted_at IS NULL
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *userRepo) HasRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles
			WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL
		)
	`, userID, roleID)
	return exists, err
}

func (r *userRepo) AssignRole(ctx context.Context, userID, roleID int64, actorID *int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_by_id)
		VALUES ($1, $2, $3)
	`, userID, roleID, actorID)
	return err
}

func (r *userRepo) ReplaceRoles(ctx context.Context, userID, roleID int64, actorID *int64) error {
	if err := r.RemoveRoles(ctx, userID, actorID); err != nil {
		return err
	}
	return r.AssignRole(ctx, userID, roleID, actorID)
}

func (r *userRepo) RemoveRoles(ctx context.Context, userID int64, actorID *int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_roles SET
			deleted_by_id = $2,
			deleted_at = NOW(),
			updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL
	`, userID, actorID)
	return err
}
