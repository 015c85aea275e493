package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type OrganisationRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Organisation, error)
	FindAll(ctx context.Context, filter model.OrganisationFilter) ([]model.Organisation, error)
	Count(ctx context.Context, filter model.OrganisationFilter) (int, error)
	Create(ctx context.Context, params model.CreateOrganisationParams) (*model.Organisation, error)
	Update(ctx context.Context, id int64, params model.UpdateOrganisationParams) (*model.Organisation, error)
	SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error)
}

type organisationRepo struct {
	db sqlxDB
}

func NewOrganisationRepository(db *sqlx.DB) OrganisationRepository {
	return &organisationRepo{db: db}
}

func (r *organisationRepo) FindByID(ctx context.Context, id int64) (*model.Organisation, error) {
	var org model.Organisation
	err := r.db.GetContext(ctx, &org, `
		SELECT * FROM organisations WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&org, err)
}

func organisationWhere(filter model.OrganisationFilter) (string, []interface{}) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *organisationRepo) FindAll(ctx context.Context, filter model.OrganisationFilter) ([]model.Organisation, error) {
	where, args := organisationWhere(filter)
	query := `SELECT * FROM organisations WHERE ` + where + ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	orgs := []model.Organisation{}
	if err := r.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *organisationRepo) Count(ctx context.Context, filter model.OrganisationFilter) (int, error) {
	where, args := organisationWhere(filter)
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM organisations WHERE `+where, args...)
	return count, err
}

func (r *organisationRepo) Create(ctx context.Context, params model.CreateOrganisationParams) (*model.Organisation, error) {
	status := params.Status
	if status == "" {
		status = model.RecordStatusActive
	}

	var org model.Organisation
	err := r.db.GetContext(ctx, &org, `
		INSERT INTO organisations (name, status, type_of_organisation, created_by_id)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.Name, status, params.TypeOfOrganisation, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organisationRepo) Update(ctx context.Context, id int64, params model.UpdateOrganisationParams) (*model.Organisation, error) {
	var org model.Organisation
	err := r.db.GetContext(ctx, &org, `
		UPDATE organisations SET
			name = COALESCE($2, name),
			status = COALESCE($3, status),
			type_of_organisation = COALESCE($4, type_of_organisation),
			updated_by_id = COALESCE($5, updated_by_id),
			updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, params.Name, params.Status, params.TypeOfOrganisation, params.UpdatedByID, time.Now())
	return HandleNotFound(&org, err)
}

func (r *organisationRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	now := time.Now()
	return rowsAffected(r.db.ExecContext(ctx, `
		UPDATE organisations SET
			status = $2,
			deleted_by_id = $3,
			updated_at = $4,
			deleted_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, id, model.RecordStatusInactive, deletedBy, now))
}
