package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	FindAll(ctx context.Context, filter model.AccountFilter) ([]model.Account, error)
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
	Update(ctx context.Context, id int64, params model.UpdateAccountParams) (*model.Account, error)
	UpdateStatus(ctx context.Context, id int64, status model.AccountStatus, updatedBy *int64) (*model.Account, error)
	SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error)
	CountByStatus(ctx context.Context, orgID int64) (*model.AccountStatusSummary, error)
	// MarkStalePendingInactive flips pending accounts created before cutoff to
	// inactive, skipping ids that still have a live session.
	MarkStalePendingInactive(ctx context.Context, cutoff time.Time, liveIDs []int64) (int64, error)
}

type accountRepo struct {
	db sqlxDB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindAll(ctx context.Context, filter model.AccountFilter) ([]model.Account, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.OrgID != nil {
		args = append(args, *filter.OrgID)
		conds = append(conds, fmt.Sprintf("org_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT * FROM accounts WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	accounts := []model.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	status := params.Status
	if status == "" {
		status = model.AccountStatusInactive
	}

	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (org_id, qr_session, status, ip_address, location, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.OrgID, params.QRSession, status, params.IPAddress, params.Location, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, id int64, params model.UpdateAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			org_id = COALESCE($2, org_id),
			qr_session = COALESCE($3, qr_session),
			status = COALESCE($4, status),
			ip_address = COALESCE($5, ip_address),
			location = COALESCE($6, location),
			updated_by_id = COALESCE($7, updated_by_id),
			updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, params.OrgID, params.QRSession, params.Status, params.IPAddress, params.Location, params.UpdatedByID, time.Now())
	return HandleNotFound(&account, err)
}

func (r *accountRepo) UpdateStatus(ctx context.Context, id int64, status model.AccountStatus, updatedBy *int64) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			status = $2,
			updated_by_id = COALESCE($3, updated_by_id),
			updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, status, updatedBy, time.Now())
	return HandleNotFound(&account, err)
}

// SoftDelete stamps the account disconnected and hides it from every Find*.
func (r *accountRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	now := time.Now()
	return rowsAffected(r.db.ExecContext(ctx, `
		UPDATE accounts SET
			status = $2,
			updated_by_id = COALESCE($3, updated_by_id),
			deleted_by_id = $3,
			updated_at = $4,
			deleted_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, id, model.AccountStatusDisconnected, deletedBy, now))
}

func (r *accountRepo) CountByStatus(ctx context.Context, orgID int64) (*model.AccountStatusSummary, error) {
	var rows []struct {
		Status model.AccountStatus `db:"status"`
		Count  int                 `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count FROM accounts
		WHERE org_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`, orgID)
	if err != nil {
		return nil, err
	}

	summary := &model.AccountStatusSummary{}
	for _, row := range rows {
		switch row.Status {
		case model.AccountStatusActive:
			summary.Active = row.Count
		case model.AccountStatusInactive:
			summary.Inactive = row.Count
		case model.AccountStatusPending:
			summary.Pending = row.Count
		case model.AccountStatusDisconnected:
			summary.Disconnected = row.Count
		}
		summary.Total += row.Count
	}
	return summary, nil
}

func (r *accountRepo) MarkStalePendingInactive(ctx context.Context, cutoff time.Time, liveIDs []int64) (int64, error) {
	if liveIDs == nil {
		liveIDs = []int64{}
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			status = $1,
			updated_at = NOW()
		WHERE status = $2
		  AND deleted_at IS NULL
		  AND created_at < $3
		  AND NOT (id = ANY($4))
	`, model.AccountStatusInactive, model.AccountStatusPending, cutoff, pq.Array(liveIDs))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
