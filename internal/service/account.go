package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
)

// SessionTerminator tears down the live pairing session bound to an account.
type SessionTerminator interface {
	DisconnectAccount(ctx context.Context, accountID int64) error
}

type CreateAccountInput struct {
	OrgID     int64               `json:"org_id"`
	QRSession *string             `json:"qr_session"`
	Status    model.AccountStatus `json:"status"`
	IPAddress *string             `json:"ip_address"`
	Location  *string             `json:"location"`
}

type UpdateAccountInput struct {
	OrgID     *int64               `json:"org_id"`
	QRSession *string              `json:"qr_session"`
	Status    *model.AccountStatus `json:"status"`
	IPAddress *string              `json:"ip_address"`
	Location  *string              `json:"location"`
}

type AccountService struct {
	accounts repository.AccountRepository
	sessions SessionTerminator
}

func NewAccountService(accounts repository.AccountRepository, sessions SessionTerminator) *AccountService {
	return &AccountService{accounts: accounts, sessions: sessions}
}

func (s *AccountService) Create(ctx context.Context, in CreateAccountInput, actorID *int64) (*model.Account, error) {
	if in.OrgID <= 0 {
		return nil, apperrors.MissingRequired("org_id")
	}
	status := in.Status
	if status == "" {
		status = model.AccountStatusInactive
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be one of active, inactive, pending, disconnected")
	}

	account, err := s.accounts.Create(ctx, model.CreateAccountParams{
		OrgID:       in.OrgID,
		QRSession:   in.QRSession,
		Status:      status,
		IPAddress:   in.IPAddress,
		Location:    in.Location,
		CreatedByID: actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context, filter model.AccountFilter) ([]model.Account, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "unknown account status")
	}
	accounts, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return accounts, nil
}

func (s *AccountService) ListByOrg(ctx context.Context, orgID int64) ([]model.Account, error) {
	return s.List(ctx, model.AccountFilter{OrgID: &orgID})
}

func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}
	return account, nil
}

func (s *AccountService) Update(ctx context.Context, id int64, in UpdateAccountInput, actorID *int64) (*model.Account, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be one of active, inactive, pending, disconnected")
	}
	if in.OrgID != nil && *in.OrgID <= 0 {
		return nil, apperrors.InvalidInput("org_id", "must be positive")
	}

	account, err := s.accounts.Update(ctx, id, model.UpdateAccountParams{
		OrgID:       in.OrgID,
		QRSession:   in.QRSession,
		Status:      in.Status,
		IPAddress:   in.IPAddress,
		Location:    in.Location,
		UpdatedByID: actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}
	return account, nil
}

// Delete soft-deletes the account and tears down its live session, if any.
// A teardown failure is logged; the row stays deleted.
func (s *AccountService) Delete(ctx context.Context, id int64, actorID *int64) error {
	deleted, err := s.accounts.SoftDelete(ctx, id, actorID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Account")
	}

	if s.sessions != nil {
		if err := s.sessions.DisconnectAccount(ctx, id); err != nil {
			log.Warn().Err(err).Int64("accountId", id).Msg("account deleted but live session teardown failed")
		}
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAccountDelete,
		UserID:    actorID,
		AccountID: &id,
		Success:   true,
	})
	return nil
}

func (s *AccountService) StatusSummary(ctx context.Context, orgID int64) (*model.AccountStatusSummary, error) {
	if orgID <= 0 {
		return nil, apperrors.InvalidInput("org_id", "must be positive")
	}
	summary, err := s.accounts.CountByStatus(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("count accounts by status: %w", err)
	}
	return summary, nil
}
