package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/SanketOodles/wa-automation-backend/internal/database"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindAll(ctx context.Context, filter model.AccountFilter) ([]model.Account, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, id int64, params model.UpdateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) UpdateStatus(ctx context.Context, id int64, status model.AccountStatus, updatedBy *int64) (*model.Account, error) {
	args := m.Called(ctx, id, status, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	args := m.Called(ctx, id, deletedBy)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepo) CountByStatus(ctx context.Context, orgID int64) (*model.AccountStatusSummary, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountStatusSummary), args.Error(1)
}

func (m *mockAccountRepo) MarkStalePendingInactive(ctx context.Context, cutoff time.Time, liveIDs []int64) (int64, error) {
	args := m.Called(ctx, cutoff, liveIDs)
	return args.Get(0).(int64), args.Error(1)
}

type mockOrganisationRepo struct {
	mock.Mock
}

func (m *mockOrganisationRepo) FindByID(ctx context.Context, id int64) (*model.Organisation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}

func (m *mockOrganisationRepo) FindAll(ctx context.Context, filter model.OrganisationFilter) ([]model.Organisation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Organisation), args.Error(1)
}

func (m *mockOrganisationRepo) Count(ctx context.Context, filter model.OrganisationFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockOrganisationRepo) Create(ctx context.Context, params model.CreateOrganisationParams) (*model.Organisation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}

func (m *mockOrganisationRepo) Update(ctx context.Context, id int64, params model.UpdateOrganisationParams) (*model.Organisation, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}

func (m *mockOrganisationRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	args := m.Called(ctx, id, deletedBy)
	return args.Bool(0), args.Error(1)
}

type mockRoleRepo struct {
	mock.Mock
}

func (m *mockRoleRepo) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *mockRoleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *mockRoleRepo) FindAssignable(ctx context.Context) ([]model.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *mockRoleRepo) Create(ctx context.Context, params model.CreateRoleParams) (*model.Role, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *mockRoleRepo) Update(ctx context.Context, id int64, params model.UpdateRoleParams) (*model.Role, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *mockRoleRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	args := m.Called(ctx, id, deletedBy)
	return args.Bool(0), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUserRepo) FindSummariesByOrgIDs(ctx context.Context, orgIDs []int64) ([]model.UserSummary, error) {
	args := m.Called(ctx, orgIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserSummary), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, params model.UpdateUserParams) (*model.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id int64, deletedBy *int64) (bool, error) {
	args := m.Called(ctx, id, deletedBy)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) FindRoles(ctx context.Context, userID int64) ([]model.Role, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *mockUserRepo) HasRole(ctx context.Context, userID, roleID int64) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) AssignRole(ctx context.Context, userID, roleID int64, actorID *int64) error {
	args := m.Called(ctx, userID, roleID, actorID)
	return args.Error(0)
}

func (m *mockUserRepo) ReplaceRoles(ctx context.Context, userID, roleID int64, actorID *int64) error {
	args := m.Called(ctx, userID, roleID, actorID)
	return args.Error(0)
}

func (m *mockUserRepo) RemoveRoles(ctx context.Context, userID int64, actorID *int64) error {
	args := m.Called(ctx, userID, actorID)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

// inlineTx runs the callback without a real transaction.
type inlineTx struct {
	calls int
}

func (t *inlineTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	t.calls++
	return fn(nil)
}

type mockTerminator struct {
	mock.Mock
}

func (m *mockTerminator) DisconnectAccount(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}
