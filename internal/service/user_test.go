package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/util"
)

func validUserInput() CreateUserInput {
	orgID := int64(1)
	limit := 5
	return CreateUserInput{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "Asha.Rao@Example.com",
		Phone:     strPtr("9999999999"),
		Password:  "s3cret-pass",
		OrgID:     &orgID,
		RoleID:    4,
		AccLimit:  &limit,
	}
}

func TestUserService_Create(t *testing.T) {
	admin := int64(1)

	t.Run("creates user and assigns role in one transaction", func(t *testing.T) {
		users := new(mockUserRepo)
		roles := new(mockRoleRepo)
		tx := &inlineTx{}

		users.On("FindByEmail", mock.Anything, "asha.rao@example.com").Return(nil, nil)
		roles.On("FindByID", mock.Anything, int64(4)).Return(&model.Role{ID: 4, Name: "User"}, nil)
		users.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateUserParams) bool {
			return p.Email == "asha.rao@example.com" &&
				p.AccLimit == 5 &&
				util.CheckPasswordHash("s3cret-pass", p.HashPassword)
		})).Return(&model.User{ID: 20, Email: "asha.rao@example.com"}, nil)
		users.On("AssignRole", mock.Anything, int64(20), int64(4), &admin).Return(nil)

		user, err := NewUserService(tx, users, roles).Create(context.Background(), validUserInput(), &admin)

		require.NoError(t, err)
		assert.Equal(t, int64(20), user.ID)
		assert.Equal(t, 1, tx.calls)
		require.Len(t, user.Roles, 1)
		assert.Equal(t, "User", user.Roles[0].Name)
		users.AssertExpectations(t)
	})

	t.Run("cannot grant admin", func(t *testing.T) {
		in := validUserInput()
		in.RoleID = model.AdminRoleID

		_, err := NewUserService(&inlineTx{}, new(mockUserRepo), new(mockRoleRepo)).Create(context.Background(), in, &admin)
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByEmail", mock.Anything, "asha.rao@example.com").Return(&model.User{ID: 3}, nil)

		_, err := NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Create(context.Background(), validUserInput(), &admin)
		assert.Equal(t, apperrors.ErrCodeAlreadyExists, apperrors.GetCode(err))
	})

	t.Run("unknown role", func(t *testing.T) {
		users := new(mockUserRepo)
		roles := new(mockRoleRepo)
		users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		roles.On("FindByID", mock.Anything, int64(4)).Return(nil, nil)

		_, err := NewUserService(&inlineTx{}, users, roles).Create(context.Background(), validUserInput(), &admin)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		in := validUserInput()
		in.Password = ""

		_, err := NewUserService(&inlineTx{}, new(mockUserRepo), new(mockRoleRepo)).Create(context.Background(), in, &admin)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("role link failure surfaces as database error", func(t *testing.T) {
		users := new(mockUserRepo)
		roles := new(mockRoleRepo)
		users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		roles.On("FindByID", mock.Anything, int64(4)).Return(&model.Role{ID: 4}, nil)
		users.On("Create", mock.Anything, mock.Anything).Return(&model.User{ID: 21}, nil)
		users.On("AssignRole", mock.Anything, int64(21), int64(4), &admin).Return(errors.New("fk violation"))

		_, err := NewUserService(&inlineTx{}, users, roles).Create(context.Background(), validUserInput(), &admin)
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})
}

func TestUserService_Update(t *testing.T) {
	admin := int64(1)
	current := &model.User{ID: 7, Email: "old@example.com"}

	t.Run("email taken by another user", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByID", mock.Anything, int64(7)).Return(current, nil)
		users.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{ID: 8}, nil)

		_, err := NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Update(context.Background(), 7,
			UpdateUserInput{Email: strPtr("taken@example.com")}, &admin)

		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})

	t.Run("reassigns role", func(t *testing.T) {
		users := new(mockUserRepo)
		roles := new(mockRoleRepo)
		roleID := int64(3)

		users.On("FindByID", mock.Anything, int64(7)).Return(current, nil)
		roles.On("FindByID", mock.Anything, roleID).Return(&model.Role{ID: 3, Name: "Manager 2"}, nil)
		users.On("Update", mock.Anything, int64(7), mock.Anything).Return(current, nil)
		users.On("ReplaceRoles", mock.Anything, int64(7), roleID, &admin).Return(nil)
		users.On("FindRoles", mock.Anything, int64(7)).Return([]model.Role{{ID: 3, Name: "Manager 2"}}, nil)

		user, err := NewUserService(&inlineTx{}, users, roles).Update(context.Background(), 7,
			UpdateUserInput{RoleID: &roleID}, &admin)

		require.NoError(t, err)
		require.Len(t, user.Roles, 1)
		assert.Equal(t, int64(3), user.Roles[0].ID)
		users.AssertExpectations(t)
	})

	t.Run("cannot reassign to admin", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByID", mock.Anything, int64(7)).Return(current, nil)
		adminRole := model.AdminRoleID

		_, err := NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Update(context.Background(), 7,
			UpdateUserInput{RoleID: &adminRole}, &admin)

		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByID", mock.Anything, int64(70)).Return(nil, nil)

		_, err := NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Update(context.Background(), 70, UpdateUserInput{}, &admin)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestUserService_Delete(t *testing.T) {
	admin := int64(1)

	t.Run("removes role links", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("SoftDelete", mock.Anything, int64(7), &admin).Return(true, nil)
		users.On("RemoveRoles", mock.Anything, int64(7), &admin).Return(nil)

		require.NoError(t, NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Delete(context.Background(), 7, &admin))
		users.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("SoftDelete", mock.Anything, int64(8), &admin).Return(false, nil)

		err := NewUserService(&inlineTx{}, users, new(mockRoleRepo)).Delete(context.Background(), 8, &admin)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
		users.AssertNotCalled(t, "RemoveRoles", mock.Anything, mock.Anything, mock.Anything)
	})
}
