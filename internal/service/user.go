package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	"github.com/SanketOodles/wa-automation-backend/internal/database"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
	"github.com/SanketOodles/wa-automation-backend/internal/util"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type CreateUserInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Password  string  `json:"password"`
	OrgID     *int64  `json:"org_id"`
	RoleID    int64   `json:"role_id"`
	AccLimit  *int    `json:"acc_limit"`
}

type UpdateUserInput struct {
	FirstName *string             `json:"first_name"`
	LastName  *string             `json:"last_name"`
	Email     *string             `json:"email"`
	Phone     *string             `json:"phone"`
	Status    *model.RecordStatus `json:"status"`
	OrgID     *int64              `json:"org_id"`
	RoleID    *int64              `json:"role_id"`
	AccLimit  *int                `json:"acc_limit"`
}

type UserService struct {
	tx    TxRunner
	users repository.UserRepository
	roles repository.RoleRepository
}

func NewUserService(tx TxRunner, users repository.UserRepository, roles repository.RoleRepository) *UserService {
	return &UserService{tx: tx, users: users, roles: roles}
}

// List returns every user with their roles.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	for i := range users {
		roles, err := s.users.FindRoles(ctx, users[i].ID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		users[i].Roles = roles
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	roles, err := s.users.FindRoles(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	user.Roles = roles
	return user, nil
}

// Create is the admin path: the Admin role can never be granted here.
func (s *UserService) Create(ctx context.Context, in CreateUserInput, actorID *int64) (*model.User, error) {
	if in.RoleID == model.AdminRoleID {
		return nil, apperrors.Forbidden("Cannot assign Admin role through this endpoint")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" || in.Password == "" || in.RoleID <= 0 {
		return nil, apperrors.ValidationError("Missing required fields")
	}

	user, err := s.register(ctx, in, actorID)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventUserCreate,
		UserID:  actorID,
		Success: true,
		Details: map[string]interface{}{"created_user_id": user.ID, "role_id": in.RoleID},
	})
	return user, nil
}

// register validates uniqueness and the role, then inserts the user and
// its role link in one transaction.
func (s *UserService) register(ctx context.Context, in CreateUserInput, actorID *int64) (*model.User, error) {
	email := util.NormalizeEmail(in.Email)
	if !util.IsValidEmail(email) {
		return nil, apperrors.InvalidInput("email", "invalid format")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("User with this email")
	}

	role, err := s.roles.FindByID(ctx, in.RoleID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if role == nil {
		return nil, apperrors.NotFound("Selected role")
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	accLimit := 0
	if in.AccLimit != nil {
		accLimit = *in.AccLimit
	}

	var user *model.User
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		created, err := users.Create(ctx, model.CreateUserParams{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Email:        email,
			Phone:        in.Phone,
			HashPassword: hash,
			OrgID:        in.OrgID,
			AccLimit:     accLimit,
			CreatedByID:  actorID,
		})
		if err != nil {
			return err
		}
		if err := users.AssignRole(ctx, created.ID, in.RoleID, actorID); err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	user.Roles = []model.Role{*role}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput, actorID *int64) (*model.User, error) {
	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if current == nil {
		return nil, apperrors.NotFound("User")
	}

	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be active or inactive")
	}

	if in.Email != nil {
		email := util.NormalizeEmail(*in.Email)
		if !util.IsValidEmail(email) {
			return nil, apperrors.InvalidInput("email", "invalid format")
		}
		if email != current.Email {
			existing, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			if existing != nil {
				return nil, apperrors.New(apperrors.ErrCodeConflict, "Email is already in use by another user")
			}
		}
		in.Email = &email
	}

	if in.RoleID != nil {
		if *in.RoleID == model.AdminRoleID {
			return nil, apperrors.Forbidden("Cannot assign Admin role through this endpoint")
		}
		role, err := s.roles.FindByID(ctx, *in.RoleID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if role == nil {
			return nil, apperrors.NotFound("Selected role")
		}
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		if _, err := users.Update(ctx, id, model.UpdateUserParams{
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			Email:       in.Email,
			Phone:       in.Phone,
			Status:      in.Status,
			OrgID:       in.OrgID,
			AccLimit:    in.AccLimit,
			UpdatedByID: actorID,
		}); err != nil {
			return err
		}
		if in.RoleID != nil {
			return users.ReplaceRoles(ctx, id, *in.RoleID, actorID)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if in.RoleID != nil {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventRoleChange,
			UserID:  actorID,
			Success: true,
			Details: map[string]interface{}{"target_user_id": id, "role_id": *in.RoleID},
		})
	}

	return s.Get(ctx, id)
}

// Delete soft-deletes the user and its role links.
func (s *UserService) Delete(ctx context.Context, id int64, actorID *int64) error {
	var found bool
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)
		deleted, err := users.SoftDelete(ctx, id, actorID)
		if err != nil || !deleted {
			return err
		}
		found = true
		return users.RemoveRoles(ctx, id, actorID)
	})
	if err != nil {
		return apperrors.Database(err)
	}
	if !found {
		return apperrors.NotFound("User")
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventUserDelete,
		UserID:  actorID,
		Success: true,
		Details: map[string]interface{}{"deleted_user_id": id},
	})
	return nil
}
