package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
)

type RoleInput struct {
	Name   *string             `json:"name"`
	Status *model.RecordStatus `json:"status"`
}

type RoleService struct {
	roles repository.RoleRepository
}

func NewRoleService(roles repository.RoleRepository) *RoleService {
	return &RoleService{roles: roles}
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return roles, nil
}

// ListAssignable returns every role except Admin.
func (s *RoleService) ListAssignable(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.FindAssignable(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, id int64) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if role == nil {
		return nil, apperrors.NotFound("Role")
	}
	return role, nil
}

func (s *RoleService) Create(ctx context.Context, in RoleInput, actorID *int64) (*model.Role, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.MissingRequired("Role name")
	}
	name := strings.TrimSpace(*in.Name)

	status := model.RecordStatusActive
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperrors.InvalidInput("status", "must be active or inactive")
		}
		status = *in.Status
	}

	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	role, err := s.roles.Create(ctx, model.CreateRoleParams{
		Name:        name,
		Status:      status,
		CreatedByID: actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return role, nil
}

// Update refuses to touch the Admin role.
func (s *RoleService) Update(ctx context.Context, id int64, in RoleInput, actorID *int64) (*model.Role, error) {
	if id == model.AdminRoleID {
		return nil, apperrors.Forbidden("Admin role cannot be modified")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be active or inactive")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name", "cannot be empty")
		}
		if !strings.EqualFold(name, existing.Name) {
			if err := s.ensureNameFree(ctx, name, id); err != nil {
				return nil, err
			}
		}
		in.Name = &name
	}

	role, err := s.roles.Update(ctx, id, model.UpdateRoleParams{
		Name:        in.Name,
		Status:      in.Status,
		UpdatedByID: actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if role == nil {
		return nil, apperrors.NotFound("Role")
	}
	return role, nil
}

// Delete refuses the seeded system roles (id <= Admin).
func (s *RoleService) Delete(ctx context.Context, id int64, actorID *int64) error {
	if id <= model.AdminRoleID {
		return apperrors.Forbidden("System roles cannot be deleted")
	}

	deleted, err := s.roles.SoftDelete(ctx, id, actorID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Role")
	}

	log.Info().Int64("roleId", id).Msg("role deleted")
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return apperrors.Database(err)
	}
	if existing != nil && existing.ID != selfID {
		return apperrors.AlreadyExists("Role with this name")
	}
	return nil
}
