package service

import (
	"context"
	"strings"

	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// OrgUserLister loads the users embedded in organisation responses.
type OrgUserLister interface {
	FindSummariesByOrgIDs(ctx context.Context, orgIDs []int64) ([]model.UserSummary, error)
}

type ListOrganisationsParams struct {
	Status *model.RecordStatus
	Search string
	Page   int
	Limit  int
}

type OrganisationPage struct {
	Organisations []model.Organisation `json:"organisations"`
	Total         int                  `json:"total"`
	CurrentPage   int                  `json:"currentPage"`
	TotalPages    int                  `json:"totalPages"`
}

type CreateOrganisationInput struct {
	Name               string             `json:"name"`
	Status             model.RecordStatus `json:"status"`
	TypeOfOrganisation *string            `json:"type_of_organisation"`
}

type UpdateOrganisationInput struct {
	Name               *string             `json:"name"`
	Status             *model.RecordStatus `json:"status"`
	TypeOfOrganisation *string             `json:"type_of_organisation"`
}

type OrganisationService struct {
	orgs  repository.OrganisationRepository
	users OrgUserLister
}

func NewOrganisationService(orgs repository.OrganisationRepository, users OrgUserLister) *OrganisationService {
	return &OrganisationService{orgs: orgs, users: users}
}

func (s *OrganisationService) List(ctx context.Context, p ListOrganisationsParams) (*OrganisationPage, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be active or inactive")
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := model.OrganisationFilter{
		Status: p.Status,
		Search: strings.TrimSpace(p.Search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	orgs, err := s.orgs.FindAll(ctx, filter)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.orgs.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.attachUsers(ctx, orgs); err != nil {
		return nil, err
	}

	return &OrganisationPage{
		Organisations: orgs,
		Total:         total,
		CurrentPage:   page,
		TotalPages:    (total + limit - 1) / limit,
	}, nil
}

func (s *OrganisationService) Get(ctx context.Context, id int64) (*model.Organisation, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if org == nil {
		return nil, apperrors.NotFound("Organisation")
	}

	orgs := []model.Organisation{*org}
	if err := s.attachUsers(ctx, orgs); err != nil {
		return nil, err
	}
	return &orgs[0], nil
}

func (s *OrganisationService) Create(ctx context.Context, in CreateOrganisationInput, actorID *int64) (*model.Organisation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	status := in.Status
	if status == "" {
		status = model.RecordStatusActive
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be active or inactive")
	}

	org, err := s.orgs.Create(ctx, model.CreateOrganisationParams{
		Name:               name,
		Status:             status,
		TypeOfOrganisation: in.TypeOfOrganisation,
		CreatedByID:        actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	org.Users = []model.UserSummary{}
	return org, nil
}

func (s *OrganisationService) Update(ctx context.Context, id int64, in UpdateOrganisationInput, actorID *int64) (*model.Organisation, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name", "cannot be empty")
		}
		in.Name = &name
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.InvalidInput("status", "must be active or inactive")
	}

	org, err := s.orgs.Update(ctx, id, model.UpdateOrganisationParams{
		Name:               in.Name,
		Status:             in.Status,
		TypeOfOrganisation: in.TypeOfOrganisation,
		UpdatedByID:        actorID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if org == nil {
		return nil, apperrors.NotFound("Organisation")
	}
	org.Users = []model.UserSummary{}
	return org, nil
}

func (s *OrganisationService) Delete(ctx context.Context, id int64, actorID *int64) error {
	deleted, err := s.orgs.SoftDelete(ctx, id, actorID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Organisation")
	}
	return nil
}

func (s *OrganisationService) attachUsers(ctx context.Context, orgs []model.Organisation) error {
	ids := make([]int64, 0, len(orgs))
	for _, org := range orgs {
		ids = append(ids, org.ID)
	}

	users, err := s.users.FindSummariesByOrgIDs(ctx, ids)
	if err != nil {
		return apperrors.Database(err)
	}

	byOrg := make(map[int64][]model.UserSummary, len(orgs))
	for _, u := range users {
		byOrg[u.OrgID] = append(byOrg[u.OrgID], u)
	}
	for i := range orgs {
		orgs[i].Users = byOrg[orgs[i].ID]
		if orgs[i].Users == nil {
			orgs[i].Users = []model.UserSummary{}
		}
	}
	return nil
}
