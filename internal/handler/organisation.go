package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
)

// OrganisationManager is implemented by *service.OrganisationService.
type OrganisationManager interface {
	List(ctx context.Context, p service.ListOrganisationsParams) (*service.OrganisationPage, error)
	Get(ctx context.Context, id int64) (*model.Organisation, error)
	Create(ctx context.Context, in service.CreateOrganisationInput, actorID *int64) (*model.Organisation, error)
	Update(ctx context.Context, id int64, in service.UpdateOrganisationInput, actorID *int64) (*model.Organisation, error)
	Delete(ctx context.Context, id int64, actorID *int64) error
}

type OrganisationHandler struct {
	orgs   OrganisationManager
	guards Guards
}

func NewOrganisationHandler(orgs OrganisationManager, guards Guards) *OrganisationHandler {
	return &OrganisationHandler{orgs: orgs, guards: guards}
}

func (h *OrganisationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)

	r.Group(func(r chi.Router) {
		r.Use(h.guards.admin()...)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// GET /api/organisations?status=&search=&page=&limit=
func (h *OrganisationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := ParsePagination(r)

	params := service.ListOrganisationsParams{
		Search: q.Get("search"),
		Page:   page.Page,
		Limit:  page.Limit,
	}
	if status := q.Get("status"); status != "" {
		s := model.RecordStatus(status)
		params.Status = &s
	}

	result, err := h.orgs.List(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

// GET /api/organisations/{id}
func (h *OrganisationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	org, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", org)
}

// POST /api/organisations
func (h *OrganisationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateOrganisationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	org, err := h.orgs.Create(r.Context(), in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Organisation created successfully", org)
}

// PUT /api/organisations/{id}
func (h *OrganisationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdateOrganisationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	org, err := h.orgs.Update(r.Context(), id, in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Organisation updated successfully", org)
}

// DELETE /api/organisations/{id}
func (h *OrganisationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.orgs.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Organisation deleted successfully", nil)
}
