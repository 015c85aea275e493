package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
)

// RoleManager is implemented by *service.RoleService.
type RoleManager interface {
	List(ctx context.Context) ([]model.Role, error)
	ListAssignable(ctx context.Context) ([]model.Role, error)
	Get(ctx context.Context, id int64) (*model.Role, error)
	Create(ctx context.Context, in service.RoleInput, actorID *int64) (*model.Role, error)
	Update(ctx context.Context, id int64, in service.RoleInput, actorID *int64) (*model.Role, error)
	Delete(ctx context.Context, id int64, actorID *int64) error
}

type RoleHandler struct {
	roles  RoleManager
	guards Guards
}

func NewRoleHandler(roles RoleManager, guards Guards) *RoleHandler {
	return &RoleHandler{roles: roles, guards: guards}
}

func (h *RoleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.guards.authenticated()...)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guards.admin()...)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// GET /api/roles
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", roles)
}

// GET /api/roles/{id}
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	role, err := h.roles.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", role)
}

// POST /api/roles
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.RoleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	role, err := h.roles.Create(r.Context(), in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Role created successfully", role)
}

// PUT /api/roles/{id}
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.RoleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	role, err := h.roles.Update(r.Context(), id, in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Role updated successfully", role)
}

// DELETE /api/roles/{id}
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.roles.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Role deleted successfully", nil)
}
