package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
)

// UserManager is implemented by *service.UserService.
type UserManager interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, in service.CreateUserInput, actorID *int64) (*model.User, error)
	Update(ctx context.Context, id int64, in service.UpdateUserInput, actorID *int64) (*model.User, error)
	Delete(ctx context.Context, id int64, actorID *int64) error
}

// AssignableRoleLister is implemented by *service.RoleService.
type AssignableRoleLister interface {
	ListAssignable(ctx context.Context) ([]model.Role, error)
}

type UserHandler struct {
	users  UserManager
	roles  AssignableRoleLister
	guards Guards
}

func NewUserHandler(users UserManager, roles AssignableRoleLister, guards Guards) *UserHandler {
	return &UserHandler{users: users, roles: roles, guards: guards}
}

func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/roles/non-admin", h.ListAssignableRoles)

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

// GET /api/users/roles/non-admin
func (h *UserHandler) ListAssignableRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.ListAssignable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", roles)
}

// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", users)
}

// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", user)
}

// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User created successfully", user)
}

// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}
