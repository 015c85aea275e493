package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
)

// AccountManager is implemented by *service.AccountService.
type AccountManager interface {
	Create(ctx context.Context, in service.CreateAccountInput, actorID *int64) (*model.Account, error)
	List(ctx context.Context, filter model.AccountFilter) ([]model.Account, error)
	ListByOrg(ctx context.Context, orgID int64) ([]model.Account, error)
	Get(ctx context.Context, id int64) (*model.Account, error)
	Update(ctx context.Context, id int64, in service.UpdateAccountInput, actorID *int64) (*model.Account, error)
	Delete(ctx context.Context, id int64, actorID *int64) error
	StatusSummary(ctx context.Context, orgID int64) (*model.AccountStatusSummary, error)
}

type AccountHandler struct {
	accounts AccountManager
}

func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/org/{orgId}", h.ListByOrg)
	r.Get("/org/{orgId}/status-summary", h.StatusSummary)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateAccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Account created successfully", account)
}

// GET /api/accounts?org_id=&status=
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := optionalInt64Query(r, "org_id")
	if err != nil {
		writeError(w, err)
		return
	}

	filter := model.AccountFilter{OrgID: orgID}
	if status := r.URL.Query().Get("status"); status != "" {
		s := model.AccountStatus(status)
		filter.Status = &s
	}

	accounts, err := h.accounts.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", accounts)
}

// GET /api/accounts/org/{orgId}
func (h *AccountHandler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	orgID, err := idParam(r, "orgId")
	if err != nil {
		writeError(w, err)
		return
	}

	accounts, err := h.accounts.ListByOrg(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", accounts)
}

// GET /api/accounts/org/{orgId}/status-summary
func (h *AccountHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	orgID, err := idParam(r, "orgId")
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.accounts.StatusSummary(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", summary)
}

// GET /api/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", account)
}

// PUT /api/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdateAccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Update(r.Context(), id, in, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Account updated successfully", account)
}

// DELETE /api/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Account deleted successfully", nil)
}
