package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
	"github.com/SanketOodles/wa-automation-backend/internal/util"
)

// Authenticator is implemented by *service.AuthService.
type Authenticator interface {
	Signup(ctx context.Context, in service.CreateUserInput, actorID *int64) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

type AuthHandler struct {
	auth       Authenticator
	loginGuard []func(http.Handler) http.Handler
}

// NewAuthHandler wires signup and login. loginGuard wraps login only.
func NewAuthHandler(auth Authenticator, loginGuard ...func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{auth: auth, loginGuard: loginGuard}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", h.Signup)
	r.With(h.loginGuard...).Post("/login", h.Login)

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), in, middleware.GetUserID(r.Context()))
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventSignup,
			Success: false,
			Details: map[string]interface{}{"email": util.MaskEmail(in.Email)},
		})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSignup,
		UserID:  &result.ID,
		Success: true,
	})
	writeSuccess(w, http.StatusCreated, "User registered successfully", result)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Success: false,
			Details: map[string]interface{}{"email": util.MaskEmail(req.Email)},
		})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventLoginSuccess,
		UserID:  &result.ID,
		Success: true,
	})
	writeSuccess(w, http.StatusOK, "Login successful", result)
}
