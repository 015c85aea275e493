package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	"github.com/SanketOodles/wa-automation-backend/internal/auth"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type contextKey string

const UserContextKey contextKey = "user"

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

// GetUserID returns the signed-in user's id, or nil for anonymous requests.
func GetUserID(ctx context.Context) *int64 {
	if user := GetUser(ctx); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// UserFinder loads non-deleted users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  UserFinder
}

func NewAuthMiddleware(tokens *auth.TokenManager, users UserFinder) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handler rejects requests without a valid bearer token for an existing user.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("No token provided"))
			return
		}

		user, err := m.authenticate(r.Context(), token)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Success: false,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.authenticate(r.Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("optional auth: ignoring invalid token")
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		log.Warn().Err(err).Msg("auth middleware: invalid token")
		return nil, apperrors.InvalidToken("Invalid token")
	}

	user, err := m.users.FindByID(ctx, claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("auth middleware: database error")
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized("User not found")
	}
	return user, nil
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if token, err := auth.ExtractToken(authHeader); err == nil {
			return token
		}
	}
	return ""
}
