package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

type RoleChecker interface {
	HasRole(ctx context.Context, userID, roleID int64) (bool, error)
}

// AdminMiddleware must run after AuthMiddleware.Handler.
type AdminMiddleware struct {
	roles RoleChecker
}

func NewAdminMiddleware(roles RoleChecker) *AdminMiddleware {
	return &AdminMiddleware{roles: roles}
}

func (m *AdminMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
			return
		}

		isAdmin, err := m.roles.HasRole(r.Context(), user.ID, model.AdminRoleID)
		if err != nil {
			log.Error().Err(err).Int64("userId", user.ID).Msg("admin middleware: role lookup failed")
			httputil.WriteError(w, apperrors.Database(err))
			return
		}
		if !isAdmin {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAdminDenied,
				UserID:  &user.ID,
				Success: false,
				Details: map[string]interface{}{"path": r.URL.Path, "method": r.Method},
			})
			httputil.WriteError(w, apperrors.Forbidden("Admin access required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
