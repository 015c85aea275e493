package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/auth"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
	"github.com/SanketOodles/wa-automation-backend/internal/util"
)

type AuthResult struct {
	ID        int64        `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	RoleID    int64        `json:"role_id,omitempty"`
	Roles     []model.Role `json:"roles,omitempty"`
	Token     string       `json:"token"`
}

type AuthService struct {
	users  *UserService
	repo   repository.UserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users *UserService, repo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, repo: repo, tokens: tokens}
}

// Signup registers a user with any existing role. Every field is required.
func (s *AuthService) Signup(ctx context.Context, in CreateUserInput, actorID *int64) (*AuthResult, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" || in.Password == "" || in.RoleID <= 0 ||
		in.OrgID == nil || in.AccLimit == nil || in.Phone == nil || strings.TrimSpace(*in.Phone) == "" {
		return nil, apperrors.ValidationError("Missing required fields")
	}

	user, err := s.users.register(ctx, in, actorID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}

	log.Info().Int64("userId", user.ID).Str("email", util.MaskEmail(user.Email)).Msg("user signed up")

	return &AuthResult{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		RoleID:    in.RoleID,
		Token:     token,
	}, nil
}

// Login checks credentials. Unknown email and wrong password share one error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.ValidationError("Email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.InvalidCredentials()
	}
	if user.Status != model.RecordStatusActive {
		return nil, apperrors.InactiveUser()
	}
	if !util.CheckPasswordHash(password, user.HashPassword) {
		return nil, apperrors.InvalidCredentials()
	}

	roles, err := s.repo.FindRoles(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}

	return &AuthResult{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Roles:     roles,
		Token:     token,
	}, nil
}
