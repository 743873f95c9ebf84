package auth

import (
	"context"
	"time"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
	"github.com/skartik/commerce-api/pkg/auth"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/security"
)

type AuthServicer interface {
	Login(ctx context.Context, email, password string) (string, *model.User, error)
}

type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    auth.JWTService
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService) *Service {
	return &Service{users: users, hasher: hasher, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", nil, apperrors.Internal(err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	// Best effort; a failed timestamp update must not fail the login.
	_ = s.users.Update(ctx, user)

	return token, user, nil
}
