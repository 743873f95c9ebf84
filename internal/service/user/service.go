package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/security"
)

const resetTokenExpiry = 2 * time.Hour

type UserServicer interface {
	Register(ctx context.Context, email, name, password, locale string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context, p *model.Pagination) ([]*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type Service struct {
	repo      repository.UserRepository
	tokenRepo repository.TokenRepository
	hasher    security.PasswordHasher
	publisher *mailer.Publisher
}

func NewService(repo repository.UserRepository, tokenRepo repository.TokenRepository, hasher security.PasswordHasher, publisher *mailer.Publisher) *Service {
	return &Service{
		repo:      repo,
		tokenRepo: tokenRepo,
		hasher:    hasher,
		publisher: publisher,
	}
}

func (s *Service) Register(ctx context.Context, email, name, password, locale string) (*model.User, error) {
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	if !mailer.Locale(locale).Supported() {
		locale = string(mailer.LocaleEN)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Locale:       locale,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publisher.Publish(ctx, &mailer.EmailEvent{
		Type:   mailer.EventWelcome,
		Locale: mailer.Locale(user.Locale),
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
	})

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, user *model.User) error {
	return s.repo.Update(ctx, user)
}

func (s *Service) ListUsers(ctx context.Context, p *model.Pagination) ([]*model.User, error) {
	return s.repo.List(ctx, p)
}

// RequestPasswordReset issues a reset token and enqueues the reset email.
// An unknown address returns nil so the endpoint does not leak which
// emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.tokenRepo.CreateResetToken(ctx, &model.PasswordResetToken{
		UserID:    user.ID.String(),
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenExpiry),
	}); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.publisher.Publish(ctx, &mailer.EmailEvent{
		Type:   mailer.EventPasswordReset,
		Locale: mailer.Locale(user.Locale),
		UserID: user.ID.String(),
		Email:  user.Email,
		Token:  token,
	})

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.tokenRepo.GetResetToken(ctx, token)
	if err != nil {
		return apperrors.BadRequest("invalid or expired reset token", err)
	}
	if record.UsedAt != nil || time.Now().After(record.ExpiresAt) {
		return apperrors.BadRequest("invalid or expired reset token", nil)
	}

	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return apperrors.Internal(err)
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.BadRequest("invalid password", err)
	}
	user.PasswordHash = hash

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return s.tokenRepo.MarkResetTokenUsed(ctx, record.ID)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
