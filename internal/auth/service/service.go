// Package service issues operator access tokens.
package service

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/auth/password"
	"nurture_backend/internal/auth/repository"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

type Service struct {
	repo *repository.Repository
	cfg  config.AuthConfig
}

func New(repo *repository.Repository, cfg config.AuthConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// SignIn verifies the credentials and returns a signed access token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (string, repository.Operator, error) {
	operator, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", repository.Operator{}, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return "", repository.Operator{}, apperr.Wrap(apperr.KindInternal, "failed to load operator", err)
	}

	if err := password.Compare(operator.PasswordHash, plainPassword); err != nil {
		return "", repository.Operator{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.signAccessToken(operator.ID)
	if err != nil {
		return "", repository.Operator{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}
	return token, operator, nil
}

// Me returns the operator for an already-authenticated request.
func (s *Service) Me(ctx context.Context, operatorID uuid.UUID) (repository.Operator, error) {
	operator, err := s.repo.GetByID(ctx, operatorID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Operator{}, apperr.NotFound("operator not found")
	}
	return operator, err
}

func (s *Service) signAccessToken(operatorID uuid.UUID) (string, error) {
	ttl := s.cfg.GetAccessTokenTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  operatorID.String(),
		"type": accessTokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
