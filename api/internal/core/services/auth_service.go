package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// AuthService turns a bearer credential into an AuthContext.
type AuthService struct {
	tokens   *TokenService
	profiles domain.ProfileRepository
}

func NewAuthService(tokens *TokenService, profiles domain.ProfileRepository) *AuthService {
	return &AuthService{tokens: tokens, profiles: profiles}
}

// ResolveCaller validates the token and loads the caller's admin flag.
// A caller without a profile row is treated as a non-admin.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (domain.AuthContext, error) {
	if token == "" {
		return domain.AuthContext{}, domain.ErrUnauthenticated
	}

	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return domain.AuthContext{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	isAdmin, err := s.profiles.IsAdmin(ctx, claims.Subject)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.AuthContext{}, fmt.Errorf("failed to load caller profile: %w", err)
	}

	return domain.AuthContext{CallerID: claims.Subject, IsAdmin: isAdmin}, nil
}
