package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenTTL is the lifetime of tokens minted by IssueAccessToken.
const AccessTokenTTL = 15 * time.Minute

// CallerClaims is the payload of a bearer credential. The subject is the
// caller's profile id.
type CallerClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	issuer string
}

func NewTokenService(secret, issuer string) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer}
}

// IssueAccessToken mints a short-lived HS256 access token for subject.
// Used by the audit tooling and tests; production tokens come from the
// identity provider sharing the same secret.
func (s *TokenService) IssueAccessToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = AccessTokenTTL
	}
	now := time.Now()
	claims := CallerClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, expiry, issuer and token type.
func (s *TokenService) ValidateAccessToken(tokenString string) (*CallerClaims, error) {
	opts := []jwt.ParserOption{
		// Force the signing method check
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token signature or expired: %w", err)
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != "access" {
		return nil, fmt.Errorf("invalid token type: expected access")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("malformed subject claim")
	}
	return claims, nil
}
