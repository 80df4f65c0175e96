package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarket/addrvault/api/internal/core/services"
)

const (
	testSecret = "super-secret-key-for-testing-purposes-1234567890"
	testIssuer = "bookmarket-identity"
)

func TestTokenService_IssueAccessToken(t *testing.T) {
	tokenService := services.NewTokenService(testSecret, testIssuer)

	signed, err := tokenService.IssueAccessToken("profile-123", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	token, err := jwt.ParseWithClaims(signed, &services.CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*services.CallerClaims)
	require.True(t, ok)

	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, "profile-123", claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	expectedExp := time.Now().Add(services.AccessTokenTTL)
	assert.WithinDuration(t, expectedExp, claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenService_ValidateAccessToken(t *testing.T) {
	tokenService := services.NewTokenService(testSecret, testIssuer)
	accessToken, err := tokenService.IssueAccessToken("profile-123", time.Minute)
	require.NoError(t, err)

	t.Run("Valid Access Token", func(t *testing.T) {
		claims, err := tokenService.ValidateAccessToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, "profile-123", claims.Subject)
	})

	t.Run("Invalid: Wrong Secret", func(t *testing.T) {
		other := services.NewTokenService("wrong-secret-key", testIssuer)
		otherToken, err := other.IssueAccessToken("profile-123", time.Minute)
		require.NoError(t, err)

		claims, err := tokenService.ValidateAccessToken(otherToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "signature is invalid")
	})

	t.Run("Invalid: Wrong Issuer", func(t *testing.T) {
		other := services.NewTokenService(testSecret, "someone-else")
		otherToken, err := other.IssueAccessToken("profile-123", time.Minute)
		require.NoError(t, err)

		_, err = tokenService.ValidateAccessToken(otherToken)
		assert.Error(t, err)
	})

	t.Run("Invalid: Expired", func(t *testing.T) {
		claims := services.CallerClaims{
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "profile-123",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tokenService.ValidateAccessToken(expired)
		assert.Error(t, err)
	})

	t.Run("Invalid: Wrong Algorithm", func(t *testing.T) {
		claims := services.CallerClaims{
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "profile-123",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tokenService.ValidateAccessToken(hs512)
		assert.Error(t, err)
	})

	t.Run("Invalid: Refresh Token Type", func(t *testing.T) {
		claims := services.CallerClaims{
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "profile-123",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tokenService.ValidateAccessToken(refresh)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token type")
	})

	t.Run("Invalid: Malformed Token", func(t *testing.T) {
		claims, err := tokenService.ValidateAccessToken("not.a.valid.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}
