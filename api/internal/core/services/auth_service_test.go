package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/core/services"
	"github.com/bookmarket/addrvault/api/internal/db/memory"
)

func TestAuthService_ResolveCaller(t *testing.T) {
	store := memory.NewStore()
	store.PutProfile("admin-1", true)
	store.PutProfile("user-1", false)

	tokens := services.NewTokenService(testSecret, testIssuer)
	auth := services.NewAuthService(tokens, store)
	ctx := context.Background()

	issue := func(sub string) string {
		tok, err := tokens.IssueAccessToken(sub, time.Minute)
		require.NoError(t, err)
		return tok
	}

	t.Run("admin flag comes from the profile", func(t *testing.T) {
		caller, err := auth.ResolveCaller(ctx, issue("admin-1"))
		require.NoError(t, err)
		assert.Equal(t, domain.AuthContext{CallerID: "admin-1", IsAdmin: true}, caller)
	})

	t.Run("regular user", func(t *testing.T) {
		caller, err := auth.ResolveCaller(ctx, issue("user-1"))
		require.NoError(t, err)
		assert.False(t, caller.IsAdmin)
	})

	t.Run("caller without profile is not admin", func(t *testing.T) {
		caller, err := auth.ResolveCaller(ctx, issue("new-user"))
		require.NoError(t, err)
		assert.Equal(t, "new-user", caller.CallerID)
		assert.False(t, caller.IsAdmin)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := auth.ResolveCaller(ctx, "")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("forged token", func(t *testing.T) {
		forged, err := services.NewTokenService("another-secret", testIssuer).IssueAccessToken("admin-1", time.Minute)
		require.NoError(t, err)
		_, err = auth.ResolveCaller(ctx, forged)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}
