package crypto_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestEnvKeyResolver_VersionSlots(t *testing.T) {
	v1 := bytes.Repeat([]byte{1}, 32)
	v2 := bytes.Repeat([]byte{2}, 32)
	r := crypto.NewEnvKeyResolverWithLookup(2, envOf(map[string]string{
		"ADDRESS_ENCRYPTION_KEY_V1": base64.StdEncoding.EncodeToString(v1),
		"ADDRESS_ENCRYPTION_KEY_V2": string(v2),
	}))
	ctx := context.Background()

	assert.Equal(t, 2, r.CurrentVersion())

	k, err := r.ResolveKey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, v1, k)

	k, err = r.ResolveKey(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, v2, k)

	t.Run("Unspecified version resolves to 1", func(t *testing.T) {
		k, err := r.ResolveKey(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, v1, k)
	})

	t.Run("Missing slot without fallback", func(t *testing.T) {
		_, err := r.ResolveKey(ctx, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, &domain.CryptoError{Code: domain.CodeInvalidKey, Reason: domain.ReasonMissingKey}))
	})
}

func TestEnvKeyResolver_Fallback(t *testing.T) {
	fallback := bytes.Repeat([]byte{7}, 32)
	r := crypto.NewEnvKeyResolverWithLookup(1, envOf(map[string]string{
		"ADDRESS_ENCRYPTION_KEY": base64.RawStdEncoding.EncodeToString(fallback),
	}))

	k, err := r.ResolveKey(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, fallback, k)
}

func TestEnvKeyResolver_InvalidLength(t *testing.T) {
	r := crypto.NewEnvKeyResolverWithLookup(1, envOf(map[string]string{
		"ADDRESS_ENCRYPTION_KEY_V1": base64.StdEncoding.EncodeToString(make([]byte, 16)),
	}))

	_, err := r.ResolveKey(context.Background(), 1)
	ce, ok := domain.AsCryptoError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidKey, ce.Code)
	assert.Equal(t, domain.ReasonInvalidKeyLength, ce.Reason)
}

func TestEnvKeyResolver_ErrorsNeverCarryKeyMaterial(t *testing.T) {
	secret := "this-secret-is-not-thirty-two-bytes"
	r := crypto.NewEnvKeyResolverWithLookup(1, envOf(map[string]string{"ADDRESS_ENCRYPTION_KEY_V1": secret}))

	_, err := r.ResolveKey(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), secret))
}

func TestStaticKeyResolver_ReturnsCopies(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 32)
	r := crypto.NewStaticKeyResolver(1, map[int][]byte{1: key})

	k, err := r.ResolveKey(context.Background(), 1)
	require.NoError(t, err)
	for i := range k {
		k[i] = 0
	}

	again, err := r.ResolveKey(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, key, again, "zeroing a resolved key must not affect the resolver")
}

func TestConfiguredVersions(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"ADDRESS_ENCRYPTION_KEY_V3=abc",
		"ADDRESS_ENCRYPTION_KEY_V1=abc",
		"ADDRESS_ENCRYPTION_KEY_V2=",
		"ADDRESS_ENCRYPTION_KEY_Vx=abc",
		"ADDRESS_ENCRYPTION_KEY=abc",
	}
	assert.Equal(t, []int{1, 3}, crypto.ConfiguredVersions(environ))
}
