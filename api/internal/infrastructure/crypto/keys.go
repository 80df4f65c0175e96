package crypto

import (
	"context"
	"encoding/base64"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Environment slots for key material. Version n is read from
// ADDRESS_ENCRYPTION_KEY_V<n>, falling back to ADDRESS_ENCRYPTION_KEY.
const (
	KeySlotPrefix   = "ADDRESS_ENCRYPTION_KEY_V"
	FallbackKeySlot = "ADDRESS_ENCRYPTION_KEY"
)

// KeySlot returns the environment slot name for a version.
func KeySlot(version int) string {
	return KeySlotPrefix + strconv.Itoa(normalizeVersion(version))
}

// ConfiguredVersions lists the versions that have a slot in environ, which
// holds KEY=value pairs as returned by os.Environ.
func ConfiguredVersions(environ []string) []int {
	var out []int
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, KeySlotPrefix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimPrefix(name, KeySlotPrefix))
		if err != nil || v < 1 {
			continue
		}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func normalizeVersion(version int) int {
	if version <= 0 {
		return domain.DefaultKeyVersion
	}
	return version
}

// EnvKeyResolver reads key material from the process environment on every call.
type EnvKeyResolver struct {
	lookup  func(string) (string, bool)
	current int
}

// NewEnvKeyResolver returns a resolver over os.LookupEnv that writes new
// bundles with currentVersion.
func NewEnvKeyResolver(currentVersion int) *EnvKeyResolver {
	return NewEnvKeyResolverWithLookup(currentVersion, os.LookupEnv)
}

// NewEnvKeyResolverWithLookup uses lookup instead of the process environment.
func NewEnvKeyResolverWithLookup(currentVersion int, lookup func(string) (string, bool)) *EnvKeyResolver {
	return &EnvKeyResolver{lookup: lookup, current: normalizeVersion(currentVersion)}
}

func (r *EnvKeyResolver) CurrentVersion() int { return r.current }

func (r *EnvKeyResolver) ResolveKey(ctx context.Context, version int) ([]byte, error) {
	secret, ok := r.lookup(KeySlot(version))
	if !ok || secret == "" {
		secret, ok = r.lookup(FallbackKeySlot)
	}
	if !ok || secret == "" {
		return nil, domain.NewKeyError(domain.ReasonMissingKey,
			"no key material configured for version "+strconv.Itoa(normalizeVersion(version)))
	}
	return ParseKeyMaterial(secret)
}

// ParseKeyMaterial accepts either 32 raw bytes or base64 that decodes to 32 bytes.
func ParseKeyMaterial(secret string) ([]byte, error) {
	if len(secret) == KeySize {
		return []byte(secret), nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if key, err := enc.DecodeString(secret); err == nil && len(key) == KeySize {
			return key, nil
		}
	}
	return nil, domain.NewKeyError(domain.ReasonInvalidKeyLength, "key material must be 32 bytes")
}

// StaticKeyResolver serves keys from memory.
type StaticKeyResolver struct {
	keys    map[int][]byte
	current int
}

// NewStaticKeyResolver copies keys; version 0 in the map is ignored.
func NewStaticKeyResolver(currentVersion int, keys map[int][]byte) *StaticKeyResolver {
	own := make(map[int][]byte, len(keys))
	for v, k := range keys {
		own[v] = append([]byte(nil), k...)
	}
	return &StaticKeyResolver{keys: own, current: normalizeVersion(currentVersion)}
}

func (r *StaticKeyResolver) CurrentVersion() int { return r.current }

func (r *StaticKeyResolver) ResolveKey(ctx context.Context, version int) ([]byte, error) {
	key, ok := r.keys[normalizeVersion(version)]
	if !ok {
		return nil, domain.NewKeyError(domain.ReasonMissingKey,
			"no key material configured for version "+strconv.Itoa(normalizeVersion(version)))
	}
	if len(key) != KeySize {
		return nil, domain.NewKeyError(domain.ReasonInvalidKeyLength, "key material must be 32 bytes")
	}
	return append([]byte(nil), key...), nil
}
