package domain

import "context"

// Sealed is raw AEAD output. Ciphertext and tag stay separate until the
// bundle is serialized.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	AAD        []byte
}

// AEADEngine performs authenticated encryption under a caller-supplied key.
type AEADEngine interface {
	// Encrypt seals plaintext under key with a fresh random IV.
	Encrypt(plaintext, key, aad []byte) (Sealed, error)

	// Decrypt verifies and opens a sealed payload. It never returns partial output.
	Decrypt(sealed Sealed, key []byte) ([]byte, error)
}

// KeyResolver maps a key version onto 32 bytes of AES-256 key material.
// Implementations must return a copy the caller may zero.
type KeyResolver interface {
	ResolveKey(ctx context.Context, version int) ([]byte, error)

	// CurrentVersion is the version new bundles are written with.
	CurrentVersion() int
}
