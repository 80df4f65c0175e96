package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

const (
	NonceSize = 12
	TagSize   = 16
)

// AESGCMEngine implements domain.AEADEngine with AES-256-GCM.
// It holds no key state and is safe for concurrent use.
type AESGCMEngine struct {
	rand io.Reader
}

func NewAESGCMEngine() *AESGCMEngine {
	return &AESGCMEngine{rand: rand.Reader}
}

// NewAESGCMEngineWithRand draws nonces from r instead of crypto/rand.
func NewAESGCMEngineWithRand(r io.Reader) *AESGCMEngine {
	return &AESGCMEngine{rand: r}
}

func (e *AESGCMEngine) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, domain.NewKeyError(domain.ReasonInvalidKeyLength, "key material must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &domain.CryptoError{Code: domain.CodeCorruptedData, Message: "block cipher failure", Err: err}
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, &domain.CryptoError{Code: domain.CodeCorruptedData, Message: "GCM failure", Err: err}
	}
	return gcm, nil
}

func (e *AESGCMEngine) Encrypt(plaintext, key, aad []byte) (domain.Sealed, error) {
	gcm, err := e.aead(key)
	if err != nil {
		return domain.Sealed{}, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return domain.Sealed{}, fmt.Errorf("crypto: nonce generation failure: %w", err)
	}

	out := gcm.Seal(nil, nonce, plaintext, aad)
	split := len(out) - TagSize

	return domain.Sealed{
		Ciphertext: out[:split:split],
		IV:         nonce,
		Tag:        out[split:],
		AAD:        aad,
	}, nil
}

// ValidateSealed checks IV, tag and ciphertext lengths.
func ValidateSealed(s domain.Sealed) error {
	if len(s.IV) != NonceSize {
		return domain.NewParseError(domain.ReasonInvalidIV, "iv must be 12 bytes")
	}
	if len(s.Tag) != TagSize {
		return domain.NewParseError(domain.ReasonInvalidTag, "authTag must be 16 bytes")
	}
	if len(s.Ciphertext) == 0 {
		return domain.NewParseError(domain.ReasonInvalidCiphertext, "ciphertext is empty")
	}
	return nil
}

func (e *AESGCMEngine) Decrypt(sealed domain.Sealed, key []byte) ([]byte, error) {
	// Shape checks run before any cipher work.
	if err := ValidateSealed(sealed); err != nil {
		return nil, err
	}

	gcm, err := e.aead(key)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(sealed.Ciphertext)+TagSize)
	buf = append(buf, sealed.Ciphertext...)
	buf = append(buf, sealed.Tag...)

	plaintext, err := gcm.Open(nil, sealed.IV, buf, sealed.AAD)
	if err != nil {
		return nil, &domain.CryptoError{
			Code:    domain.CodeAuthFailed,
			Message: "integrity violation - potential tampering detected",
		}
	}
	return plaintext, nil
}
