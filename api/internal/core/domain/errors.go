package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies every failure on the encrypt/decrypt path.
type ErrorCode string

const (
	CodeParse         ErrorCode = "PARSE_ERROR"
	CodeAuthFailed    ErrorCode = "AUTH_FAILED"
	CodeInvalidKey    ErrorCode = "INVALID_KEY"
	CodeCorruptedData ErrorCode = "CORRUPTED_DATA"
	CodeNotFound      ErrorCode = "NOT_FOUND"
)

// Reasons refine a code. They are safe to show to callers.
const (
	ReasonInvalidBase64     = "INVALID_BASE64"
	ReasonInvalidIV         = "INVALID_IV"
	ReasonInvalidTag        = "INVALID_TAG"
	ReasonInvalidCiphertext = "INVALID_CIPHERTEXT"
	ReasonInvalidBundle     = "INVALID_BUNDLE"
	ReasonMissingFields     = "MISSING_FIELDS"
	ReasonInvalidVersion    = "INVALID_VERSION"
	ReasonInvalidRequest    = "INVALID_REQUEST"
	ReasonInvalidTarget     = "INVALID_TARGET"
	ReasonInvalidPayload    = "INVALID_PAYLOAD"
	ReasonMissingKey        = "MISSING_KEY"
	ReasonInvalidKeyLength  = "INVALID_KEY_LENGTH"
)

// MsgMissingEncryptionFields is returned when no request shape matches.
const MsgMissingEncryptionFields = "Missing or invalid encryption fields."

// CryptoError is the typed error carried by every decrypt-path failure.
// errors.Is matches on Code, so callers can test against the sentinels below.
type CryptoError struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *CryptoError) Error() string {
	switch {
	case e.Reason != "" && e.Message != "":
		return fmt.Sprintf("%s(%s): %s", e.Code, e.Reason, e.Message)
	case e.Reason != "":
		return fmt.Sprintf("%s(%s)", e.Code, e.Reason)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *CryptoError) Unwrap() error { return e.Err }

func (e *CryptoError) Is(target error) bool {
	t, ok := target.(*CryptoError)
	if !ok {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrParse         = &CryptoError{Code: CodeParse}
	ErrAuthFailed    = &CryptoError{Code: CodeAuthFailed}
	ErrInvalidKey    = &CryptoError{Code: CodeInvalidKey}
	ErrCorruptedData = &CryptoError{Code: CodeCorruptedData}
	ErrNotFound      = &CryptoError{Code: CodeNotFound, Message: "address not found"}
)

// Authentication and authorization failures live outside the crypto taxonomy.
var (
	ErrUnauthenticated = errors.New("missing or invalid credential")
	ErrAccessDenied    = errors.New("Unauthorized access to profile data")
)

// NewParseError builds a PARSE_ERROR with the given reason.
func NewParseError(reason, message string) *CryptoError {
	return &CryptoError{Code: CodeParse, Reason: reason, Message: message}
}

// NewKeyError builds an INVALID_KEY error.
func NewKeyError(reason, message string) *CryptoError {
	return &CryptoError{Code: CodeInvalidKey, Reason: reason, Message: message}
}

// AsCryptoError extracts a *CryptoError from an error chain.
func AsCryptoError(err error) (*CryptoError, bool) {
	var ce *CryptoError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
