package crypto

import (
	"encoding/base64"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// BytesFromBase64 strictly decodes standard, padded base64.
func BytesFromBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, &domain.CryptoError{
			Code:    domain.CodeParse,
			Reason:  domain.ReasonInvalidBase64,
			Message: "value is not valid base64",
			Err:     err,
		}
	}
	return b, nil
}

// Base64FromBytes encodes b as standard, padded base64.
func Base64FromBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
