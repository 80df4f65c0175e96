package crypto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// SerializeBundle encodes a bundle with a fixed field order.
func SerializeBundle(b domain.EncryptedBundle) (string, error) {
	if b.Version <= 0 {
		b.Version = domain.DefaultKeyVersion
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", &domain.CryptoError{Code: domain.CodeParse, Reason: domain.ReasonInvalidBundle, Err: err}
	}
	return string(raw), nil
}

// flexVersion accepts a JSON number, a numeric string or null.
type flexVersion int

func (v *flexVersion) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*v = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return err
		}
		n = int(f)
	}
	*v = flexVersion(n)
	return nil
}

type wireBundle struct {
	Ciphertext string       `json:"ciphertext"`
	IV         string       `json:"iv"`
	AuthTag    string       `json:"authTag"`
	AAD        string       `json:"aad"`
	Version    *flexVersion `json:"version"`
}

// DeserializeBundle decodes a stored bundle. The store may hand back either
// JSON text or an already decoded object depending on the column type.
func DeserializeBundle(stored any) (domain.EncryptedBundle, error) {
	var raw []byte
	switch v := stored.(type) {
	case domain.EncryptedBundle:
		return checkBundle(v)
	case *domain.EncryptedBundle:
		if v == nil {
			return domain.EncryptedBundle{}, missingFields()
		}
		return checkBundle(*v)
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case nil:
		return domain.EncryptedBundle{}, missingFields()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return domain.EncryptedBundle{}, invalidBundle(err)
		}
		raw = b
	}

	raw = bytes.TrimSpace(raw)
	// A JSON string column may hold the bundle double-encoded.
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return domain.EncryptedBundle{}, invalidBundle(err)
		}
		raw = []byte(inner)
	}

	var w wireBundle
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.EncryptedBundle{}, invalidBundle(err)
	}

	b := domain.EncryptedBundle{
		Ciphertext: w.Ciphertext,
		IV:         w.IV,
		AuthTag:    w.AuthTag,
		AAD:        w.AAD,
	}
	if w.Version != nil {
		b.Version = int(*w.Version)
	}
	return checkBundle(b)
}

func checkBundle(b domain.EncryptedBundle) (domain.EncryptedBundle, error) {
	if b.Ciphertext == "" || b.IV == "" || b.AuthTag == "" {
		return domain.EncryptedBundle{}, missingFields()
	}
	if b.Version < 0 {
		return domain.EncryptedBundle{}, domain.NewParseError(domain.ReasonInvalidVersion, "version must not be negative")
	}
	return b, nil
}

func missingFields() error {
	return domain.NewParseError(domain.ReasonMissingFields, "bundle requires ciphertext, iv and authTag")
}

func invalidBundle(err error) error {
	return &domain.CryptoError{
		Code:    domain.CodeParse,
		Reason:  domain.ReasonInvalidBundle,
		Message: "stored bundle is not valid JSON",
		Err:     err,
	}
}

// Seal converts AEAD output into its at-rest bundle.
func Seal(s domain.Sealed, version int) domain.EncryptedBundle {
	b := domain.EncryptedBundle{
		Ciphertext: Base64FromBytes(s.Ciphertext),
		IV:         Base64FromBytes(s.IV),
		AuthTag:    Base64FromBytes(s.Tag),
		Version:    version,
	}
	if len(s.AAD) > 0 {
		b.AAD = Base64FromBytes(s.AAD)
	}
	return b
}

// Open decodes a bundle's base64 fields back into AEAD input and checks
// their lengths.
func Open(b domain.EncryptedBundle) (domain.Sealed, error) {
	ct, err := BytesFromBase64(b.Ciphertext)
	if err != nil {
		return domain.Sealed{}, err
	}
	iv, err := BytesFromBase64(b.IV)
	if err != nil {
		return domain.Sealed{}, err
	}
	tag, err := BytesFromBase64(b.AuthTag)
	if err != nil {
		return domain.Sealed{}, err
	}
	var aad []byte
	if b.AAD != "" {
		if aad, err = BytesFromBase64(b.AAD); err != nil {
			return domain.Sealed{}, err
		}
	}
	sealed := domain.Sealed{Ciphertext: ct, IV: iv, Tag: tag, AAD: aad}
	if err := ValidateSealed(sealed); err != nil {
		return domain.Sealed{}, err
	}
	return sealed, nil
}
