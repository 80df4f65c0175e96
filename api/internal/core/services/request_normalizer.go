package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New()

type lookupDescriptor struct {
	Table       string `validate:"required,oneof=profiles books orders"`
	TargetID    string `validate:"required,max=128"`
	AddressType string `validate:"max=32"`
}

// NormalizeDecryptRequest reduces a raw decrypt body to exactly one request
// variant. Shapes are tried in a fixed order, first match wins:
//
//  1. direct fields  {encryptedData, iv, authTag}
//  2. nested bundle  {encrypted} or flat bundle {ciphertext, iv, authTag}
//  3. fetch          {fetch: {table, target_id, address_type}}
//  4. legacy triple  {table, target_id, address_type}
func NormalizeDecryptRequest(body map[string]any) (domain.DecryptRequest, error) {
	if body == nil {
		return nil, missingEncryptionFields()
	}

	if hasStrings(body, "encryptedData", "iv", "authTag") {
		b := domain.EncryptedBundle{
			Ciphertext: body["encryptedData"].(string),
			IV:         body["iv"].(string),
			AuthTag:    body["authTag"].(string),
		}
		if aad, ok := body["aad"].(string); ok {
			b.AAD = aad
		}
		v, err := versionOf(body["version"])
		if err != nil {
			return nil, err
		}
		b.Version = v
		return domain.InlineRequest{Bundle: b, Shape: domain.ShapeDirect}, nil
	}

	if enc, ok := body["encrypted"]; ok && enc != nil {
		b, err := crypto.DeserializeBundle(enc)
		if err != nil {
			return nil, err
		}
		return domain.InlineRequest{Bundle: b, Shape: domain.ShapeNested}, nil
	}

	if hasStrings(body, "ciphertext", "iv", "authTag") {
		b, err := crypto.DeserializeBundle(body)
		if err != nil {
			return nil, err
		}
		return domain.InlineRequest{Bundle: b, Shape: domain.ShapeFlat}, nil
	}

	if fetch, ok := body["fetch"].(map[string]any); ok {
		target, err := lookupTarget(fetch)
		if err != nil {
			return nil, err
		}
		return domain.LookupRequest{Target: target, Shape: domain.ShapeFetch}, nil
	}

	_, hasTable := body["table"]
	_, hasTarget := body["target_id"]
	if hasTable && hasTarget {
		target, err := lookupTarget(body)
		if err != nil {
			return nil, err
		}
		return domain.LookupRequest{Target: target, Shape: domain.ShapeLegacy}, nil
	}

	return nil, missingEncryptionFields()
}

func lookupTarget(m map[string]any) (domain.AddressTarget, error) {
	d := lookupDescriptor{
		Table:       stringOf(m["table"]),
		TargetID:    stringOf(m["target_id"]),
		AddressType: stringOf(m["address_type"]),
	}
	if err := validate.Struct(d); err != nil {
		return domain.AddressTarget{}, &domain.CryptoError{
			Code:    domain.CodeParse,
			Reason:  domain.ReasonInvalidTarget,
			Message: "table must be one of profiles, books, orders and target_id is required",
			Err:     err,
		}
	}
	return domain.NewAddressTarget(domain.Table(d.Table), d.TargetID, domain.AddressType(d.AddressType)), nil
}

func hasStrings(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || s == "" {
			return false
		}
	}
	return true
}

func stringOf(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return ""
}

func versionOf(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		n = int(x)
		if float64(n) != x {
			return 0, invalidVersion(v)
		}
	case int:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, invalidVersion(v)
		}
		n = int(i)
	case string:
		if x == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(x)
		if err != nil {
			return 0, invalidVersion(v)
		}
		n = i
	default:
		return 0, invalidVersion(v)
	}
	if n < 0 {
		return 0, invalidVersion(v)
	}
	return n, nil
}

func invalidVersion(v any) error {
	return domain.NewParseError(domain.ReasonInvalidVersion, fmt.Sprintf("unsupported version value %v", v))
}

func missingEncryptionFields() error {
	return domain.NewParseError(domain.ReasonInvalidRequest, domain.MsgMissingEncryptionFields)
}
