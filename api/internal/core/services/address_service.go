package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
	"github.com/bookmarket/addrvault/api/internal/telemetry"
)

// EncryptResult describes a finished encrypt call.
type EncryptResult struct {
	Bundle     domain.EncryptedBundle
	Serialized string
	Persisted  bool
}

// AddressService orchestrates normalization, authorization, key lookup and
// AEAD for encrypted addresses. It keeps no state between calls.
type AddressService struct {
	repo   domain.AddressRepository
	gate   *AccessGate
	keys   domain.KeyResolver
	engine domain.AEADEngine
	logger *slog.Logger
}

func NewAddressService(
	repo domain.AddressRepository,
	gate *AccessGate,
	keys domain.KeyResolver,
	engine domain.AEADEngine,
	logger *slog.Logger,
) *AddressService {
	return &AddressService{
		repo:   repo,
		gate:   gate,
		keys:   keys,
		engine: engine,
		logger: logger,
	}
}

// Encrypt seals object under the current key version. When save is non-nil the
// bundle is bound to that row and column and overwrites whatever was there.
func (s *AddressService) Encrypt(ctx context.Context, caller domain.AuthContext, object domain.AddressObject, save *domain.AddressTarget) (*EncryptResult, error) {
	started := time.Now()
	res, err := s.encrypt(ctx, caller, object, save)
	telemetry.ObserveOperation("encrypt", outcomeOf(err), started)
	if err != nil {
		s.logFailure(ctx, "encrypt", err)
	}
	return res, err
}

func (s *AddressService) encrypt(ctx context.Context, caller domain.AuthContext, object domain.AddressObject, save *domain.AddressTarget) (*EncryptResult, error) {
	if object == nil {
		return nil, domain.NewParseError(domain.ReasonInvalidRequest, "object is required")
	}
	if save != nil {
		if err := s.gate.AuthorizeWrite(ctx, caller, *save); err != nil {
			return nil, err
		}
	}

	plaintext, err := json.Marshal(object)
	if err != nil {
		return nil, domain.NewParseError(domain.ReasonInvalidRequest, "object is not serializable")
	}

	version := s.keys.CurrentVersion()
	key, err := s.keys.ResolveKey(ctx, version)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	var aad []byte
	if save != nil {
		aad = save.Binding()
	}

	sealed, err := s.engine.Encrypt(plaintext, key, aad)
	if err != nil {
		return nil, err
	}

	bundle := crypto.Seal(sealed, version)
	serialized, err := crypto.SerializeBundle(bundle)
	if err != nil {
		return nil, err
	}

	res := &EncryptResult{Bundle: bundle, Serialized: serialized}
	if save == nil {
		return res, nil
	}

	if err := s.repo.SaveBundle(ctx, *save, serialized, version); err != nil {
		return nil, fmt.Errorf("failed to persist address bundle: %w", err)
	}
	res.Persisted = true

	s.logger.InfoContext(ctx, "address bundle stored",
		slog.String("table", string(save.Table)),
		slog.String("column", string(save.Column)),
		slog.Int("key_version", version),
	)
	return res, nil
}

// Decrypt normalizes body, authorizes table lookups, and returns the verified
// plaintext object. Any failure returns no data at all.
func (s *AddressService) Decrypt(ctx context.Context, caller domain.AuthContext, body map[string]any) (domain.AddressObject, error) {
	started := time.Now()
	obj, err := s.decrypt(ctx, caller, body)
	telemetry.ObserveOperation("decrypt", outcomeOf(err), started)
	if err != nil {
		s.logFailure(ctx, "decrypt", err)
	}
	return obj, err
}

func (s *AddressService) decrypt(ctx context.Context, caller domain.AuthContext, body map[string]any) (domain.AddressObject, error) {
	req, err := NormalizeDecryptRequest(body)
	if err != nil {
		return nil, err
	}
	telemetry.RequestShapesTotal.WithLabelValues(string(req.RequestShape())).Inc()

	var (
		bundle        domain.EncryptedBundle
		recordVersion int
	)

	switch r := req.(type) {
	case domain.InlineRequest:
		bundle = r.Bundle
	case domain.LookupRequest:
		if err := s.gate.AuthorizeRead(ctx, caller, r.Target); err != nil {
			return nil, err
		}
		stored, err := s.repo.FetchBundle(ctx, r.Target)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("failed to fetch address bundle: %w", err)
		}
		bundle, err = crypto.DeserializeBundle(stored.Bundle)
		if err != nil {
			return nil, err
		}
		// A bound bundle only opens on the row and column it was written for.
		// Unbound bundles predate binding and still decrypt.
		if bundle.AAD != "" && bundle.AAD != crypto.Base64FromBytes(r.Target.Binding()) {
			return nil, &domain.CryptoError{
				Code:    domain.CodeAuthFailed,
				Message: "bundle is bound to a different record",
			}
		}
		recordVersion = stored.RecordVersion
	default:
		return nil, domain.NewParseError(domain.ReasonInvalidRequest, domain.MsgMissingEncryptionFields)
	}

	return s.open(ctx, bundle, recordVersion)
}

func (s *AddressService) open(ctx context.Context, bundle domain.EncryptedBundle, recordVersion int) (domain.AddressObject, error) {
	sealed, err := crypto.Open(bundle)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.ResolveKey(ctx, bundle.EffectiveVersion(recordVersion))
	if err != nil {
		return nil, err
	}
	defer zero(key)

	plaintext, err := s.engine.Decrypt(sealed, key)
	if err != nil {
		return nil, err
	}

	// Integrity is verified at this point; a bad shape means a broken writer.
	// UseNumber keeps integers beyond 2^53 exact.
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()
	var obj domain.AddressObject
	if err := dec.Decode(&obj); err != nil || obj == nil || dec.More() {
		return nil, domain.NewParseError(domain.ReasonInvalidPayload, "decrypted payload is not a JSON object")
	}
	return obj, nil
}

func (s *AddressService) logFailure(ctx context.Context, op string, err error) {
	attrs := []any{slog.String("operation", op)}
	if ce, ok := domain.AsCryptoError(err); ok {
		attrs = append(attrs, slog.String("code", string(ce.Code)), slog.String("reason", ce.Reason))
		s.logger.WarnContext(ctx, "address operation rejected", attrs...)
		return
	}
	if errors.Is(err, domain.ErrAccessDenied) {
		return // already logged by the gate
	}
	attrs = append(attrs, slog.Any("error", err))
	s.logger.ErrorContext(ctx, "address operation failed", attrs...)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if ce, ok := domain.AsCryptoError(err); ok {
		return string(ce.Code)
	}
	if errors.Is(err, domain.ErrAccessDenied) {
		return "DENIED"
	}
	return "ERROR"
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
