package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bookmarket/addrvault/api/internal/api/respond"
	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/core/services"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New()

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type SaveTarget struct {
	Table       string `json:"table" validate:"required,oneof=profiles books orders"`
	TargetID    string `json:"target_id" validate:"required,max=128"`
	AddressType string `json:"address_type" validate:"omitempty,oneof=pickup shipping delivery"`
}

type EncryptRequest struct {
	Object domain.AddressObject `json:"object" validate:"required"`
	Save   *SaveTarget          `json:"save,omitempty"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type AddressService interface {
	Encrypt(ctx context.Context, caller domain.AuthContext, object domain.AddressObject, save *domain.AddressTarget) (*services.EncryptResult, error)
	Decrypt(ctx context.Context, caller domain.AuthContext, body map[string]any) (domain.AddressObject, error)
}

type AddressHandler struct {
	Service AddressService
	Logger  *slog.Logger
}

func NewAddressHandler(service AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{Service: service, Logger: logger}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Encrypt handles POST /api/v1/addresses/encrypt
func (h *AddressHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	caller, ok := domain.CallerFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
		return
	}

	var req EncryptRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "object is required and save must name a known table and target_id")
		return
	}

	var save *domain.AddressTarget
	if req.Save != nil {
		t := domain.NewAddressTarget(domain.Table(req.Save.Table), req.Save.TargetID, domain.AddressType(req.Save.AddressType))
		save = &t
	}

	res, err := h.Service.Encrypt(r.Context(), caller, req.Object, save)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// A persisted bundle never leaves the server.
	if res.Persisted {
		respond.JSON(w, http.StatusOK, respond.Envelope{Success: true})
		return
	}
	respond.OK(w, res.Bundle)
}

// Decrypt handles POST /api/v1/addresses/decrypt
func (h *AddressHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	caller, ok := domain.CallerFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
		return
	}

	var body map[string]any
	if !h.decode(w, r, &body) {
		return
	}

	obj, err := h.Service.Decrypt(r.Context(), caller, body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.OK(w, obj)
}

func (h *AddressHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodeBadRequest, "Request body too large")
			return false
		}
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

// writeServiceError maps service failures onto statuses. Internal details are
// logged, never returned.
func (h *AddressHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		respond.Error(w, http.StatusForbidden, respond.CodeForbidden, domain.ErrAccessDenied.Error())
		return
	case errors.Is(err, domain.ErrUnauthenticated):
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
		return
	}

	ce, ok := domain.AsCryptoError(err)
	if !ok {
		h.Logger.ErrorContext(r.Context(), "address request failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "Internal server error")
		return
	}

	code := string(ce.Code)
	switch ce.Code {
	case domain.CodeParse:
		status := http.StatusBadRequest
		if ce.Reason == domain.ReasonInvalidPayload {
			status = http.StatusUnprocessableEntity
		}
		respond.Error(w, status, code, publicMessage(ce))
	case domain.CodeAuthFailed:
		respond.Error(w, http.StatusUnauthorized, code, "Address data failed integrity verification")
	case domain.CodeNotFound:
		respond.Error(w, http.StatusNotFound, code, "Address not found")
	case domain.CodeInvalidKey:
		h.Logger.ErrorContext(r.Context(), "encryption key unavailable", slog.String("reason", ce.Reason))
		respond.Error(w, http.StatusInternalServerError, code, "Address encryption is not configured")
	default:
		h.Logger.ErrorContext(r.Context(), "address crypto failure", slog.String("code", code))
		respond.Error(w, http.StatusInternalServerError, code, "Address data could not be processed")
	}
}

func publicMessage(ce *domain.CryptoError) string {
	if ce.Message != "" {
		return ce.Message
	}
	if ce.Reason != "" {
		return ce.Reason
	}
	return string(ce.Code)
}
