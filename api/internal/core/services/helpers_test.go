package services_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/bookmarket/addrvault/api/internal/core/services"
	"github.com/bookmarket/addrvault/api/internal/db/memory"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
)

var (
	keyV1 = bytes.Repeat([]byte{0x11}, 32)
	keyV2 = bytes.Repeat([]byte{0x22}, 32)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	store *memory.Store
	keys  *crypto.StaticKeyResolver
	gate  *services.AccessGate
	svc   *services.AddressService
}

func newHarness(t *testing.T, currentVersion int) *harness {
	t.Helper()
	store := memory.NewStore()
	keys := crypto.NewStaticKeyResolver(currentVersion, map[int][]byte{1: keyV1, 2: keyV2})
	gate := services.NewAccessGate(store, discardLogger())
	svc := services.NewAddressService(store, gate, keys, crypto.NewAESGCMEngine(), discardLogger())
	return &harness{store: store, keys: keys, gate: gate, svc: svc}
}
