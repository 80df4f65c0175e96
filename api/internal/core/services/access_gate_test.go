package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/core/services"
)

type failingListings struct{}

func (failingListings) HasAvailableListing(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestAccessGate_ReadMatrix(t *testing.T) {
	h := newHarness(t, 1)

	owner := uuid.NewString()
	sellerWithStock := uuid.NewString()
	sellerSoldOut := uuid.NewString()
	buyer := domain.AuthContext{CallerID: uuid.NewString()}

	h.store.AddListing(sellerWithStock, false, "available")
	h.store.AddListing(sellerSoldOut, true, "available")

	tests := []struct {
		name    string
		caller  domain.AuthContext
		target  domain.AddressTarget
		allowed bool
	}{
		{
			name:    "owner reads own shipping address",
			caller:  domain.AuthContext{CallerID: owner},
			target:  domain.NewAddressTarget(domain.TableProfiles, owner, domain.AddressShipping),
			allowed: true,
		},
		{
			name:    "admin reads any profile address",
			caller:  domain.AuthContext{CallerID: uuid.NewString(), IsAdmin: true},
			target:  domain.NewAddressTarget(domain.TableProfiles, owner, domain.AddressShipping),
			allowed: true,
		},
		{
			name:    "buyer reads pickup of seller with available book",
			caller:  buyer,
			target:  domain.NewAddressTarget(domain.TableProfiles, sellerWithStock, domain.AddressPickup),
			allowed: true,
		},
		{
			name:    "buyer reads pickup of seller without available books",
			caller:  buyer,
			target:  domain.NewAddressTarget(domain.TableProfiles, sellerSoldOut, domain.AddressPickup),
			allowed: false,
		},
		{
			name:    "buyer reads shipping of seller with available book",
			caller:  buyer,
			target:  domain.NewAddressTarget(domain.TableProfiles, sellerWithStock, domain.AddressShipping),
			allowed: false,
		},
		{
			name:    "authenticated caller reads book pickup",
			caller:  buyer,
			target:  domain.NewAddressTarget(domain.TableBooks, uuid.NewString(), ""),
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.gate.AuthorizeRead(context.Background(), tt.caller, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrAccessDenied)
			assert.Equal(t, "Unauthorized access to profile data", err.Error())
		})
	}
}

func TestAccessGate_ListingLookupFailureDenies(t *testing.T) {
	gate := services.NewAccessGate(failingListings{}, discardLogger())
	target := domain.NewAddressTarget(domain.TableProfiles, "seller", domain.AddressPickup)

	err := gate.AuthorizeRead(context.Background(), domain.AuthContext{CallerID: "buyer"}, target)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAccessDenied)
	assert.Contains(t, err.Error(), "failed to check seller listings")
}

func TestAccessGate_WriteMatrix(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	target := domain.NewAddressTarget(domain.TableProfiles, "owner", domain.AddressPickup)

	assert.NoError(t, h.gate.AuthorizeWrite(ctx, domain.AuthContext{CallerID: "owner"}, target))
	assert.NoError(t, h.gate.AuthorizeWrite(ctx, domain.AuthContext{CallerID: "ops", IsAdmin: true}, target))
	assert.ErrorIs(t, h.gate.AuthorizeWrite(ctx, domain.AuthContext{CallerID: "someone"}, target), domain.ErrAccessDenied)

	order := domain.NewAddressTarget(domain.TableOrders, "order-1", "")
	assert.NoError(t, h.gate.AuthorizeWrite(ctx, domain.AuthContext{CallerID: "someone"}, order))
}
