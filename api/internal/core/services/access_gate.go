package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/telemetry"
)

// AccessGate decides whether a caller may touch a stored address.
// It never reads the address itself.
type AccessGate struct {
	listings domain.ListingRepository
	logger   *slog.Logger
}

func NewAccessGate(listings domain.ListingRepository, logger *slog.Logger) *AccessGate {
	return &AccessGate{listings: listings, logger: logger}
}

// AuthorizeRead applies the read matrix. Denials return domain.ErrAccessDenied
// without saying whether the record exists.
//
// A non-owner may read a profile's pickup address while that profile has at
// least one available, unsold listing, so buyers can see where to collect.
func (g *AccessGate) AuthorizeRead(ctx context.Context, caller domain.AuthContext, target domain.AddressTarget) error {
	if target.Table != domain.TableProfiles {
		// books and orders rows are scoped by the store's row-level policies.
		return g.allow("credential")
	}
	if caller.IsAdmin {
		return g.allow("admin")
	}
	if caller.CallerID != "" && caller.CallerID == target.TargetID {
		return g.allow("owner")
	}
	if target.AddressType != domain.AddressPickup {
		return g.deny(ctx, caller, target, "not_owner")
	}

	ok, err := g.listings.HasAvailableListing(ctx, target.TargetID)
	if err != nil {
		telemetry.AccessDecisionsTotal.WithLabelValues("error", "listing_lookup").Inc()
		return fmt.Errorf("failed to check seller listings: %w", err)
	}
	if !ok {
		return g.deny(ctx, caller, target, "no_available_listing")
	}
	return g.allow("seller_listing")
}

// AuthorizeWrite guards persistence on the encrypt path. Profile addresses
// may only be written by their owner or an admin.
func (g *AccessGate) AuthorizeWrite(ctx context.Context, caller domain.AuthContext, target domain.AddressTarget) error {
	if target.Table != domain.TableProfiles {
		return g.allow("credential")
	}
	if caller.IsAdmin {
		return g.allow("admin")
	}
	if caller.CallerID != "" && caller.CallerID == target.TargetID {
		return g.allow("owner")
	}
	return g.deny(ctx, caller, target, "write_not_owner")
}

func (g *AccessGate) allow(reason string) error {
	telemetry.AccessDecisionsTotal.WithLabelValues("allow", reason).Inc()
	return nil
}

func (g *AccessGate) deny(ctx context.Context, caller domain.AuthContext, target domain.AddressTarget, reason string) error {
	telemetry.AccessDecisionsTotal.WithLabelValues("deny", reason).Inc()
	g.logger.WarnContext(ctx, "address access denied",
		slog.String("caller_id", caller.CallerID),
		slog.String("table", string(target.Table)),
		slog.String("address_type", string(target.AddressType)),
		slog.String("reason", reason),
	)
	return domain.ErrAccessDenied
}
