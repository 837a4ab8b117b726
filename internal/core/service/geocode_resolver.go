package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

// identicalCoordTol is the tolerance (degrees) under which pickup and
// delivery coordinates are considered suspiciously identical. Roughly 11 m.
const identicalCoordTol = 1e-4

// districtProvincePattern matches locality fragments written as
// "District/Province" (common in addresses from the ordering platform).
var districtProvincePattern = regexp.MustCompile(`[\p{L}.\-]+(?:\s+[\p{L}.\-]+)*\s*/\s*[\p{L}.\-]+(?:\s+[\p{L}.\-]+)*`)

// GeocodeResolver resolves free-text addresses to coordinates through a
// tiered fallback chain. Each tier is only attempted when the previous one
// returned no result; resolution stops at the first hit.
type GeocodeResolver struct {
	geocoder ports.Geocoder
	log      zerolog.Logger
}

func NewGeocodeResolver(geocoder ports.Geocoder, log zerolog.Logger) *GeocodeResolver {
	return &GeocodeResolver{geocoder: geocoder, log: log}
}

// Resolve runs the fallback chain for one address. The boolean is false when
// every tier is exhausted; callers must then leave any existing coordinates
// unchanged rather than zeroing them.
func (r *GeocodeResolver) Resolve(ctx context.Context, address string) (domain.Coordinates, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, false
	}

	for _, query := range r.queries(address) {
		coords, ok, err := r.geocoder.Geocode(ctx, query)
		if err != nil {
			// Transport failure degrades like an empty result: try the
			// next tier rather than aborting the chain.
			r.log.Warn().Err(err).Str("query", query).Msg("geocode tier failed")
			continue
		}
		if ok && !coords.IsZero() {
			return coords, true
		}
	}

	r.log.Debug().Str("address", address).Msg("geocode chain exhausted")
	return domain.Coordinates{}, false
}

// queries builds the tiered query list for an address:
//  1. the full address string;
//  2. a "district/province" fragment extracted by locale-aware heuristics;
//  3. the last two comma-separated segments as a generic "locality, region".
func (r *GeocodeResolver) queries(address string) []string {
	out := []string{address}

	if frag := districtProvincePattern.FindString(address); frag != "" && frag != address {
		out = append(out, strings.TrimSpace(frag))
	}

	segments := strings.Split(address, ",")
	if len(segments) >= 2 {
		last2 := strings.TrimSpace(segments[len(segments)-2]) + ", " + strings.TrimSpace(segments[len(segments)-1])
		if last2 != address && !contains(out, last2) {
			out = append(out, last2)
		}
	}

	return out
}

// EnsureCoordinates re-resolves an address when its existing coordinates are
// absent or the (0,0) sentinel. On resolution failure the existing value is
// returned untouched.
func (r *GeocodeResolver) EnsureCoordinates(ctx context.Context, address string, existing domain.Coordinates) domain.Coordinates {
	if !existing.IsZero() {
		return existing
	}
	if coords, ok := r.Resolve(ctx, address); ok {
		return coords
	}
	return existing
}

// FixIdenticalPickup detects the upstream data bug where pickup and delivery
// carry numerically identical coordinates despite distinct addresses, and
// recomputes the pickup side. Delivery coordinates are never rewritten.
func (r *GeocodeResolver) FixIdenticalPickup(
	ctx context.Context,
	pickup domain.Coordinates, pickupAddr string,
	delivery domain.Coordinates, deliveryAddr string,
) domain.Coordinates {
	if !pickup.NearlyEqual(delivery, identicalCoordTol) {
		return pickup
	}
	if strings.EqualFold(strings.TrimSpace(pickupAddr), strings.TrimSpace(deliveryAddr)) {
		return pickup
	}

	r.log.Warn().
		Str("pickup_address", pickupAddr).
		Str("delivery_address", deliveryAddr).
		Msg("pickup and delivery coordinates identical, re-geocoding pickup")

	if coords, ok := r.Resolve(ctx, pickupAddr); ok {
		return coords
	}
	return pickup
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
