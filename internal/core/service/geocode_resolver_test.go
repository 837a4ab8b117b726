package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

const fullAddr = "Bagdat Caddesi 123, Kadikoy/Istanbul, Turkey"

func TestResolve_TierOrderingAndFirstHitStop(t *testing.T) {
	geo := &stubGeocoder{
		results: map[string]domain.Coordinates{
			"Kadikoy/Istanbul": {Lat: 40.98, Lng: 29.03},
		},
	}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	coords, ok := r.Resolve(context.Background(), fullAddr)
	if !ok {
		t.Fatalf("expected resolution via the district/province tier")
	}
	if coords.Lat != 40.98 || coords.Lng != 29.03 {
		t.Fatalf("wrong coordinates: %+v", coords)
	}

	// Tier 1 (full address) was tried first, tier 2 hit, tier 3 never ran.
	if len(geo.queries) != 2 {
		t.Fatalf("expected 2 queries (stop at first hit), got %v", geo.queries)
	}
	if geo.queries[0] != fullAddr {
		t.Fatalf("tier 1 must be the full address, got %q", geo.queries[0])
	}
	if geo.queries[1] != "Kadikoy/Istanbul" {
		t.Fatalf("tier 2 must be the district/province fragment, got %q", geo.queries[1])
	}
}

func TestResolve_FallsThroughToLastSegments(t *testing.T) {
	geo := &stubGeocoder{
		results: map[string]domain.Coordinates{
			"Kadikoy/Istanbul, Turkey": {Lat: 41.0, Lng: 29.0},
		},
	}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	coords, ok := r.Resolve(context.Background(), fullAddr)
	if !ok || coords.Lat != 41.0 {
		t.Fatalf("expected resolution via the last-two-segments tier, got %+v ok=%v", coords, ok)
	}
	if len(geo.queries) != 3 {
		t.Fatalf("expected all 3 tiers tried, got %v", geo.queries)
	}
}

func TestResolve_TransportErrorDegradesToNextTier(t *testing.T) {
	geo := &stubGeocoder{
		errs: map[string]error{fullAddr: errors.New("connection refused")},
		results: map[string]domain.Coordinates{
			"Kadikoy/Istanbul": {Lat: 40.98, Lng: 29.03},
		},
	}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	if _, ok := r.Resolve(context.Background(), fullAddr); !ok {
		t.Fatalf("transport failure on tier 1 must not abort the chain")
	}
}

func TestResolve_ExhaustedChain(t *testing.T) {
	geo := &stubGeocoder{}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	if _, ok := r.Resolve(context.Background(), fullAddr); ok {
		t.Fatalf("expected exhausted chain to report no result")
	}
	if _, ok := r.Resolve(context.Background(), "   "); ok {
		t.Fatalf("blank address must not resolve")
	}
}

func TestEnsureCoordinates_OnlyResolvesZero(t *testing.T) {
	geo := &stubGeocoder{
		results: map[string]domain.Coordinates{"Somewhere": {Lat: 1, Lng: 2}},
	}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	existing := domain.Coordinates{Lat: 40.0, Lng: 29.0}
	if got := r.EnsureCoordinates(context.Background(), "Somewhere", existing); got != existing {
		t.Fatalf("non-zero coordinates must pass through untouched, got %+v", got)
	}
	if len(geo.queries) != 0 {
		t.Fatalf("no geocode call expected for valid coordinates")
	}

	if got := r.EnsureCoordinates(context.Background(), "Somewhere", domain.Coordinates{}); got.Lat != 1 {
		t.Fatalf("zero coordinates should be re-resolved, got %+v", got)
	}
}

func TestEnsureCoordinates_FailureKeepsExisting(t *testing.T) {
	r := NewGeocodeResolver(&stubGeocoder{}, zerolog.Nop())

	zero := domain.Coordinates{}
	if got := r.EnsureCoordinates(context.Background(), "Nowhere", zero); got != zero {
		t.Fatalf("failed resolution must leave coordinates unchanged, got %+v", got)
	}
}

func TestFixIdenticalPickup_RegeocodesPickupOnly(t *testing.T) {
	geo := &stubGeocoder{
		results: map[string]domain.Coordinates{"Warehouse St 1": {Lat: 39.9, Lng: 28.9}},
	}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	same := domain.Coordinates{Lat: 40.0, Lng: 29.0}
	got := r.FixIdenticalPickup(context.Background(), same, "Warehouse St 1", same, "Customer Ave 2")
	if got.Lat != 39.9 || got.Lng != 28.9 {
		t.Fatalf("pickup not re-geocoded: %+v", got)
	}
}

func TestFixIdenticalPickup_SameAddressLeftAlone(t *testing.T) {
	geo := &stubGeocoder{}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	same := domain.Coordinates{Lat: 40.0, Lng: 29.0}
	got := r.FixIdenticalPickup(context.Background(), same, "Warehouse St 1", same, "warehouse st 1")
	if got != same {
		t.Fatalf("identical addresses are legitimately co-located, got %+v", got)
	}
	if len(geo.queries) != 0 {
		t.Fatalf("no geocode call expected for identical addresses")
	}
}

func TestFixIdenticalPickup_DistinctCoordinatesUntouched(t *testing.T) {
	geo := &stubGeocoder{}
	r := NewGeocodeResolver(geo, zerolog.Nop())

	pickup := domain.Coordinates{Lat: 40.0, Lng: 29.0}
	delivery := domain.Coordinates{Lat: 40.1, Lng: 29.1}
	if got := r.FixIdenticalPickup(context.Background(), pickup, "A", delivery, "B"); got != pickup {
		t.Fatalf("distinct coordinates must pass through, got %+v", got)
	}
	if len(geo.queries) != 0 {
		t.Fatalf("no geocode call expected for distinct coordinates")
	}
}

func TestFixIdenticalPickup_FailedResolutionKeepsOriginal(t *testing.T) {
	r := NewGeocodeResolver(&stubGeocoder{}, zerolog.Nop())

	same := domain.Coordinates{Lat: 40.0, Lng: 29.0}
	if got := r.FixIdenticalPickup(context.Background(), same, "A", same, "B"); got != same {
		t.Fatalf("failed re-geocode must keep the original pickup, got %+v", got)
	}
}
