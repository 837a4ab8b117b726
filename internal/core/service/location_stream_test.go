package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

func newStreamFixture(minInterval time.Duration, minDistanceM float64) (*LocationStream, *stubOrders, *stubPositions, *stubSink) {
	orders := &stubOrders{uploads: make(chan int, 16)}
	cache := &stubPositions{}
	sink := &stubSink{}
	s := NewLocationStream(orders, cache, sink, minInterval, minDistanceM, zerolog.Nop())
	return s, orders, cache, sink
}

func at(t0 time.Time, offset time.Duration, lat, lng float64) domain.LocationPoint {
	return domain.LocationPoint{Lat: lat, Lng: lng, Timestamp: t0.Add(offset)}
}

func TestOffer_ThrottlesInsideBothGates(t *testing.T) {
	s, _, cache, _ := newStreamFixture(5*time.Second, 10)
	t0 := time.Now()

	s.Offer(context.Background(), 7, at(t0, 0, 40.0, 29.0))
	// 1 s later, moved ~1 m: inside both gates, dropped.
	s.Offer(context.Background(), 7, at(t0, time.Second, 40.00001, 29.0))

	if cache.sets != 1 {
		t.Fatalf("throttled sample reached the cache: %d writes", cache.sets)
	}
	last, ok := s.Last(7)
	if !ok || last.Lat != 40.0 {
		t.Fatalf("throttled sample replaced the last fix: %+v", last)
	}
}

func TestOffer_AcceptsWhenTimeGatePasses(t *testing.T) {
	s, _, cache, _ := newStreamFixture(5*time.Second, 10)
	t0 := time.Now()

	s.Offer(context.Background(), 7, at(t0, 0, 40.0, 29.0))
	// Barely moved but 6 s elapsed: the time gate alone admits it.
	s.Offer(context.Background(), 7, at(t0, 6*time.Second, 40.00001, 29.0))

	if cache.sets != 2 {
		t.Fatalf("sample outside the time gate was dropped: %d writes", cache.sets)
	}
}

func TestOffer_AcceptsWhenDistanceGatePasses(t *testing.T) {
	s, _, cache, _ := newStreamFixture(5*time.Second, 10)
	t0 := time.Now()

	s.Offer(context.Background(), 7, at(t0, 0, 40.0, 29.0))
	// 1 s later but moved ~110 m: the distance gate alone admits it.
	s.Offer(context.Background(), 7, at(t0, time.Second, 40.001, 29.0))

	if cache.sets != 2 {
		t.Fatalf("sample outside the distance gate was dropped: %d writes", cache.sets)
	}
}

func TestOffer_FansOutInRegistrationOrder(t *testing.T) {
	s, _, _, _ := newStreamFixture(0, 0)

	var calls []string
	s.Subscribe(func(driverID int, p domain.LocationPoint) { calls = append(calls, "first") })
	s.Subscribe(func(driverID int, p domain.LocationPoint) { calls = append(calls, "second") })

	s.Offer(context.Background(), 7, at(time.Now(), 0, 40.0, 29.0))

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("consumers not called in registration order: %v", calls)
	}
}

func TestOffer_PushesDriverMarker(t *testing.T) {
	s, _, _, sink := newStreamFixture(0, 0)

	s.Offer(context.Background(), 7, at(time.Now(), 0, 40.0, 29.0))

	if len(sink.markers) != 1 || sink.markers[0].ID != "driver-7" {
		t.Fatalf("driver marker not pushed: %+v", sink.markers)
	}
}

func TestOffer_UploadsInBackground(t *testing.T) {
	s, orders, _, _ := newStreamFixture(0, 0)

	s.Offer(context.Background(), 7, at(time.Now(), 0, 40.0, 29.0))

	select {
	case id := <-orders.uploads:
		if id != 7 {
			t.Fatalf("uploaded for driver %d, want 7", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("position upload never happened")
	}
}

func TestClose_ReleasesUnconditionallyAndOnce(t *testing.T) {
	s, _, cache, _ := newStreamFixture(0, 0)

	released := 0
	s.SetReleaser(func() { released++ })

	s.Close()
	s.Close() // idempotent

	if released != 1 {
		t.Fatalf("release invoked %d times, want 1", released)
	}

	// A closed stream drops everything.
	s.Offer(context.Background(), 7, at(time.Now(), 0, 40.0, 29.0))
	if cache.sets != 0 {
		t.Fatalf("closed stream accepted a sample")
	}
}

func TestClose_WithoutReleaserIsSafe(t *testing.T) {
	s, _, _, _ := newStreamFixture(0, 0)
	s.Close()
}
