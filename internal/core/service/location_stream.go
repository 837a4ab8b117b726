package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/api/metrics"
	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const uploadTimeout = 5 * time.Second

// LocationConsumer receives accepted GPS samples in arrival order.
type LocationConsumer func(driverID int, p domain.LocationPoint)

// LocationStream throttles the raw GPS feed and fans accepted samples out to
// the backend uploader, the map sink, the position cache, and any registered
// consumers (proximity announcer, UI push).
//
// Route re-ETA is deliberately NOT a consumer: recomputing directions on
// every GPS tick would be wasteful, so refreshes are human-triggered.
type LocationStream struct {
	gateway ports.OrderGateway
	cache   ports.PositionCache
	sink    ports.MapSink
	log     zerolog.Logger

	minInterval  time.Duration
	minDistanceM float64

	mu        sync.Mutex
	last      map[int]domain.LocationPoint
	consumers []LocationConsumer
	closed    bool
	// release tears down the underlying platform subscription. Whatever
	// removal handle the platform hands us, Close invokes it unconditionally.
	release func()
}

func NewLocationStream(
	gateway ports.OrderGateway,
	cache ports.PositionCache,
	sink ports.MapSink,
	minInterval time.Duration,
	minDistanceM float64,
	log zerolog.Logger,
) *LocationStream {
	return &LocationStream{
		gateway:      gateway,
		cache:        cache,
		sink:         sink,
		minInterval:  minInterval,
		minDistanceM: minDistanceM,
		last:         make(map[int]domain.LocationPoint),
		log:          log,
	}
}

// Subscribe registers a consumer. Consumers are notified synchronously, in
// registration order, for every accepted sample.
func (s *LocationStream) Subscribe(c LocationConsumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, c)
}

// SetReleaser installs the teardown hook for the underlying GPS subscription.
func (s *LocationStream) SetReleaser(release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = release
}

// Offer ingests one raw sample. Samples inside both the time and distance
// gates are dropped; accepted samples are uploaded, cached, pushed to the
// map sink, and fanned out to consumers.
func (s *LocationStream) Offer(ctx context.Context, driverID int, p domain.LocationPoint) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.last[driverID]; ok {
		since := p.Timestamp.Sub(prev.Timestamp)
		movedM := prev.Coordinates().DistanceKm(p.Coordinates()) * 1000
		if since < s.minInterval && movedM < s.minDistanceM {
			s.mu.Unlock()
			metrics.LocationSamplesTotal.WithLabelValues("dropped").Inc()
			return
		}
	}
	s.last[driverID] = p
	consumers := append([]LocationConsumer(nil), s.consumers...)
	s.mu.Unlock()

	metrics.LocationSamplesTotal.WithLabelValues("accepted").Inc()

	// Fire-and-forget position upload: failures are logged, never block the caller.
	go func() {
		upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
		defer cancel()
		if err := s.gateway.UploadLocation(upCtx, driverID, p); err != nil {
			s.log.Warn().Err(err).Int("driver_id", driverID).Msg("position upload failed")
		}
	}()

	if err := s.cache.SetPosition(ctx, driverID, p); err != nil {
		s.log.Warn().Err(err).Int("driver_id", driverID).Msg("position cache write failed")
	}

	s.sink.UpsertMarker(ports.MarkerUpdate{
		ID:  driverMarkerID(driverID),
		Lat: p.Lat,
		Lng: p.Lng,
	})

	for _, c := range consumers {
		c(driverID, p)
	}
}

// Last returns the most recent accepted sample for a driver.
func (s *LocationStream) Last(driverID int) (domain.LocationPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.last[driverID]
	return p, ok
}

// Close releases the underlying platform subscription unconditionally and
// stops accepting samples. Safe to call more than once.
func (s *LocationStream) Close() {
	s.mu.Lock()
	release := s.release
	s.release = nil
	s.closed = true
	s.mu.Unlock()

	if release != nil {
		release()
	}
}

func driverMarkerID(driverID int) string {
	return fmt.Sprintf("driver-%d", driverID)
}
