package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// sample is one raw GPS reading awaiting ingestion.
type sample struct {
	driverID int
	point    domain.LocationPoint
}

// Dispatcher routes GPS samples to a fixed set of workers using consistent
// hashing on the driver id, guaranteeing per-driver arrival-order processing.
type Dispatcher struct {
	workers []chan sample
	stream  ports.LocationIngest
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, stream ports.LocationIngest, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan sample, numWorkers),
		stream:  stream,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan sample, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a sample to the worker responsible for its driver.
// Non-blocking up to channelBuffer capacity; beyond that the sample is
// dropped, since a saturated shard means fresher samples are right behind.
func (d *Dispatcher) Enqueue(driverID int, p domain.LocationPoint) {
	select {
	case d.workers[d.shardIndex(driverID)] <- sample{driverID: driverID, point: p}:
	default:
		d.log.Warn().Int("driver_id", driverID).Msg("location shard saturated, sample dropped")
	}
}

// shardIndex maps a driver id deterministically to a worker index.
func (d *Dispatcher) shardIndex(driverID int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.Itoa(driverID)))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan sample) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			d.stream.Offer(ctx, s.driverID, s.point)
		}
	}
}
