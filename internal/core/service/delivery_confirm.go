package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/api/metrics"
	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const (
	// commitThresholdPx is the horizontal drag distance that commits the gesture.
	commitThresholdPx = 150.0
	// verticalTolerancePx gates against accidental diagonal scroll capture:
	// a drag with more vertical travel than this never arms the gesture.
	verticalTolerancePx = 30.0
	// dragStartSlopPx is the minimum horizontal travel before idle→dragging.
	dragStartSlopPx = 10.0

	completionAttempts = 3
	completionBackoff  = 150 * time.Millisecond
)

// SwipeState is the gesture state: idle → dragging → {committed | reset}.
// "reset" is not stored — a released-below-threshold gesture snaps straight
// back to idle with its offset animated to zero by the client.
type SwipeState string

const (
	SwipeIdle      SwipeState = "idle"
	SwipeDragging  SwipeState = "dragging"
	SwipeCommitted SwipeState = "committed"
)

// swipeMachine is one driver's gesture state. The transition function reads
// only this state plus the incoming event, never values captured earlier.
type swipeMachine struct {
	state    SwipeState
	offsetPx float64
	inFlight bool
}

// RouteCompleter is the slice of the route engine the confirmer needs.
type RouteCompleter interface {
	CompleteDelivery(ctx context.Context, driverID, orderID int) (*domain.DeliveryStop, error)
	NextPendingDelivery(driverID int) (*domain.DeliveryStop, bool)
}

// DeliveryConfirmer drives the swipe-to-deliver flow: it tracks the gesture
// per driver and, on threshold crossing, issues an idempotent mark-delivered
// write with bounded retry before transitioning the stop to completed.
type DeliveryConfirmer struct {
	gateway     ports.OrderGateway
	dedup       ports.CompletionDedup
	completions ports.CompletionRepository
	routes      RouteCompleter
	// onCompleted notifies the external collaborator with the completed order id.
	onCompleted func(orderID int)
	log         zerolog.Logger
	sleep       func(time.Duration)

	mu       sync.Mutex
	machines map[int]*swipeMachine
}

func NewDeliveryConfirmer(
	gateway ports.OrderGateway,
	dedup ports.CompletionDedup,
	completions ports.CompletionRepository,
	routes RouteCompleter,
	onCompleted func(orderID int),
	log zerolog.Logger,
) *DeliveryConfirmer {
	return &DeliveryConfirmer{
		gateway:     gateway,
		dedup:       dedup,
		completions: completions,
		routes:      routes,
		onCompleted: onCompleted,
		log:         log,
		sleep:       time.Sleep,
		machines:    make(map[int]*swipeMachine),
	}
}

// State returns the driver's current gesture state and offset (UI feedback).
func (d *DeliveryConfirmer) State(driverID int) (SwipeState, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.machine(driverID)
	return m.state, m.offsetPx
}

// HandleDrag feeds one drag event. The gesture arms only on a mostly
// horizontal drag; anything steeper than the vertical tolerance is ignored
// so list scrolling is never captured by accident.
func (d *DeliveryConfirmer) HandleDrag(driverID int, dxPx, dyPx float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.machine(driverID)

	switch m.state {
	case SwipeIdle:
		if dxPx >= dragStartSlopPx && math.Abs(dyPx) <= verticalTolerancePx {
			m.state = SwipeDragging
			m.offsetPx = dxPx
		}
	case SwipeDragging:
		if dxPx < 0 {
			dxPx = 0
		}
		m.offsetPx = dxPx
	case SwipeCommitted:
		// A commit is in flight; further drags are ignored until it settles.
	}
}

// HandleRelease feeds the release event. Below the commit threshold the
// gesture resets (client animates back to origin, zero writes issued). At or
// above it the machine commits: exactly one completion attempt sequence runs,
// and overlapping releases while committed are ignored.
//
// orderID 0 means multi-stop mode: the target resolves to the first
// non-completed delivery stop. A known order id selects single-order mode.
func (d *DeliveryConfirmer) HandleRelease(ctx context.Context, driverID, orderID int) (bool, error) {
	d.mu.Lock()
	m := d.machine(driverID)

	if m.state != SwipeDragging || m.inFlight {
		d.mu.Unlock()
		return false, nil
	}
	if m.offsetPx < commitThresholdPx {
		m.state = SwipeIdle
		m.offsetPx = 0
		d.mu.Unlock()
		return false, nil
	}

	m.state = SwipeCommitted
	m.inFlight = true
	d.mu.Unlock()

	// The gesture has committed: from here the write runs to completion or
	// exhaustion regardless of caller cancellation.
	err := d.commit(context.WithoutCancel(ctx), driverID, orderID)

	d.mu.Lock()
	m.state = SwipeIdle
	m.offsetPx = 0
	m.inFlight = false
	d.mu.Unlock()

	if err != nil {
		return false, err
	}
	return true, nil
}

// commit resolves the target stop and performs the retried completion write.
// On success the stop is completed in the route, the audit event stored, and
// the collaborator callback fired. On exhausted retries the stop status is
// left unchanged so the gesture remains retryable.
func (d *DeliveryConfirmer) commit(ctx context.Context, driverID, orderID int) error {
	targetOrder := orderID
	stopID := ""
	if targetOrder == 0 {
		stop, ok := d.routes.NextPendingDelivery(driverID)
		if !ok {
			return domain.ErrOrderNotFound
		}
		targetOrder = stop.OrderID
		stopID = stop.ID
	}

	// Idempotency: an order already delivered is confirmed without a write.
	if done, err := d.dedup.AlreadyDelivered(ctx, targetOrder); err == nil && done {
		d.log.Info().Int("order_id", targetOrder).Msg("completion replayed, order already delivered")
		return d.finalize(ctx, driverID, targetOrder, stopID)
	}

	var lastErr error
	for attempt := 1; attempt <= completionAttempts; attempt++ {
		metrics.CompletionAttemptsTotal.Inc()
		if lastErr = d.gateway.MarkDelivered(ctx, targetOrder); lastErr == nil {
			break
		}
		d.log.Warn().Err(lastErr).Int("order_id", targetOrder).Int("attempt", attempt).
			Msg("completion write failed")
		if attempt < completionAttempts {
			d.sleep(completionBackoff * time.Duration(attempt))
		}
	}
	if lastErr != nil {
		metrics.CompletionFailuresTotal.Inc()
		return fmt.Errorf("%w: order %d: %v", domain.ErrCompletionFailed, targetOrder, lastErr)
	}

	if err := d.dedup.MarkDelivered(ctx, targetOrder); err != nil {
		d.log.Warn().Err(err).Int("order_id", targetOrder).Msg("completion dedup mark failed")
	}
	return d.finalize(ctx, driverID, targetOrder, stopID)
}

// finalize applies the completed status and side effects after a successful
// (or replayed) write.
func (d *DeliveryConfirmer) finalize(ctx context.Context, driverID, orderID int, stopID string) error {
	stop, err := d.routes.CompleteDelivery(ctx, driverID, orderID)
	if err == nil {
		stopID = stop.ID
	} else {
		// Single-order mode without a built route, or a replayed completion.
		d.log.Debug().Err(err).Int("order_id", orderID).Msg("route stop transition skipped")
		if stopID == "" {
			stopID = fmt.Sprintf("order-%d", orderID)
		}
	}

	event := &domain.StopCompletionEvent{
		StopID:      stopID,
		OrderID:     orderID,
		DriverID:    driverID,
		CompletedAt: time.Now().UTC(),
	}
	if err := d.completions.Insert(ctx, event); err != nil {
		d.log.Warn().Err(err).Int("order_id", orderID).Msg("completion audit insert failed")
	}

	if d.onCompleted != nil {
		d.onCompleted(orderID)
	}
	d.log.Info().Int("driver_id", driverID).Int("order_id", orderID).Str("stop_id", stopID).
		Msg("delivery completed")
	return nil
}

func (d *DeliveryConfirmer) machine(driverID int) *swipeMachine {
	m, ok := d.machines[driverID]
	if !ok {
		m = &swipeMachine{state: SwipeIdle}
		d.machines[driverID] = m
	}
	return m
}
