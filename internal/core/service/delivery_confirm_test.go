package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

type stubDedup struct {
	delivered map[int]bool
	marked    []int
	checkErr  error
}

func (s *stubDedup) AlreadyDelivered(ctx context.Context, orderID int) (bool, error) {
	return s.delivered[orderID], s.checkErr
}

func (s *stubDedup) MarkDelivered(ctx context.Context, orderID int) error {
	s.marked = append(s.marked, orderID)
	return nil
}

type stubCompletions struct {
	events []*domain.StopCompletionEvent
}

func (s *stubCompletions) Insert(ctx context.Context, event *domain.StopCompletionEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubCompletions) ListByDriver(ctx context.Context, driverID, limit int) ([]domain.StopCompletionEvent, error) {
	return nil, nil
}

type stubCompleter struct {
	next      *domain.DeliveryStop
	completed []int
	err       error
}

func (s *stubCompleter) CompleteDelivery(ctx context.Context, driverID, orderID int) (*domain.DeliveryStop, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.completed = append(s.completed, orderID)
	return &domain.DeliveryStop{ID: fmt.Sprintf("order-%d", orderID), OrderID: orderID, Status: domain.StopStatusCompleted}, nil
}

func (s *stubCompleter) NextPendingDelivery(driverID int) (*domain.DeliveryStop, bool) {
	return s.next, s.next != nil
}

type confirmFixture struct {
	confirmer   *DeliveryConfirmer
	orders      *stubOrders
	dedup       *stubDedup
	completions *stubCompletions
	completer   *stubCompleter
	notified    []int
}

func newConfirmFixture() *confirmFixture {
	f := &confirmFixture{
		orders:      &stubOrders{},
		dedup:       &stubDedup{delivered: make(map[int]bool)},
		completions: &stubCompletions{},
		completer:   &stubCompleter{},
	}
	f.confirmer = NewDeliveryConfirmer(f.orders, f.dedup, f.completions, f.completer, func(orderID int) {
		f.notified = append(f.notified, orderID)
	}, zerolog.Nop())
	f.confirmer.sleep = func(time.Duration) {} // no real backoff in tests
	return f
}

func TestHandleRelease_BelowThresholdResetsWithoutWrites(t *testing.T) {
	f := newConfirmFixture()

	f.confirmer.HandleDrag(7, 20, 0)
	f.confirmer.HandleDrag(7, 140, 5)

	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("HandleRelease: %v", err)
	}
	if completed {
		t.Fatalf("sub-threshold release must not complete")
	}
	if calls := f.orders.deliveredCalls(); len(calls) != 0 {
		t.Fatalf("sub-threshold release issued %d writes", len(calls))
	}
	if len(f.completions.events) != 0 {
		t.Fatalf("sub-threshold release wrote an audit event")
	}

	state, offset := f.confirmer.State(7)
	if state != SwipeIdle || offset != 0 {
		t.Fatalf("gesture not reset: %s/%v", state, offset)
	}
}

func TestHandleRelease_AtThresholdCommits(t *testing.T) {
	f := newConfirmFixture()

	f.confirmer.HandleDrag(7, 20, 0)
	f.confirmer.HandleDrag(7, 150, 0)

	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("HandleRelease: %v", err)
	}
	if !completed {
		t.Fatalf("threshold release must complete")
	}

	if calls := f.orders.deliveredCalls(); len(calls) != 1 || calls[0] != 5 {
		t.Fatalf("expected exactly one MarkDelivered(5), got %v", calls)
	}
	if len(f.dedup.marked) != 1 || f.dedup.marked[0] != 5 {
		t.Fatalf("dedup not marked: %v", f.dedup.marked)
	}
	if len(f.completer.completed) != 1 || f.completer.completed[0] != 5 {
		t.Fatalf("route stop not completed: %v", f.completer.completed)
	}
	if len(f.completions.events) != 1 || f.completions.events[0].OrderID != 5 {
		t.Fatalf("audit event missing: %+v", f.completions.events)
	}
	if len(f.notified) != 1 || f.notified[0] != 5 {
		t.Fatalf("completion callback not fired: %v", f.notified)
	}

	state, _ := f.confirmer.State(7)
	if state != SwipeIdle {
		t.Fatalf("machine not reset after commit: %s", state)
	}
}

func TestHandleRelease_RetriesThenSucceeds(t *testing.T) {
	f := newConfirmFixture()
	f.orders.deliverErrs = []error{errors.New("boom"), errors.New("boom")}

	f.confirmer.HandleDrag(7, 200, 0)
	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("HandleRelease: %v", err)
	}
	if !completed {
		t.Fatalf("release should succeed on third attempt")
	}
	if calls := f.orders.deliveredCalls(); len(calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(calls))
	}
	if len(f.completer.completed) != 1 {
		t.Fatalf("stop should transition exactly once")
	}
}

func TestHandleRelease_RetryExhaustionLeavesStopUntouched(t *testing.T) {
	f := newConfirmFixture()
	f.orders.deliverErrs = []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}

	f.confirmer.HandleDrag(7, 200, 0)
	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if !errors.Is(err, domain.ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if completed {
		t.Fatalf("exhausted release must not report completion")
	}
	if calls := f.orders.deliveredCalls(); len(calls) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(calls))
	}
	if len(f.completer.completed) != 0 {
		t.Fatalf("stop status must stay untouched after exhaustion")
	}
	if len(f.completions.events) != 0 {
		t.Fatalf("no audit event after exhaustion")
	}

	// The gesture stays retryable.
	f.confirmer.HandleDrag(7, 200, 0)
	if state, _ := f.confirmer.State(7); state != SwipeDragging {
		t.Fatalf("gesture not retryable after exhaustion: %s", state)
	}
}

func TestHandleRelease_MultiStopTargetsNextPending(t *testing.T) {
	f := newConfirmFixture()
	f.completer.next = &domain.DeliveryStop{ID: "order-9", OrderID: 9, Type: domain.StopTypeDelivery}

	f.confirmer.HandleDrag(7, 200, 0)
	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 0)
	if err != nil || !completed {
		t.Fatalf("HandleRelease: completed=%v err=%v", completed, err)
	}
	if calls := f.orders.deliveredCalls(); len(calls) != 1 || calls[0] != 9 {
		t.Fatalf("expected MarkDelivered(9), got %v", calls)
	}
}

func TestHandleRelease_NoPendingDelivery(t *testing.T) {
	f := newConfirmFixture()

	f.confirmer.HandleDrag(7, 200, 0)
	_, err := f.confirmer.HandleRelease(context.Background(), 7, 0)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleRelease_ReplayedCompletionSkipsWrite(t *testing.T) {
	f := newConfirmFixture()
	f.dedup.delivered[5] = true

	f.confirmer.HandleDrag(7, 200, 0)
	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if err != nil || !completed {
		t.Fatalf("HandleRelease: completed=%v err=%v", completed, err)
	}
	if calls := f.orders.deliveredCalls(); len(calls) != 0 {
		t.Fatalf("replayed completion must not write, got %v", calls)
	}
	if len(f.completions.events) != 1 {
		t.Fatalf("replayed completion should still record the audit event")
	}
}

func TestHandleDrag_VerticalDragNeverArms(t *testing.T) {
	f := newConfirmFixture()

	f.confirmer.HandleDrag(7, 50, 45)
	if state, _ := f.confirmer.State(7); state != SwipeIdle {
		t.Fatalf("diagonal drag armed the gesture: %s", state)
	}

	// Release on an un-armed gesture is a no-op.
	completed, err := f.confirmer.HandleRelease(context.Background(), 7, 5)
	if err != nil || completed {
		t.Fatalf("release on idle gesture: completed=%v err=%v", completed, err)
	}
}

func TestHandleDrag_SlopAndClamp(t *testing.T) {
	f := newConfirmFixture()

	f.confirmer.HandleDrag(7, 5, 0) // below slop
	if state, _ := f.confirmer.State(7); state != SwipeIdle {
		t.Fatalf("sub-slop drag armed the gesture: %s", state)
	}

	f.confirmer.HandleDrag(7, 30, 0)
	f.confirmer.HandleDrag(7, -40, 0) // dragged back past origin
	if _, offset := f.confirmer.State(7); offset != 0 {
		t.Fatalf("negative offset not clamped: %v", offset)
	}
}
