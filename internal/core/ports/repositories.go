package ports

import (
	"context"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// PositionCache stores the last-known position per driver.
type PositionCache interface {
	SetPosition(ctx context.Context, driverID int, p domain.LocationPoint) error
	// Position returns the cached sample; the boolean is false when no
	// position has been recorded (or it expired).
	Position(ctx context.Context, driverID int) (domain.LocationPoint, bool, error)
}

// CompletionDedup makes the delivery-completion write idempotent: an order
// already marked delivered is never written again, regardless of gesture
// retries or redelivered events.
type CompletionDedup interface {
	AlreadyDelivered(ctx context.Context, orderID int) (bool, error)
	MarkDelivered(ctx context.Context, orderID int) error
}

// CompletionRepository is the audit trail of confirmed deliveries.
type CompletionRepository interface {
	Insert(ctx context.Context, event *domain.StopCompletionEvent) error
	ListByDriver(ctx context.Context, driverID int, limit int) ([]domain.StopCompletionEvent, error)
}

// RouteSnapshotRepository persists the latest built route per driver so
// dispatch tooling can inspect it. Updates are field-scoped merges: a status
// write must not clobber a concurrent ETA refresh and vice versa.
type RouteSnapshotRepository interface {
	Save(ctx context.Context, route *domain.RouteInfo) error
	UpdateStopStatus(ctx context.Context, driverID int, stopID string, status domain.StopStatus) error
	Find(ctx context.Context, driverID int) (*domain.RouteInfo, error)
}
