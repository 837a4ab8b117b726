package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

const collectionRoutes = "route_snapshots"

// RouteSnapshotRepository keeps the latest built route per driver for
// dispatch tooling. All writes are field-scoped $set merges: an ETA refresh
// and a status completion racing on the same document never clobber each
// other's fields.
type RouteSnapshotRepository struct {
	col *mongo.Collection
}

func NewRouteSnapshotRepository(db *mongo.Database) *RouteSnapshotRepository {
	return &RouteSnapshotRepository{col: db.Collection(collectionRoutes)}
}

// Save upserts the driver's current route document.
func (r *RouteSnapshotRepository) Save(ctx context.Context, route *domain.RouteInfo) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"driver_id": route.DriverID}
	update := bson.M{
		"$set": bson.M{
			"stops":              route.Stops,
			"total_distance_km":  route.TotalDistance,
			"total_duration_min": route.TotalDuration,
			"updated_at":         time.Now().UTC(),
		},
	}

	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save route snapshot: %w", err)
	}
	return nil
}

// UpdateStopStatus sets one stop's status without touching its siblings.
func (r *RouteSnapshotRepository) UpdateStopStatus(ctx context.Context, driverID int, stopID string, status domain.StopStatus) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"driver_id": driverID, "stops.id": stopID}
	update := bson.M{"$set": bson.M{"stops.$.status": string(status)}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update stop status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update stop status: stop %s: %w", stopID, domain.ErrRouteNotFound)
	}
	return nil
}

// Find returns the driver's stored route.
func (r *RouteSnapshotRepository) Find(ctx context.Context, driverID int) (*domain.RouteInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		DriverID      int                   `bson:"driver_id"`
		Stops         []domain.DeliveryStop `bson:"stops"`
		TotalDistance float64               `bson:"total_distance_km"`
		TotalDuration int                   `bson:"total_duration_min"`
	}
	err := r.col.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRouteNotFound
		}
		return nil, fmt.Errorf("find route snapshot: %w", err)
	}

	return &domain.RouteInfo{
		DriverID:      doc.DriverID,
		Stops:         doc.Stops,
		TotalDistance: doc.TotalDistance,
		TotalDuration: doc.TotalDuration,
	}, nil
}
