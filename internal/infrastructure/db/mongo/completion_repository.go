package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

const collectionCompletions = "completion_events"

// CompletionRepository persists the delivery-completion audit trail.
type CompletionRepository struct {
	col *mongo.Collection
}

func NewCompletionRepository(db *mongo.Database) *CompletionRepository {
	return &CompletionRepository{col: db.Collection(collectionCompletions)}
}

// Insert appends one completion event.
func (r *CompletionRepository) Insert(ctx context.Context, event *domain.StopCompletionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"stop_id":      event.StopID,
		"order_id":     event.OrderID,
		"driver_id":    event.DriverID,
		"completed_at": event.CompletedAt.UTC(),
	}
	if event.Notes != "" {
		doc["notes"] = event.Notes
	}
	if event.Signature != "" {
		doc["signature"] = event.Signature
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert completion event: %w", err)
	}
	return nil
}

// ListByDriver returns the driver's most recent completions, newest first.
func (r *CompletionRepository) ListByDriver(ctx context.Context, driverID int, limit int) ([]domain.StopCompletionEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "completed_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{"driver_id": driverID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.StopCompletionEvent
	for cur.Next(ctx) {
		var doc struct {
			StopID      string    `bson:"stop_id"`
			OrderID     int       `bson:"order_id"`
			DriverID    int       `bson:"driver_id"`
			CompletedAt time.Time `bson:"completed_at"`
			Notes       string    `bson:"notes,omitempty"`
			Signature   string    `bson:"signature,omitempty"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode completion event: %w", err)
		}
		out = append(out, domain.StopCompletionEvent(doc))
	}
	return out, cur.Err()
}
