package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveredTTL = 24 * time.Hour

// CompletionDedup provides idempotency checks for delivery-completion writes.
// Key format: delivered:<order_id>.
type CompletionDedup struct {
	client *redis.Client
}

// NewCompletionDedup creates a CompletionDedup wrapping the given Redis client.
func NewCompletionDedup(client *redis.Client) *CompletionDedup {
	return &CompletionDedup{client: client}
}

// AlreadyDelivered reports whether this order's completion was already written.
func (d *CompletionDedup) AlreadyDelivered(ctx context.Context, orderID int) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(orderID)).Result()
	if err != nil {
		return false, fmt.Errorf("completion dedup: %w", err)
	}
	return n > 0, nil
}

// MarkDelivered records the successful write (expires after deliveredTTL).
func (d *CompletionDedup) MarkDelivered(ctx context.Context, orderID int) error {
	return d.client.Set(ctx, d.key(orderID), "1", deliveredTTL).Err()
}

func (d *CompletionDedup) key(orderID int) string {
	return fmt.Sprintf("delivered:%d", orderID)
}
