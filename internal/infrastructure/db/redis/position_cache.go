package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

const positionTTL = 10 * time.Minute

// PositionCache stores the last-known position per driver.
// Key format: pos:<driver_id>.
type PositionCache struct {
	client *redis.Client
}

// NewPositionCache creates a PositionCache wrapping the given Redis client.
func NewPositionCache(client *redis.Client) *PositionCache {
	return &PositionCache{client: client}
}

// SetPosition records the driver's latest sample (expires after positionTTL,
// so a stale position never becomes a route origin).
func (c *PositionCache) SetPosition(ctx context.Context, driverID int, p domain.LocationPoint) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("position cache: encode: %w", err)
	}
	return c.client.Set(ctx, c.key(driverID), raw, positionTTL).Err()
}

// Position returns the cached sample; ok is false when none is recorded.
func (c *PositionCache) Position(ctx context.Context, driverID int) (domain.LocationPoint, bool, error) {
	raw, err := c.client.Get(ctx, c.key(driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.LocationPoint{}, false, nil
	}
	if err != nil {
		return domain.LocationPoint{}, false, fmt.Errorf("position cache: %w", err)
	}

	var p domain.LocationPoint
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.LocationPoint{}, false, fmt.Errorf("position cache: decode: %w", err)
	}
	return p, true, nil
}

func (c *PositionCache) key(driverID int) string {
	return fmt.Sprintf("pos:%d", driverID)
}
