package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockRepository implements the per-building run lock on Redis. Runs for
// different buildings never share mutable state and may overlap; two runs for
// the same building must not.
type LockRepository struct {
	client *redis.Client
}

// NewLockRepository constructs repository.
func NewLockRepository(client *redis.Client) *LockRepository {
	return &LockRepository{client: client}
}

const lockKeyPrefix = "dcv:sync:lock:"

// Acquire takes the lock for a building, returning false when another run
// holds it. The TTL guards against a crashed holder wedging the building.
func (r *LockRepository) Acquire(ctx context.Context, buildingID string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKeyPrefix+buildingID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release frees the lock for a building.
func (r *LockRepository) Release(ctx context.Context, buildingID string) error {
	return r.client.Del(ctx, lockKeyPrefix+buildingID).Err()
}
