package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
)

const availabilityKeyPrefix = "psb:availability:"

// AvailabilityCache keeps short-lived snapshots of per-year class
// availability in Redis. Misses and Redis failures fall through to the
// database; the cache is an optimization, never a source of truth.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewAvailabilityCache constructs the cache. A nil client disables it.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *AvailabilityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached snapshot for the academic year, or ok=false.
func (c *AvailabilityCache) Get(ctx context.Context, academicYear string) ([]models.ClassAvailability, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, availabilityKeyPrefix+academicYear).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("availability cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var snapshot []models.ClassAvailability
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Warn("availability cache decode failed", zap.Error(err))
		return nil, false
	}
	return snapshot, true
}

// Set stores a snapshot for the academic year.
func (c *AvailabilityCache) Set(ctx context.Context, academicYear string, snapshot []models.ClassAvailability) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKeyPrefix+academicYear, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("availability cache write failed", zap.Error(err))
	}
}

// Invalidate drops the snapshot after any occupancy-changing mutation.
func (c *AvailabilityCache) Invalidate(ctx context.Context, academicYear string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, availabilityKeyPrefix+academicYear).Err(); err != nil {
		c.logger.Warn("availability cache invalidate failed", zap.Error(err))
	}
}
