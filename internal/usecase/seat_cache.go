package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SeatCache caches availability snapshots per event. Cache trouble is never
// an error for callers: reads fall through to the ledger and writes are
// best-effort. Every seat-state mutation invalidates the event's entry.
type SeatCache interface {
	GetSnapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, bool)
	SetSnapshot(ctx context.Context, eventID uuid.UUID, seats []*entity.Seat)
	Invalidate(ctx context.Context, eventID uuid.UUID)
}

type redisSeatCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisSeatCache(client *redis.Client, ttl time.Duration, log *zap.Logger) SeatCache {
	return &redisSeatCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "seats")),
	}
}

func snapshotKey(eventID uuid.UUID) string {
	return fmt.Sprintf("seats:%s", eventID)
}

func (c *redisSeatCache) GetSnapshot(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, bool) {
	raw, err := c.client.Get(ctx, snapshotKey(eventID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("Snapshot cache read failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, false
	}

	var seats []*entity.Seat
	if err := json.Unmarshal(raw, &seats); err != nil {
		c.log.Warn("Snapshot cache entry corrupt, dropping",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		c.client.Del(ctx, snapshotKey(eventID))
		return nil, false
	}

	return seats, true
}

func (c *redisSeatCache) SetSnapshot(ctx context.Context, eventID uuid.UUID, seats []*entity.Seat) {
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, snapshotKey(eventID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Snapshot cache write failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
	}
}

func (c *redisSeatCache) Invalidate(ctx context.Context, eventID uuid.UUID) {
	if err := c.client.Del(ctx, snapshotKey(eventID)).Err(); err != nil {
		c.log.Warn("Snapshot cache invalidation failed",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
	}
}

// NoopSeatCache is used when Redis is not configured.
type NoopSeatCache struct{}

func (NoopSeatCache) GetSnapshot(context.Context, uuid.UUID) ([]*entity.Seat, bool) {
	return nil, false
}
func (NoopSeatCache) SetSnapshot(context.Context, uuid.UUID, []*entity.Seat) {}
func (NoopSeatCache) Invalidate(context.Context, uuid.UUID)                  {}
