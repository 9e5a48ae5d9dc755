package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// RedisEventPublisher fans session events out to the live monitor channel and
// queues tab-switch audit records for the batch worker.
type RedisEventPublisher struct {
	rdb *redis.Client
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb}
}

// Publish sends an event to the monitor channel.
func (p *RedisEventPublisher) Publish(ctx context.Context, ev model.MonitorEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode monitor event: %w", err)
	}
	return p.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(), payload).Err()
}

// EnqueueTabSwitch pushes an audit record onto the persistence queue.
func (p *RedisEventPublisher) EnqueueTabSwitch(ctx context.Context, ev model.TabSwitchEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode tab switch event: %w", err)
	}
	return p.rdb.RPush(ctx, config.WorkerKey.PersistTabSwitchQueue, payload).Err()
}
