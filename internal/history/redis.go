package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"veil/internal/domain"
)

const (
	// Redis key prefixes for the per-key decision streams.
	historyKeyPrefix    = "veil:hist:"
	violationsKeyPrefix = "veil:histv:"
)

// RedisStore is a Redis-backed Store for distributed deployments where
// multiple engine instances must share frequency and violation counts.
//
// Each (requester, entity type) key maps to a sorted set scored by append
// time in nanoseconds. Appends go through a transactional pipeline so a
// record and its violation marker commit together; window queries then see
// either both or neither.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(prefix, requesterID string, entityType domain.EntityType) string {
	return prefix + requesterID + ":" + string(entityType)
}

func (s *RedisStore) Append(ctx context.Context, record Record) error {
	score := float64(record.CreatedAt.UnixNano())
	member := record.ID

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key(historyKeyPrefix, record.RequesterID, record.EntityType), redis.Z{Score: score, Member: member})
	if record.Violation {
		pipe.ZAdd(ctx, key(violationsKeyPrefix, record.RequesterID, record.EntityType), redis.Z{Score: score, Member: member})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

func (s *RedisStore) QueryWindow(ctx context.Context, requesterID string, entityType domain.EntityType, window time.Duration) (Stats, error) {
	histKey := key(historyKeyPrefix, requesterID, entityType)
	violKey := key(violationsKeyPrefix, requesterID, entityType)
	cutoff := strconv.FormatInt(time.Now().Add(-window).UnixNano(), 10)

	pipe := s.client.Pipeline()
	windowCount := pipe.ZCount(ctx, histKey, cutoff, "+inf")
	windowViolations := pipe.ZCount(ctx, violKey, cutoff, "+inf")
	totalCount := pipe.ZCard(ctx, histKey)
	totalViolations := pipe.ZCard(ctx, violKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("query history window: %w", err)
	}

	return Stats{
		WindowCount:      int(windowCount.Val()),
		WindowViolations: int(windowViolations.Val()),
		TotalCount:       int(totalCount.Val()),
		TotalViolations:  int(totalViolations.Val()),
	}, nil
}
