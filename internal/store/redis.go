// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys in Redis.
const DefaultKeyPrefix = "twentyeight:game:"

// RedisStore keeps each session as a JSON string under <prefix><id> and tracks ids in a set.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an already connected client. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "ids"
}

func (s *RedisStore) FetchGame(ctx context.Context, id string) (*models.GameState, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to GET game %s: %w", id, err)
	}
	var gs models.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %w", id, err)
	}
	return &gs, nil
}

func (s *RedisStore) SaveGame(ctx context.Context, gs *models.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal game %s: %w", gs.ID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(gs.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), gs.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to SET game %s: %w", gs.ID, err)
	}
	return nil
}

func (s *RedisStore) DeleteGame(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to DEL game %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetAllGameIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count reads the cardinality of the id set.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return int(n), nil
}
