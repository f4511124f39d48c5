// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "twentyeight_actions"

// ActionRecord holds the minimal info needed by the historian to persist one accepted action.
type ActionRecord struct {
	GameID        string                 `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       string                 `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect opens a Redis client and verifies it with a PING.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionLog is a Redis list used as a queue of ActionRecords.
type ActionLog struct {
	rdb   *redis.Client
	queue string
}

// NewActionLog returns a log writing to queue, or DefaultQueueName when queue is empty.
func NewActionLog(rdb *redis.Client, queue string) *ActionLog {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionLog{rdb: rdb, queue: queue}
}

// Queue returns the list name.
func (l *ActionLog) Queue() string {
	return l.queue
}

// Publish serializes the record to JSON, then pushes it to the Redis queue.
func (l *ActionLog) Publish(ctx context.Context, record ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", l.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. It returns nil, nil when the wait times out.
func (l *ActionLog) Pop(ctx context.Context, timeout time.Duration) (*ActionRecord, error) {
	res, err := l.rdb.BLPop(ctx, timeout, l.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to BLPOP '%s': %w", l.queue, err)
	}
	// res[0] is the list name, res[1] the value.
	if len(res) < 2 {
		return nil, nil
	}
	var rec ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode ActionRecord: %w", err)
	}
	return &rec, nil
}
