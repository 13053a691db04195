package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/pkg/utils/json"
)

// RedisStore 是基于 Redis 列表的会话存储，历史可跨进程共享。
// 每个会话对应一个列表键，消息按追加顺序编码存储。
type RedisStore struct {
	client    *goredis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *goredis.Client, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis session store: client is required")
	}
	if keyPrefix == "" {
		keyPrefix = "agrichat:session:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// History returns the ordered history of a session.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	items, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis session store: failed to read history: %w", err)
	}

	history := make([]model.Message, 0, len(items))
	for _, item := range items {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("redis session store: failed to decode message: %w", err)
		}
		history = append(history, msg)
	}
	return history, nil
}

// Append appends messages to a session and refreshes its TTL.
func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis session store: failed to encode message: %w", err)
		}
		values = append(values, data)
	}

	key := s.key(sessionID)
	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("redis session store: failed to append: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis session store: failed to set ttl: %w", err)
		}
	}
	return nil
}

// Delete removes the session. Deleting an unknown session succeeds.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis session store: failed to delete: %w", err)
	}
	return nil
}

// ListIDs scans session keys and strips the prefix.
func (s *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis session store: failed to scan sessions: %w", err)
	}
	return ids, nil
}
