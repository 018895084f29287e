package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/redis/go-redis/v9"
)

var _ MessageStore = (*RedisStore)(nil)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	MaxPerRoom int
}

// RedisStore keeps one capped list of JSON encoded messages per room.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxPerRoom int
	logger     *slog.Logger
}

// NewRedisStore opens a client and pings the server through retryer.
func NewRedisStore(ctx context.Context, cfg RedisConfig, retryer Retryer) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := retryer.Retry(ctx, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, wrap("connect redis", err)
	}

	s := NewRedisStoreFromClient(client, cfg.Prefix, cfg.MaxPerRoom)
	s.logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, maxPerRoom int) *RedisStore {
	if prefix == "" {
		prefix = "chatrooms:messages:"
	}
	if maxPerRoom <= 0 {
		maxPerRoom = DefaultMaxPerRoom
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		maxPerRoom: maxPerRoom,
		logger:     slog.Default().With("service", "store", "driver", "redis"),
	}
}

func (s *RedisStore) key(room string) string {
	return s.prefix + room
}

// Append implements MessageStore.
func (s *RedisStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return wrap("encode message", err)
	}

	key := s.key(msg.Room)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxPerRoom), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrap("push message", err)
	}
	return nil
}

// FetchRecent implements MessageStore. Lists are appended at the tail, so the
// last limit entries are already oldest first.
func (s *RedisStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}

	raw, err := s.client.LRange(ctx, s.key(room), int64(-limit), -1).Result()
	if err != nil {
		return nil, wrap("range messages", err)
	}

	msgs := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logger.Warn("Skipping undecodable message", "room", room, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close implements MessageStore.
func (s *RedisStore) Close(ctx context.Context) error {
	if err := s.client.Close(); err != nil {
		return wrap("close redis", err)
	}
	return nil
}
