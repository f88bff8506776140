package status

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// DefaultRedisKey is the key holding the state document.
const DefaultRedisKey = "catpoint/state"

// RedisStore keeps the security state as a protobuf JSON document in Redis.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore connects to the Redis server described by url
// (redis:// or rediss:// for TLS).
func NewRedisStore(url string) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if options.TLSConfig != nil {
		options.TLSConfig.MinVersion = tls.VersionTLS12
	}

	return NewRedisStoreWithClient(redis.NewClient(options), DefaultRedisKey), nil
}

// NewRedisStoreWithClient wraps an existing client. An empty key selects DefaultRedisKey.
func NewRedisStoreWithClient(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisStore{
		client: client,
		key:    key,
	}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Load reads the state document.
func (s *RedisStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	contents, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state from redis: %w", err)
	}

	snapshot, err := codec.UnmarshalSnapshot(contents)
	if err != nil {
		return nil, fmt.Errorf("decode state from redis: %w", err)
	}

	return snapshot, nil
}

// Save writes the state document without expiration.
func (s *RedisStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := codec.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err = s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write state to redis: %w", err)
	}

	return nil
}

// Close releases the client connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
