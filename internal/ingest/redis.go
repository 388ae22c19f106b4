package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"siteguard/internal/config"
)

// ErrCacheMiss is returned by a KVStore for an absent key.
var ErrCacheMiss = errors.New("cache miss")

// KVStore abstracts the key/value backend so tests can swap Redis out.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// RedisSource reads the {prefix}sites and {prefix}alerts documents.
type RedisSource struct {
	kv     KVStore
	prefix string
	client *redis.Client
	logger *zap.Logger
}

func NewRedisSource(cfg config.RedisConfig, logger *zap.Logger) *RedisSource {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	src := NewRedisSourceWith(NewRedisKVStore(client), cfg.KeyPrefix, logger)
	src.client = client
	return src
}

// NewRedisSourceWith builds a source over any KVStore.
func NewRedisSourceWith(kv KVStore, prefix string, logger *zap.Logger) *RedisSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSource{kv: kv, prefix: prefix, logger: logger}
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) SitesKey() string  { return s.prefix + "sites" }
func (s *RedisSource) AlertsKey() string { return s.prefix + "alerts" }

func (s *RedisSource) Fetch(ctx context.Context) (*Snapshot, error) {
	raw, err := s.kv.Get(ctx, s.SitesKey())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, fmt.Errorf("key %s: %w", s.SitesKey(), ErrNoSnapshot)
		}
		return nil, fmt.Errorf("get %s: %w", s.SitesKey(), err)
	}
	sites, err := DecodeSites([]byte(raw))
	if err != nil {
		return nil, err
	}
	var alerts []map[string]any
	raw, err = s.kv.Get(ctx, s.AlertsKey())
	switch {
	case errors.Is(err, ErrCacheMiss):
		s.logger.Debug("alerts key missing, using embedded alerts", zap.String("key", s.AlertsKey()))
	case err != nil:
		return nil, fmt.Errorf("get %s: %w", s.AlertsKey(), err)
	default:
		if alerts, err = DecodeAlerts([]byte(raw)); err != nil {
			return nil, err
		}
	}
	return newSnapshot(s.Name(), sites, alerts), nil
}

func (s *RedisSource) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
