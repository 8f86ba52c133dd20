package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"solunex/pkg/contracts/domain"
)

const redisKeyPrefix = "solunex:license:"

// RedisStore is a RecordStore backed by Redis. Records are stored as JSON
// under solunex:license:<key>; compare-and-swap updates run inside a
// WATCH/MULTI transaction so the version check and the write are atomic.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies reachability before
// returning.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: connect %s: %w", opts.Addr, err)
	}
	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("store", "redis")),
	}, nil
}

func redisKey(licenseKey string) string {
	return redisKeyPrefix + licenseKey
}

// Get implements RecordStore.
func (s *RedisStore) Get(ctx context.Context, licenseKey string) (*domain.License, error) {
	raw, err := s.client.Get(ctx, redisKey(licenseKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get: %w", err)
	}
	var rec domain.License
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis store: decode %s: %w", redisKey(licenseKey), err)
	}
	return &rec, nil
}

// Create implements RecordStore.
func (s *RedisStore) Create(ctx context.Context, lic *domain.License) error {
	rec := lic.Clone()
	rec.Version = 1
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis store: encode: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKey(lic.LicenseKey), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("redis store: create: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// Update implements RecordStore. WATCH aborts the transaction when the
// key changes between the read and the MULTI commit; that abort and a
// version mismatch both surface as ErrVersionConflict.
func (s *RedisStore) Update(ctx context.Context, lic *domain.License, expectedVersion int64) error {
	key := redisKey(lic.LicenseKey)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis store: read for update: %w", err)
		}
		var cur domain.License
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("redis store: decode %s: %w", key, err)
		}
		if cur.Version != expectedVersion {
			return ErrVersionConflict
		}

		rec := lic.Clone()
		rec.Version = expectedVersion + 1
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("redis store: encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		s.logger.Debug("watch aborted, concurrent write", slog.Int64("expected", expectedVersion))
		return ErrVersionConflict
	}
	return err
}

// Ping implements RecordStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements RecordStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
