package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// MaxHealthCheckRetries is the maximum number of retries for the health check
	MaxHealthCheckRetries = 3

	maxStreamTxRetries = 5
)

// Config is the configuration for the Redis store
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StreamEntry is a single stream record as written by AppendStream.
type StreamEntry struct {
	ID     string
	Values map[string]any
}

// Store is a Redis store
type Store struct {
	client *redis.Client
}

// healthCheck is used to check the health of the Redis connection
func healthCheck(ctx context.Context, client *redis.Client) error {
	var err error

	backoff := 100 * time.Millisecond
	for i := 1; i <= MaxHealthCheckRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			break
		}
		if i < MaxHealthCheckRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return err
}

// New creates a new Redis store instance
func New(ctx context.Context, cfg *Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to instrument redis tracing: %v", err)
	}

	if err := redisotel.InstrumentMetrics(client); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to instrument redis metrics: %v", err)
	}

	if err := healthCheck(ctx, client); err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to connect to redis: %v", err)
	}

	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis store
func (s *Store) Close() error {
	return s.client.Close()
}

// Set stores a value with optional expiration
func (s *Store) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to marshal value: %v", err)
	}

	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return status.Errorf(codes.Unavailable, "failed to set value in redis: %v", err)
	}

	return nil
}

// Get retrieves a value by key
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return status.Errorf(codes.NotFound, "key not found: %s", key)
		}
		return status.Errorf(codes.Unavailable, "failed to get value from redis: %v", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return status.Errorf(codes.Internal, "failed to unmarshal value: %v", err)
	}

	return nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return status.Errorf(codes.Unavailable, "failed to delete key: %v", err)
	}
	return nil
}

// SetNX sets a value if it does not exist (atomic operation)
func (s *Store) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, status.Errorf(codes.Internal, "failed to marshal value: %v", err)
	}

	success, err := s.client.SetNX(ctx, key, data, expiration).Result()
	if err != nil {
		return false, status.Errorf(codes.Unavailable, "failed to set value in redis: %v", err)
	}

	return success, nil
}

// AppendStream adds every record to the stream inside one MULTI/EXEC block, so the records of
// one call are contiguous and never interleaved with records of a concurrent call.
// The key expiry is refreshed when ttl is positive. Each record is a flat field/value list.
func (s *Store) AppendStream(ctx context.Context, key string, records [][]string, ttl time.Duration) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var cmds []*redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		cmds = queueStreamAppend(ctx, pipe, key, records, ttl)
		return nil
	})
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to append to stream: %v", err)
	}

	return streamIDs(cmds), nil
}

// AppendStreamIf appends the records like AppendStream once accept approves the newest record of
// the stream, nil when the stream is empty. The check and the append form one optimistic
// transaction that is retried when the stream changes in between.
func (s *Store) AppendStreamIf(ctx context.Context, key string, accept func(last *StreamEntry) error, records [][]string, ttl time.Duration) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	for range maxStreamTxRetries {
		var cmds []*redis.StringCmd
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			msgs, err := tx.XRevRangeN(ctx, key, "+", "-", 1).Result()
			if err != nil {
				return err
			}

			var last *StreamEntry
			if len(msgs) > 0 {
				last = &StreamEntry{ID: msgs[0].ID, Values: msgs[0].Values}
			}
			if acceptErr := accept(last); acceptErr != nil {
				return acceptErr
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				cmds = queueStreamAppend(ctx, pipe, key, records, ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if _, ok := status.FromError(err); ok {
				return nil, err
			}
			return nil, status.Errorf(codes.Unavailable, "failed to append to stream: %v", err)
		}

		return streamIDs(cmds), nil
	}

	return nil, status.Error(codes.Unavailable, "stream kept changing during append")
}

func queueStreamAppend(ctx context.Context, pipe redis.Pipeliner, key string, records [][]string, ttl time.Duration) []*redis.StringCmd {
	cmds := make([]*redis.StringCmd, 0, len(records))
	for _, record := range records {
		cmds = append(cmds, pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			ID:     "*",
			Values: record,
		}))
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	return cmds
}

func streamIDs(cmds []*redis.StringCmd) []string {
	ids := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		ids = append(ids, cmd.Val())
	}
	return ids
}

// ReadStream returns up to count records with ids strictly greater than afterID.
// A negative block returns immediately, zero blocks until a record arrives, and a positive
// value bounds the wait. An empty result is not an error.
func (s *Store) ReadStream(ctx context.Context, key, afterID string, count int64, block time.Duration) ([]StreamEntry, error) {
	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{key, afterID},
		Count:   count,
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		return nil, status.Errorf(codes.Unavailable, "failed to read stream: %v", err)
	}

	var entries []StreamEntry
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			entries = append(entries, StreamEntry{ID: msg.ID, Values: msg.Values})
		}
	}

	return entries, nil
}
