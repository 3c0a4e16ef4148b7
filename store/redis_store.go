package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps each key as its own Redis string holding the JSON
// document. Entries never expire; this is the system of record, not a cache.
type RedisStore struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, tracer trace.Tracer) *RedisStore {
	return &RedisStore{
		client: client,
		tracer: tracer,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	_, span := r.tracer.Start(ctx, "RedisStore.Get")
	defer span.End()

	value, err := r.client.Get(key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, "Error getting stored value")
		log.Printf("redis get error: %s", err)
		return nil, err
	}

	if !json.Valid(value) {
		log.Printf("corrupt value under %q, treating as absent", key)
		return nil, nil
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, span := r.tracer.Start(ctx, "RedisStore.Set")
	defer span.End()

	result := r.client.Set(key, []byte(value), 0)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error posting stored value")
		log.Printf("redis set error: %s", result.Err())
		return result.Err()
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	_, span := r.tracer.Start(ctx, "RedisStore.Delete")
	defer span.End()

	result := r.client.Del(key)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error deleting stored value")
		log.Println(result.Err())
		return result.Err()
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping checks the connection on startup.
func (r *RedisStore) Ping() {
	val, _ := r.client.Ping().Result()
	log.Println(val)
}
