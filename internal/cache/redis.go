// Package cache содержит кэш найденных заказов поверх Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache описывает хранилище строковых значений с TTL.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get возвращает пустую строку без ошибки, если ключа нет.
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation, key string) string
	Close() error
}

// RedisCache реализует Cache на Redis.
type RedisCache struct {
	client      *redis.Client
	serviceName string
}

// NewRedisCache создаёт кэш, ключи которого начинаются с serviceName.
func NewRedisCache(addr, serviceName string) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
	}
}

// Ping проверяет доступность Redis.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Set сохраняет значение по ключу.
func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get читает значение по ключу.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return stringResult(r.client.Get(ctx, key))
}

// stringResult переводит отсутствие ключа (redis.Nil) в пустую строку без ошибки.
func stringResult(cmd *redis.StringCmd) (string, error) {
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// GenerateKey строит ключ вида service:operation:key.
func (r *RedisCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.serviceName, operation, key)
}

// Close закрывает соединения с Redis.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
