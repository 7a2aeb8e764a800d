package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
)

const (
	receiptKeyPrefix = "webhook:receipt:"
	orderKeyPrefix   = "webhook:order:"
)

// RedisReceiptStore implements webhook.ReceiptStore using Redis.
// Shared across instances so redeliveries to any replica are deduplicated.
type RedisReceiptStore struct {
	client *redis.Client
}

// NewRedisReceiptStore creates a store with an existing Redis client
func NewRedisReceiptStore(client *redis.Client) *RedisReceiptStore {
	return &RedisReceiptStore{client: client}
}

// Lookup implements webhook.ReceiptStore
func (s *RedisReceiptStore) Lookup(ctx context.Context, eventID string) (*webhook.Receipt, error) {
	raw, err := s.client.Get(ctx, receiptKeyPrefix+eventID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, webhook.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	var r webhook.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return &r, nil
}

// Record stores the receipt with SETNX so the first writer wins
func (s *RedisReceiptStore) Record(ctx context.Context, receipt *webhook.Receipt, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(receipt)
	if err != nil {
		return false, fmt.Errorf("failed to encode receipt: %w", err)
	}
	ok, err := s.client.SetNX(ctx, receiptKeyPrefix+receipt.EventID, raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record receipt: %w", err)
	}
	return ok, nil
}

// LookupOrder implements webhook.ReceiptStore
func (s *RedisReceiptStore) LookupOrder(ctx context.Context, orderID string) (*webhook.OrderRecord, error) {
	raw, err := s.client.Get(ctx, orderKeyPrefix+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, webhook.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order record: %w", err)
	}
	var r webhook.OrderRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode order record: %w", err)
	}
	return &r, nil
}

// RecordOrder implements webhook.ReceiptStore
func (s *RedisReceiptStore) RecordOrder(ctx context.Context, record *webhook.OrderRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode order record: %w", err)
	}
	if err := s.client.Set(ctx, orderKeyPrefix+record.OrderID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to record order record: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisReceiptStore) Close() error {
	return s.client.Close()
}

var _ webhook.ReceiptStore = (*RedisReceiptStore)(nil)
