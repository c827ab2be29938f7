package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropsource/storefront/models"
	"github.com/redis/go-redis/v9"
)

// CatalogCache stores the normalized panel catalog
type CatalogCache interface {
	Get(ctx context.Context) ([]models.Service, bool, error)
	Set(ctx context.Context, services []models.Service) error
	Invalidate(ctx context.Context) error
}

// RedisCatalogCache keeps the catalog as one JSON value with a TTL. A nil client disables caching.
type RedisCatalogCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCatalogCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		key:    prefix + "catalog:services",
		ttl:    ttl,
	}
}

func (c *RedisCatalogCache) Get(ctx context.Context) ([]models.Service, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("catalog cache get: %w", err)
	}
	var services []models.Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, false, fmt.Errorf("catalog cache decode: %w", err)
	}
	return services, true, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, services []models.Service) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(services)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog cache set: %w", err)
	}
	return nil
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key).Err()
}
