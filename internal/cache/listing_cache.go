package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"staybook/internal/domain"
)

const dialTimeout = 5 * time.Second

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings. The client is closed when the ping fails.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis (ping failed): %w", err)
	}
	return client, nil
}

// ListingCache keeps serialized listings keyed by id. A nil *ListingCache is
// valid and caches nothing, which is what the API runs with when Redis is
// not configured.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ListingCache{client: client, ttl: ttl}
}

func listingKey(id int64) string {
	return "listing:" + strconv.FormatInt(id, 10)
}

// Get returns (nil, nil) on a cache miss.
func (c *ListingCache) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, listingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var l domain.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *ListingCache) Set(ctx context.Context, l *domain.Listing) error {
	if c == nil || l == nil {
		return nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKey(l.ID), data, c.ttl).Err()
}

func (c *ListingCache) Delete(ctx context.Context, id int64) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, listingKey(id)).Err()
}
