package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain"
)

func TestListingCache_NilIsNoop(t *testing.T) {
	var c *ListingCache
	ctx := context.Background()

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, c.Set(ctx, &domain.Listing{ID: 1}))
	assert.NoError(t, c.Delete(ctx, 1))
}

func TestNewListingCache_NilClient(t *testing.T) {
	assert.Nil(t, NewListingCache(nil, time.Minute))
}

func TestListingKey(t *testing.T) {
	assert.Equal(t, "listing:42", listingKey(42))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
