package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/model"
)

func TestNewProfileCache_DisabledIsNil(t *testing.T) {
	log, _ := test.NewNullLogger()
	assert.Nil(t, NewProfileCache(config.ProfileCacheConfig{Enabled: true}, nil, log))

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	assert.Nil(t, NewProfileCache(config.ProfileCacheConfig{Enabled: false}, rdb, log))
}

func TestProfileCache_NilIsMiss(t *testing.T) {
	var c *ProfileCache
	ctx := context.Background()

	c.Set(ctx, model.Profile{ID: "u-1"})
	_, ok := c.Get(ctx, "u-1")
	assert.False(t, ok)
	c.Invalidate(ctx, "u-1")
}

func TestProfileCache_UnreachableRedisIsMiss(t *testing.T) {
	log, _ := test.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	c := NewProfileCache(config.ProfileCacheConfig{Enabled: true, TTL: time.Minute, Prefix: "t"}, rdb, log)

	ctx := context.Background()
	c.Set(ctx, model.Profile{ID: "u-1"})
	_, ok := c.Get(ctx, "u-1")
	assert.False(t, ok)
	assert.Equal(t, "t:user:u-1", c.key("u-1"))
}
