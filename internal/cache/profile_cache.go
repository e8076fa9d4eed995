// Package cache keeps user projections in Redis so the request gate does not
// hit the credential store on every protected call.
package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/model"
)

// ProfileCache is a read-through cache of model.Profile keyed by user id.
// A nil receiver, a nil client or a disabled config turn every call into a
// miss/no-op; Redis errors are logged and treated as misses.
type ProfileCache struct {
	cfg config.ProfileCacheConfig
	rdb *redis.Client
	log logrus.FieldLogger
}

// NewProfileCache returns nil when caching is disabled or Redis is absent.
func NewProfileCache(cfg config.ProfileCacheConfig, rdb *redis.Client, log logrus.FieldLogger) *ProfileCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &ProfileCache{cfg: cfg, rdb: rdb, log: log}
}

func (c *ProfileCache) key(id string) string { return c.cfg.Prefix + ":user:" + id }

// Get returns the cached profile and whether it was found.
func (c *ProfileCache) Get(ctx context.Context, id string) (model.Profile, bool) {
	if c == nil {
		return model.Profile{}, false
	}
	bs, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Debug("profile cache get")
		}
		return model.Profile{}, false
	}
	var p model.Profile
	if err := json.Unmarshal(bs, &p); err != nil {
		c.log.WithError(err).Debug("profile cache decode")
		return model.Profile{}, false
	}
	return p, true
}

// Set stores p with the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, p model.Profile) {
	if c == nil {
		return
	}
	bs, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(p.ID), bs, c.cfg.TTL).Err(); err != nil {
		c.log.WithError(err).Debug("profile cache set")
	}
}

// Invalidate drops the cached profile after a write to the user record.
func (c *ProfileCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.WithError(err).Warn("profile cache invalidate")
	}
}
