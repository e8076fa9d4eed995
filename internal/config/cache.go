package config

import "time"

// ProfileCacheConfig defines settings for the Redis-backed profile cache used
// by the request gate.  When Enabled is false or no Redis client is
// configured, every lookup falls through to the credential store.  TTL bounds
// how long a cached projection may be served after the last write that did not
// invalidate it.  Prefix namespaces keys when the Redis instance is shared.
type ProfileCacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadProfileCacheConfig reads environment variables to build a
// ProfileCacheConfig.  Defaults are used when variables are not set.
func LoadProfileCacheConfig() ProfileCacheConfig {
    c := ProfileCacheConfig{
        Enabled: envBool("PROFILE_CACHE_ENABLED", true),
        TTL:     envDur("PROFILE_CACHE_TTL", 5*time.Minute),
        Prefix:  envStr("PROFILE_CACHE_PREFIX", "accounts"),
    }
    if c.TTL <= 0 {
        c.TTL = time.Minute
    }
    return c
}
