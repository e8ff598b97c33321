package config

import "time"

// OwnerCacheConfig defines how restaurant ownership lookups are cached in
// Redis.  When Enabled is false or no Redis client is configured, every
// ownership check goes to the restaurant service.  Prefix namespaces the
// keys and TTL bounds how long a stale owner can be served after a
// restaurant changes hands.
type OwnerCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadOwnerCacheConfig reads OWNER_CACHE_* variables.  Defaults are used
// when variables are not set.
func LoadOwnerCacheConfig() OwnerCacheConfig {
	cfg := OwnerCacheConfig{
		Enabled: envBool("OWNER_CACHE_ENABLED", true),
		TTL:     envDur("OWNER_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("OWNER_CACHE_PREFIX", "restaurant_owner"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return cfg
}
