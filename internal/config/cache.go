package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the Redis response cache middleware.
// Only the public catalog listing is cached; reservation reads always hit
// the store so a guest sees state changes immediately.
// Methods lists the HTTP methods to cache.  TTL defines the lifetime of
// cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 60*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
    }
}

// CatalogCacheConfig sizes the two-level catalog cache: an in-process
// LRU and an optional memcached shared between instances.
type CatalogCacheConfig struct {
    Size          int64
    TTL           time.Duration
    MemcachedHost string // empty disables the shared level
}

// LoadCatalogCacheConfig reads the catalog cache settings.
func LoadCatalogCacheConfig() CatalogCacheConfig {
    return CatalogCacheConfig{
        Size:          int64(envInt("CATALOG_CACHE_SIZE", 1000)),
        TTL:           envDur("CATALOG_CACHE_TTL", 5*time.Minute),
        MemcachedHost: envStr("MEMCACHED_HOST", ""),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
