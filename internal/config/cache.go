package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheKeyStrategy selects which request parts identify a cached catalog read.
type CacheKeyStrategy string

const (
	// KeyRouteQuery keys on route, path and query.  Catalog reads are
	// public, so this is the default.
	KeyRouteQuery CacheKeyStrategy = "route_query"
	// KeyMethodRouteQuery also separates GET from HEAD.
	KeyMethodRouteQuery CacheKeyStrategy = "method_route_query"
	// KeyUserRouteQuery gives each signed-in user their own entries.
	KeyUserRouteQuery CacheKeyStrategy = "user_route_query"
)

const (
	defaultCacheTTL     = 30 * time.Second
	defaultCachePrefix  = "catalog"
	defaultCacheMaxBody = 1 << 20
)

// CacheConfig drives the Redis cache in front of the provider and service
// catalog reads.  Catalog writes purge every key under Prefix.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // only GET and HEAD are kept
	TTL          time.Duration
	KeyStrategy  CacheKeyStrategy
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.  Invalid values fall back
// to the defaults rather than failing startup, since the cache is optional.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          positiveDur(getenv("CACHE_TTL", ""), defaultCacheTTL),
		KeyStrategy:  ParseCacheKeyStrategy(getenv("CACHE_KEY_STRATEGY", "")),
		Prefix:       strings.TrimSuffix(getenv("CACHE_PREFIX", defaultCachePrefix), ":"),
		MaxBodyBytes: positiveInt(getenv("CACHE_MAX_BODY_BYTES", ""), defaultCacheMaxBody),
	}
}

// ParseCacheKeyStrategy maps a name to a strategy; unknown names yield
// KeyRouteQuery.
func ParseCacheKeyStrategy(s string) CacheKeyStrategy {
	switch k := CacheKeyStrategy(strings.ToLower(strings.TrimSpace(s))); k {
	case KeyMethodRouteQuery, KeyUserRouteQuery:
		return k
	}
	return KeyRouteQuery
}

// parseMethods keeps the safe methods named in s.  Catalog writes are
// never served from cache.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		switch p = strings.TrimSpace(strings.ToUpper(p)); p {
		case "GET", "HEAD":
			m[p] = true
		}
	}
	return m
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func positiveInt(s string, def int) int {
	if n := atoi(s); n > 0 {
		return n
	}
	return def
}

func positiveDur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
