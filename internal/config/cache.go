package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig drives the day-grid response cache.  The cached reads are
// the timetable (GET /books?date=...) and the room list; entries are
// keyed by the booking day named in the DateParam query parameter so a
// write can invalidate exactly the days it touched.  When Enabled is
// false or no Redis client is configured the cache is a no-op.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    DateParam    string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// The TTL default is deliberately short: the timetable also mutates
// through the no-show sweep, which bypasses the HTTP layer.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
        TTL:          parseDur(getenv("CACHE_TTL", "30s")),
        DateParam:    getenv("CACHE_DATE_PARAM", "date"),
        Prefix:       getenv("CACHE_PREFIX", "view"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
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

// Helper functions reused from redis.go and ratelimit.go
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

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
