package middleware

// cache.go caches the day-grid reads (the timetable and the room list)
// in Redis.  Entries are keyed by route and booking day, and every
// stored key is registered in a per-route set so the invalidator can
// drop a route's entries the moment a booking or room write lands.

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/hyeonwoo/studycafe-server/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size < cw.limit {
        remain := cw.limit - cw.size
        if cw.limit <= 0 {
            cw.buf.Write(b)
        } else if remain > 0 {
            if int64(len(b)) <= remain {
                cw.buf.Write(b)
            } else {
                cw.buf.Write(b[:remain])
            }
        }
        cw.size += int64(len(b))
    }
    return cw.ResponseWriter.Write(b)
}

// gridKey builds the entry key from the route and the booking day the
// request names ("all" when the query carries no day), hashing the raw
// query so the same day with different filters stays distinct.  The
// second return value is the per-route registry set the key belongs to.
func gridKey(cfg config.CacheConfig, c echo.Context) (key, registry string) {
    r := c.Request()
    day := c.QueryParam(cfg.DateParam)
    if day == "" {
        day = "all"
    }
    route := c.Path()
    sum := sha1.Sum([]byte(r.Method + ":" + r.URL.RawQuery))
    key = fmt.Sprintf("%s:%s:%s:%x", cfg.Prefix, route, day, sum[:8])
    return key, registryKey(cfg.Prefix, route)
}

func registryKey(prefix, route string) string { return prefix + ":keys:" + route }

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    total := 4 + 4 + len(hdrJSON) + len(body)
    out := make([]byte, total)
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+hlen > len(bs) || hlen < 0 {
        return 0, nil, nil, false
    }
    var hdr http.Header
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    } else {
        hdr = make(http.Header)
    }
    body = bs[8+hlen:]
    return status, hdr, body, true
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error { return next(c) }
}

// NewRedisCache serves day-grid reads from Redis.  Headers and body are
// stored together so clients see identical formatting on a hit, and the
// short TTL covers mutations that bypass the HTTP layer (the no-show
// sweep runs on the read path itself and busts nothing).
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key, registry := gridKey(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil && len(bs) >= 8 {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        // X-Cache is set below; Echo handles Content-Length.
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK {
                hdr := make(http.Header, len(c.Response().Header()))
                for k, vals := range c.Response().Header() {
                    vv := make([]string, len(vals))
                    copy(vv, vals)
                    hdr[k] = vv
                }
                body := cw.buf.Bytes()
                if maxBody > 0 && int64(len(body)) > maxBody {
                    body = body[:maxBody]
                }
                if payload, err := encodePayload(cw.status, hdr, body); err == nil {
                    store := context.Background()
                    pipe := rdb.Pipeline()
                    pipe.SetEx(store, key, payload, ttl)
                    pipe.SAdd(store, registry, key)
                    pipe.Expire(store, registry, ttl+time.Minute)
                    _, _ = pipe.Exec(store)
                }
            }
            return nil
        }
    }
}

// NewCacheInvalidator drops the cached grids for the given routes after
// any successful mutating request passing through it.  Booking and room
// writes carry no reliable day of their own (an id-addressed cancel
// reveals its date only in the database), so the whole route's entries
// go at once; the registry set makes that a single SMEMBERS + DEL.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, routes ...string) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := next(c); err != nil {
                return err
            }
            switch c.Request().Method {
            case http.MethodGet, http.MethodHead, http.MethodOptions:
                return nil
            }
            if c.Response().Status >= http.StatusBadRequest {
                return nil
            }

            ctx := context.Background()
            for _, route := range routes {
                registry := registryKey(cfg.Prefix, route)
                keys, err := rdb.SMembers(ctx, registry).Result()
                if err != nil {
                    continue
                }
                if len(keys) > 0 {
                    _ = rdb.Del(ctx, keys...).Err()
                }
                _ = rdb.Del(ctx, registry).Err()
            }
            return nil
        }
    }
}
