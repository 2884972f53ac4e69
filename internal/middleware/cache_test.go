package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hyeonwoo/studycafe-server/internal/config"
)

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{
        Enabled:   true,
        Methods:   map[string]bool{"GET": true},
        TTL:       30 * time.Second,
        DateParam: "date",
        Prefix:    "view",
    }
}

func gridContext(t *testing.T, target string) echo.Context {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, target, nil)
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/books")
    return c
}

func TestGridKeyUsesBookingDay(t *testing.T) {
    cfg := cacheCfg()

    key, registry := gridKey(cfg, gridContext(t, "/v1/books?date=2026-09-02"))
    assert.Contains(t, key, "view:/v1/books:2026-09-02:")
    assert.Equal(t, "view:keys:/v1/books", registry)

    // No day in the query falls back to the catch-all bucket.
    key, _ = gridKey(cfg, gridContext(t, "/v1/books"))
    assert.Contains(t, key, "view:/v1/books:all:")
}

func TestGridKeyDistinguishesFilters(t *testing.T) {
    cfg := cacheCfg()

    a, _ := gridKey(cfg, gridContext(t, "/v1/books?date=2026-09-02"))
    b, _ := gridKey(cfg, gridContext(t, "/v1/books?date=2026-09-02&room_type=1"))
    assert.NotEqual(t, a, b, "different filters for the same day must not share an entry")
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
    require.NoError(t, err)

    status, gotHdr, body, ok := decodePayload(payload)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
    assert.Equal(t, `{"ok":true}`, string(body))

    _, _, _, ok = decodePayload([]byte("short"))
    assert.False(t, ok)
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
    // Both middlewares must degrade to transparent passthroughs when no
    // Redis client is available.
    e := echo.New()
    handlerRan := false
    h := func(c echo.Context) error { handlerRan = true; return c.NoContent(http.StatusOK) }

    req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
    c := e.NewContext(req, httptest.NewRecorder())
    require.NoError(t, NewRedisCache(cacheCfg(), nil)(h)(c))
    assert.True(t, handlerRan)

    handlerRan = false
    req = httptest.NewRequest(http.MethodDelete, "/v1/books/7", nil)
    c = e.NewContext(req, httptest.NewRecorder())
    require.NoError(t, NewCacheInvalidator(cacheCfg(), nil, "/v1/books")(h)(c))
    assert.True(t, handlerRan)
}
