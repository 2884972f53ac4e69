package config

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/hyeonwoo/studycafe-server/internal/booking"
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// RulesStore serves the operational booking rules: the whole-facility
// closure flag, per-date closures and the open hours per weekday class.
// Values live in Redis so the back office can change them at runtime
// without a restart; every read goes through a short in-process TTL
// cache, and a missing key or an unreachable Redis falls back to the
// environment-driven defaults.  The store is safe for concurrent use.
type RulesStore struct {
    rdb *redis.Client

    defaults RuleDefaults

    mu     sync.Mutex
    cached map[string]cachedValue
    ttl    time.Duration
}

type cachedValue struct {
    value   string
    ok      bool
    expires time.Time
}

// RuleDefaults are the rule values used when Redis has no override.
type RuleDefaults struct {
    WeekdayOpen  int // minute of day
    WeekdayClose int
    WeekendOpen  int
    WeekendClose int
}

// LoadRuleDefaults reads the fallback rule values from the environment.
func LoadRuleDefaults() RuleDefaults {
    parse := func(key, def string) int {
        m, err := model.ParseClock(envStr(key, def))
        if err != nil {
            m, _ = model.ParseClock(def)
        }
        return m
    }
    return RuleDefaults{
        WeekdayOpen:  parse("BOOK_WEEKDAY_OPEN", "11:30"),
        WeekdayClose: parse("BOOK_WEEKDAY_CLOSE", "22:00"),
        WeekendOpen:  parse("BOOK_WEEKEND_OPEN", "11:30"),
        WeekendClose: parse("BOOK_WEEKEND_CLOSE", "22:00"),
    }
}

// Redis keys for the rule values.  Closure dates are one key per date so
// they can be set with their own expiry.
const (
    keyCafeClosed   = "rules:cafe_closed"
    keyClosedDate   = "rules:closed:" // + YYYY-MM-DD
    keyWeekdayOpen  = "rules:weekday_open"
    keyWeekdayClose = "rules:weekday_close"
    keyWeekendOpen  = "rules:weekend_open"
    keyWeekendClose = "rules:weekend_close"
)

// NewRulesStore builds a rules store over an optional Redis client.  A
// nil client disables overrides entirely and serves defaults only.
func NewRulesStore(rdb *redis.Client, defaults RuleDefaults) *RulesStore {
    return &RulesStore{
        rdb:      rdb,
        defaults: defaults,
        cached:   make(map[string]cachedValue),
        ttl:      10 * time.Second,
    }
}

// get reads one key through the TTL cache.  ok is false when the key is
// absent or Redis is unavailable.
func (s *RulesStore) get(ctx context.Context, key string) (string, bool) {
    now := time.Now()

    s.mu.Lock()
    if c, hit := s.cached[key]; hit && now.Before(c.expires) {
        s.mu.Unlock()
        return c.value, c.ok
    }
    s.mu.Unlock()

    var (
        value string
        ok    bool
    )
    if s.rdb != nil {
        v, err := s.rdb.Get(ctx, key).Result()
        if err == nil {
            value, ok = v, true
        }
    }

    s.mu.Lock()
    s.cached[key] = cachedValue{value: value, ok: ok, expires: now.Add(s.ttl)}
    s.mu.Unlock()
    return value, ok
}

// CafeClosed reports whether bookings are suspended facility-wide.
func (s *RulesStore) CafeClosed(ctx context.Context) bool {
    v, ok := s.get(ctx, keyCafeClosed)
    return ok && (v == "1" || v == "true")
}

// ClosedOn reports whether one calendar date is a closure day.
func (s *RulesStore) ClosedOn(ctx context.Context, date time.Time) bool {
    _, ok := s.get(ctx, keyClosedDate+date.Format("2006-01-02"))
    return ok
}

// Hours returns the bookable window for a date's weekday class.
func (s *RulesStore) Hours(ctx context.Context, date time.Time) booking.OpenHours {
    weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
    if weekend {
        return booking.OpenHours{
            Label: "weekend",
            Open:  s.minuteOr(ctx, keyWeekendOpen, s.defaults.WeekendOpen),
            Close: s.minuteOr(ctx, keyWeekendClose, s.defaults.WeekendClose),
        }
    }
    return booking.OpenHours{
        Label: "weekday",
        Open:  s.minuteOr(ctx, keyWeekdayOpen, s.defaults.WeekdayOpen),
        Close: s.minuteOr(ctx, keyWeekdayClose, s.defaults.WeekdayClose),
    }
}

func (s *RulesStore) minuteOr(ctx context.Context, key string, def int) int {
    v, ok := s.get(ctx, key)
    if !ok {
        return def
    }
    m, err := model.ParseClock(v)
    if err != nil {
        return def
    }
    return m
}

// SetCafeClosed flips the facility-wide closure flag.
func (s *RulesStore) SetCafeClosed(ctx context.Context, closed bool) error {
    if s.rdb == nil {
        return nil
    }
    v := "0"
    if closed {
        v = "1"
    }
    s.invalidate(keyCafeClosed)
    return s.rdb.Set(ctx, keyCafeClosed, v, 0).Err()
}

// AddClosedDate marks one date as a closure day.  The key expires on its
// own two days after the date passes.
func (s *RulesStore) AddClosedDate(ctx context.Context, date time.Time) error {
    if s.rdb == nil {
        return nil
    }
    key := keyClosedDate + date.Format("2006-01-02")
    ttl := time.Until(date.AddDate(0, 0, 2))
    if ttl <= 0 {
        ttl = 24 * time.Hour
    }
    s.invalidate(key)
    return s.rdb.Set(ctx, key, "1", ttl).Err()
}

// RemoveClosedDate clears a closure day.
func (s *RulesStore) RemoveClosedDate(ctx context.Context, date time.Time) error {
    if s.rdb == nil {
        return nil
    }
    key := keyClosedDate + date.Format("2006-01-02")
    s.invalidate(key)
    return s.rdb.Del(ctx, key).Err()
}

// SetHours overrides one weekday class's window with "HH:MM" strings.
func (s *RulesStore) SetHours(ctx context.Context, weekend bool, open, close string) error {
    if s.rdb == nil {
        return nil
    }
    if _, err := model.ParseClock(open); err != nil {
        return err
    }
    if _, err := model.ParseClock(close); err != nil {
        return err
    }
    openKey, closeKey := keyWeekdayOpen, keyWeekdayClose
    if weekend {
        openKey, closeKey = keyWeekendOpen, keyWeekendClose
    }
    s.invalidate(openKey)
    s.invalidate(closeKey)
    if err := s.rdb.Set(ctx, openKey, open, 0).Err(); err != nil {
        return err
    }
    return s.rdb.Set(ctx, closeKey, close, 0).Err()
}

func (s *RulesStore) invalidate(key string) {
    s.mu.Lock()
    delete(s.cached, key)
    s.mu.Unlock()
}
