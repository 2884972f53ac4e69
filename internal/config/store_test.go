package config

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRulesStoreDefaultsWithoutRedis(t *testing.T) {
    s := NewRulesStore(nil, RuleDefaults{
        WeekdayOpen:  690,  // 11:30
        WeekdayClose: 1320, // 22:00
        WeekendOpen:  600,  // 10:00
        WeekendClose: 1200, // 20:00
    })
    ctx := context.Background()

    assert.False(t, s.CafeClosed(ctx))
    assert.False(t, s.ClosedOn(ctx, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))

    weekday := s.Hours(ctx, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) // Tuesday
    assert.Equal(t, "weekday", weekday.Label)
    assert.Equal(t, 690, weekday.Open)
    assert.Equal(t, 1320, weekday.Close)

    weekend := s.Hours(ctx, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)) // Saturday
    assert.Equal(t, "weekend", weekend.Label)
    assert.Equal(t, 600, weekend.Open)
    assert.Equal(t, 1200, weekend.Close)
}

func TestRulesStoreSettersWithoutRedis(t *testing.T) {
    s := NewRulesStore(nil, LoadRuleDefaults())
    ctx := context.Background()

    // Setters degrade to no-ops without Redis; they must not panic or
    // error, since the rules handler is still mounted.
    require.NoError(t, s.SetCafeClosed(ctx, true))
    require.NoError(t, s.AddClosedDate(ctx, time.Now()))
    require.NoError(t, s.RemoveClosedDate(ctx, time.Now()))
    require.NoError(t, s.SetHours(ctx, false, "09:00", "18:00"))

    assert.False(t, s.CafeClosed(ctx))
}

func TestLoadRuleDefaults(t *testing.T) {
    d := LoadRuleDefaults()
    assert.Equal(t, 690, d.WeekdayOpen)
    assert.Equal(t, 1320, d.WeekdayClose)
    assert.Equal(t, 690, d.WeekendOpen)
    assert.Equal(t, 1320, d.WeekendClose)
}
