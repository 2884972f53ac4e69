package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseTimeSlot(t *testing.T) {
    slot, err := ParseTimeSlot("10:00", "11:30")
    require.NoError(t, err)
    assert.Equal(t, 600, slot.Start)
    assert.Equal(t, 690, slot.End)

    // Seconds are accepted and ignored.
    slot, err = ParseTimeSlot("09:15:30", "10:00:00")
    require.NoError(t, err)
    assert.Equal(t, 555, slot.Start)
}

func TestParseTimeSlotRejects(t *testing.T) {
    cases := []struct {
        name       string
        start, end string
    }{
        {"empty", "", ""},
        {"not a clock", "noon", "13:00"},
        {"hour out of range", "24:00", "25:00"},
        {"minute out of range", "10:60", "11:00"},
        {"start equals end", "10:00", "10:00"},
        {"start after end", "12:00", "10:00"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := ParseTimeSlot(tc.start, tc.end)
            assert.Error(t, err)
        })
    }
}

func TestEndClockFullDaySentinel(t *testing.T) {
    slot := TimeSlot{Start: 0, End: MinutesPerDay}
    assert.Equal(t, "00:00", slot.StartClock())
    assert.Equal(t, "23:59", slot.EndClock())
    assert.Equal(t, "00:00-23:59", slot.String())
}

func TestOverlaps(t *testing.T) {
    base := TimeSlot{Start: 600, End: 660} // 10:00-11:00

    assert.True(t, base.Overlaps(TimeSlot{Start: 630, End: 645}))  // inside
    assert.True(t, base.Overlaps(TimeSlot{Start: 540, End: 720}))  // covers
    assert.True(t, base.Overlaps(TimeSlot{Start: 540, End: 601}))  // start edge
    assert.True(t, base.Overlaps(TimeSlot{Start: 659, End: 720}))  // end edge
    assert.False(t, base.Overlaps(TimeSlot{Start: 540, End: 600})) // adjacent before
    assert.False(t, base.Overlaps(TimeSlot{Start: 660, End: 720})) // adjacent after

    // Symmetry.
    other := TimeSlot{Start: 630, End: 700}
    assert.Equal(t, base.Overlaps(other), other.Overlaps(base))
}

func TestContains(t *testing.T) {
    outer := TimeSlot{Start: 540, End: 720}
    assert.True(t, outer.Contains(TimeSlot{Start: 600, End: 660}))
    assert.True(t, outer.Contains(outer))
    assert.False(t, outer.Contains(TimeSlot{Start: 500, End: 600}))
}
