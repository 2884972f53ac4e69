package booking

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

func live(start, end int) model.Reservation {
    return model.Reservation{
        Status: model.StatusConfirmed,
        Slot:   model.TimeSlot{Start: start, End: end},
    }
}

func TestCheckOverlapClassification(t *testing.T) {
    cases := []struct {
        name      string
        existing  model.TimeSlot
        candidate model.TimeSlot
        kind      ConflictKind
    }{
        {
            name:      "existing covers candidate",
            existing:  model.TimeSlot{Start: 600, End: 720},
            candidate: model.TimeSlot{Start: 630, End: 645},
            kind:      ConflictCovered,
        },
        {
            name:      "candidate covers existing",
            existing:  model.TimeSlot{Start: 630, End: 645},
            candidate: model.TimeSlot{Start: 540, End: 720},
            kind:      ConflictCovers,
        },
        {
            name:      "existing overlaps candidate start",
            existing:  model.TimeSlot{Start: 540, End: 630},
            candidate: model.TimeSlot{Start: 600, End: 720},
            kind:      ConflictStartEdge,
        },
        {
            name:      "existing overlaps candidate end",
            existing:  model.TimeSlot{Start: 660, End: 780},
            candidate: model.TimeSlot{Start: 600, End: 720},
            kind:      ConflictEndEdge,
        },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rows := []model.Reservation{{Status: model.StatusConfirmed, Slot: tc.existing}}
            err := CheckOverlap(rows, tc.candidate)
            require.Error(t, err)
            var conflict *ConflictError
            require.True(t, asConflict(err, &conflict))
            assert.Equal(t, tc.kind, conflict.Kind)
            assert.Equal(t, tc.existing, conflict.Existing)
            assert.Equal(t, tc.candidate, conflict.Candidate)
        })
    }
}

func TestCheckOverlapScenario(t *testing.T) {
    // Existing booking 10:00-11:00.
    rows := []model.Reservation{live(600, 660)}

    // 10:30-10:45 collides.
    assert.Error(t, CheckOverlap(rows, model.TimeSlot{Start: 630, End: 645}))
    // 09:00-12:00 collides.
    assert.Error(t, CheckOverlap(rows, model.TimeSlot{Start: 540, End: 720}))
    // 09:00-10:00 is adjacent and fine.
    assert.NoError(t, CheckOverlap(rows, model.TimeSlot{Start: 540, End: 600}))
    // 11:00-12:00 is adjacent on the other side.
    assert.NoError(t, CheckOverlap(rows, model.TimeSlot{Start: 660, End: 720}))
}

func TestCheckOverlapSkipsCanceled(t *testing.T) {
    reason := "canceled by user"
    rows := []model.Reservation{
        {Status: model.StatusCanceled, Slot: model.TimeSlot{Start: 600, End: 660}, Reason: &reason},
    }
    assert.NoError(t, CheckOverlap(rows, model.TimeSlot{Start: 600, End: 660}))
}

func TestCheckOverlapCountsBlockedAndTemporary(t *testing.T) {
    blocked := model.Reservation{Status: model.StatusBlocked, Slot: model.TimeSlot{Start: 0, End: model.MinutesPerDay}}
    temp := model.Reservation{Status: model.StatusTemporary, Slot: model.TimeSlot{Start: 600, End: 660}}

    assert.Error(t, CheckOverlap([]model.Reservation{blocked}, model.TimeSlot{Start: 540, End: 600}))
    assert.Error(t, CheckOverlap([]model.Reservation{temp}, model.TimeSlot{Start: 630, End: 700}))
}

func TestRoomAvailable(t *testing.T) {
    policy := DefaultBlockPolicy()

    date := mustDate(t, "2026-09-01")
    ok, _ := policy.RoomAvailable(model.RoomTypeStudy, 1, date)
    assert.True(t, ok)

    ok, reason := policy.RoomAvailable(model.RoomTypeStudy, 5, date)
    assert.False(t, ok)
    assert.Equal(t, "reserved for staff", reason)

    ok, reason = policy.RoomAvailable(model.RoomTypeStudy, 6, date)
    assert.False(t, ok)
    assert.Equal(t, "out of service", reason)
}
