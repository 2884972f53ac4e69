package booking

import (
    "time"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// BlockRule marks one room as unbookable with a user-facing reason.
type BlockRule struct {
    RoomType int
    RoomNo   int
    Reason   string
}

// BlockPolicy is the standing room-block configuration: rooms blocked
// every day and rooms blocked on particular weekdays.  A match blocks the
// whole room for the whole day; time-of-day is not considered here, that
// is the overlap resolver's job.
type BlockPolicy struct {
    Always   []BlockRule
    Weekdays map[time.Weekday][]BlockRule
}

// DefaultBlockPolicy returns the facility's current block configuration.
func DefaultBlockPolicy() BlockPolicy {
    return BlockPolicy{
        Always: []BlockRule{
            {RoomType: model.RoomTypeStudy, RoomNo: 5, Reason: "reserved for staff"},
            {RoomType: model.RoomTypeStudy, RoomNo: 6, Reason: "out of service"},
            {RoomType: model.RoomTypeStudy, RoomNo: 8, Reason: "out of service"},
        },
        Weekdays: map[time.Weekday][]BlockRule{},
    }
}

// RoomAvailable reports whether the room may be booked at all on the given
// date.  When blocked it returns false and the rule's reason.  The check
// is a pure function over the policy and the date's weekday.
func (p BlockPolicy) RoomAvailable(roomType, roomNo int, date time.Time) (bool, string) {
    for _, rule := range p.Always {
        if rule.RoomType == roomType && rule.RoomNo == roomNo {
            return false, rule.Reason
        }
    }
    for _, rule := range p.Weekdays[date.Weekday()] {
        if rule.RoomType == roomType && rule.RoomNo == roomNo {
            return false, rule.Reason
        }
    }
    return true, ""
}
