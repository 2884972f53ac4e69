package model

import "time"

// Room type codes as configured by the facility.  The numeric values match
// the ones the kiosk and chat-bot clients send.
const (
    RoomTypeStudy      = 1
    RoomTypeSeminar    = 2
    RoomTypeConference = 3
)

// Room is a bookable study room.  Rooms are immutable reference data owned
// by the facility configuration; the combination of Type and No identifies
// a room to users while ID is the database key.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name shown on timetables and receipts.
//  Type      – room category (study, seminar, conference).
//  No        – room number within its category.
//  CreatedAt – timestamp when the room was registered.
type Room struct {
    ID        uint64    // rooms.id
    Name      string    // rooms.name
    Type      int       // rooms.type
    No        int       // rooms.no
    CreatedAt time.Time // rooms.created_at
}
