package model

import "time"

// ReservationStatus is the lifecycle state of a room booking.  The numeric
// values are stable wire/storage codes.
type ReservationStatus int

// Reservation lifecycle states.  TEMPORARY rows are ten-minute holds that
// must be confirmed before they become bookings; CANCELED rows are kept for
// audit with the cancellation reason; BLOCKED rows are generated by the
// recurring block schedule and never reachable from user actions.
const (
    StatusTemporary ReservationStatus = 100
    StatusConfirmed ReservationStatus = 200
    StatusCanceled  ReservationStatus = 300
    StatusBlocked   ReservationStatus = 400
)

// HoldTTL is how long a temporary reservation stays confirmable.
const HoldTTL = 10 * time.Minute

// Reservation records a booking of one room for one time slot on one date.
// A reservation is "live" while it is temporary, confirmed or blocked;
// cancellation keeps the row (soft delete) and records why in Reason, so
// that "is canceled" and "why canceled" stay separate concerns.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room being booked.
//  UserID     – user who owns the booking.
//  Status     – lifecycle state, see ReservationStatus.
//  PeopleNo   – party size stated at booking time.
//  BookDate   – calendar day of the booking (time part ignored).
//  Slot       – minute-of-day interval booked.
//  Department – department metadata set at confirmation (nullable).
//  Purpose    – free-text purpose set at confirmation (nullable).
//  Object     – free-text objective set at confirmation (nullable).
//  Reason     – cancellation reason; nil while the reservation is live.
//  CreatedAt  – creation timestamp, drives hold expiry.
type Reservation struct {
    ID         uint64            // room_books.id
    RoomID     uint64            // room_books.room_id
    UserID     uint64            // room_books.user_id
    Status     ReservationStatus // room_books.status
    PeopleNo   int               // room_books.people_no
    BookDate   time.Time         // room_books.book_date
    Slot       TimeSlot          // room_books.start_minute / end_minute
    Department *string           // room_books.department (nullable)
    Purpose    *string           // room_books.purpose (nullable)
    Object     *string           // room_books.obj (nullable)
    Reason     *string           // room_books.reason (nullable)
    CreatedAt  time.Time         // room_books.created_at
}

// Live reports whether the reservation still occupies its slot for overlap
// purposes.  Blocked rows count as live; canceled rows do not.
func (r *Reservation) Live() bool {
    return r.Status != StatusCanceled && r.Reason == nil
}

// HoldExpired reports whether a temporary reservation's confirmation
// window has closed at the given instant.  Confirming at exactly
// CreatedAt+HoldTTL is already too late.
func (r *Reservation) HoldExpired(now time.Time) bool {
    return !now.Before(r.CreatedAt.Add(HoldTTL))
}
