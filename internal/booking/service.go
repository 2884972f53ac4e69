package booking

import (
    "context"
    "fmt"
    "net/http"
    "sort"
    "time"

    "github.com/hyeonwoo/studycafe-server/internal/fault"
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// BookingHorizonDays is how far ahead a non-staff member may book.
const BookingHorizonDays = 30

// NoShowGrace is how long after the booked start time an unpaid
// reservation survives before the no-show sweep removes it.
const NoShowGrace = 20 * time.Minute

// noShowSweepHour: the sweep only runs once the business day has started.
const noShowSweepHour = 9

// blockWindowDays is the rolling window the recurring block generator
// materializes.
const blockWindowDays = 31

// ReservationStore is the persistence surface the lifecycle needs.
// Get-style methods return (nil, nil) when the row does not exist.
// CreateChecked and MoveRoomChecked run their check callback against the
// room/date's live reservations inside the same transaction that mutates
// the table (the rows are read locked), so overlap validation and the
// write are effectively atomic per (room, date).
type ReservationStore interface {
    CreateChecked(ctx context.Context, r *model.Reservation, check func(live []model.Reservation) error) error
    MoveRoomChecked(ctx context.Context, id, newRoomID uint64, check func(live []model.Reservation) error) error
    LiveByRoomDate(ctx context.Context, roomID uint64, date time.Time) ([]model.Reservation, error)
    Get(ctx context.Context, id uint64) (*model.Reservation, error)
    GetLive(ctx context.Context, id uint64) (*model.Reservation, error)
    Confirm(ctx context.Context, id uint64, department, purpose, object string) error
    Cancel(ctx context.Context, id uint64, reason string) error
    Delete(ctx context.Context, id uint64) error
    ByDate(ctx context.Context, date time.Time) ([]model.Reservation, error)
    BlockExists(ctx context.Context, roomID uint64, date time.Time, slot model.TimeSlot) (bool, error)
}

// RoomStore resolves rooms.  ByType must return rooms in ascending id
// order so room selection is deterministic.
type RoomStore interface {
    ByID(ctx context.Context, id uint64) (*model.Room, error)
    ByType(ctx context.Context, roomType int) ([]model.Room, error)
    ByTypeAndNo(ctx context.Context, roomType, no int) (*model.Room, error)
}

// UserDirectory resolves requesters by user id or chat id.
type UserDirectory interface {
    ByID(ctx context.Context, id uint64) (*model.User, error)
    ByChatID(ctx context.Context, chatID int64) (*model.User, error)
}

// Ledger is the payment side of cancellation and block bookkeeping.
type Ledger interface {
    ConfirmedByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error)
    HasAnyPayment(ctx context.Context, reservationID uint64) (bool, error)
    HasWaitingPayment(ctx context.Context, reservationID uint64) (bool, error)
    RefundForCancellation(ctx context.Context, actor *model.User, res *model.Reservation, pay model.Payment, cashier string) (*model.Payment, string, error)
    TagReservationCanceled(ctx context.Context, reservationID uint64) error
    RecordBlockPayment(ctx context.Context, userID, reservationID uint64, cashier string) error
}

// Notifier queues a fire-and-forget text message to a user.  Delivery is
// best effort and never fails the calling operation.
type Notifier interface {
    Notify(ctx context.Context, user *model.User, text string)
}

// Audit appends a structured event record.
type Audit interface {
    Record(ctx context.Context, event string, userID uint64, extra any)
}

// Rules exposes the operational configuration the lifecycle consults:
// whole-facility closure, per-date closures and the open hours for a
// date's weekday class.
type Rules interface {
    CafeClosed(ctx context.Context) bool
    ClosedOn(ctx context.Context, date time.Time) bool
    Hours(ctx context.Context, date time.Time) OpenHours
}

// OpenHours is the bookable window for one weekday class.
type OpenHours struct {
    Label string // "weekday" or "weekend", used in rejection messages
    Open  int    // first bookable minute of day
    Close int    // last bookable minute of day (exclusive)
}

// Service drives the reservation state machine: temporary hold, confirm,
// cancel, room change, the no-show sweep and the recurring block
// generator.  All rule violations come back as *fault.Fault.
type Service struct {
    reservations ReservationStore
    rooms        RoomStore
    users        UserDirectory
    ledger       Ledger
    notifier     Notifier
    audit        Audit
    rules        Rules
    blocks       BlockPolicy
    locks        *KeyedLock

    // BlockSchedule drives the recurring block generator.
    BlockSchedule []BlockBooking
    // SystemUserID owns generated block reservations.
    SystemUserID uint64

    now func() time.Time
}

// BlockBooking describes one recurring room block: the room, the weekdays
// it applies to and the blocked slot.
type BlockBooking struct {
    RoomType int
    RoomNo   int
    Purpose  string
    Object   string
    Weekdays [7]bool // indexed by time.Weekday
    Slot     model.TimeSlot
}

// NewService wires a booking service.  The keyed lock and block policy
// are owned by the service; callers share the lock with the payment
// service through the Locks accessor.
func NewService(reservations ReservationStore, rooms RoomStore, users UserDirectory, ledger Ledger, notifier Notifier, audit Audit, rules Rules) *Service {
    return &Service{
        reservations: reservations,
        rooms:        rooms,
        users:        users,
        ledger:       ledger,
        notifier:     notifier,
        audit:        audit,
        rules:        rules,
        blocks:       DefaultBlockPolicy(),
        locks:        NewKeyedLock(),
        BlockSchedule: []BlockBooking{
            {
                RoomType: model.RoomTypeStudy,
                RoomNo:   5,
                Purpose:  "reserved for staff",
                Object:   "reserved for staff",
                Weekdays: [7]bool{true, true, true, true, true, true, true},
                Slot:     model.TimeSlot{Start: 0, End: model.MinutesPerDay},
            },
        },
        SystemUserID: 1,
        now:          time.Now,
    }
}

// Locks exposes the keyed lock so the payment service serializes pool
// mutations on the same instance.
func (s *Service) Locks() *KeyedLock { return s.locks }

// BindLedger attaches the payment ledger after construction.  The
// booking and payment services reference each other, so one side binds
// late; the ledger is never touched before the server starts serving.
func (s *Service) BindLedger(l Ledger) { s.ledger = l }

// PrepareRequest carries the inputs of the prepare operation.  Exactly
// one of ChatID / UserID identifies the requester; ChatID wins when both
// are set.
type PrepareRequest struct {
    ChatID     int64
    UserID     uint64
    Date       time.Time
    Slot       model.TimeSlot
    RoomType   int
    RoomNo     *int
    PeopleNo   int
    ClientName string
}

// Hold is the result of a successful prepare: a temporary reservation id
// and the instant it stops being confirmable.
type Hold struct {
    ReservationID uint64
    RoomID        uint64
    ExpiresAt     time.Time
}

// Prepare validates a booking request and creates a ten-minute temporary
// hold on the first passing room.  Validations run in a fixed order and
// fail fast; see the fault statuses for how each maps to HTTP.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*Hold, error) {
    now := s.now()

    user, err := s.resolveUser(ctx, req.ChatID, req.UserID)
    if err != nil {
        return nil, err
    }
    if user == nil {
        return nil, fault.New(http.StatusUnauthorized, "membership registration is required")
    }
    if !user.SMSVerified {
        return nil, fault.New(http.StatusForbidden, "phone number verification is required")
    }

    admin := user.Admin()

    if s.rules.CafeClosed(ctx) && !admin {
        return nil, fault.New(http.StatusForbidden, "bookings are currently closed")
    }
    if s.rules.ClosedOn(ctx, req.Date) && !admin {
        return nil, fault.Newf(http.StatusForbidden, "the cafe is closed on %s", req.Date.Format("01-02"))
    }

    hours := s.rules.Hours(ctx, req.Date)
    if req.Slot.Start < hours.Open && !admin {
        return nil, fault.Newf(http.StatusBadRequest, "%s bookings start at %s", hours.Label, model.Clock(hours.Open))
    }
    if req.Slot.End > hours.Close && !admin {
        return nil, fault.Newf(http.StatusBadRequest, "%s bookings end at %s", hours.Label, model.Clock(hours.Close))
    }

    if req.PeopleNo <= -6 && !admin {
        return nil, fault.New(http.StatusBadRequest, "invalid party size")
    }

    rooms, err := s.candidateRooms(ctx, req.RoomType, req.RoomNo)
    if err != nil {
        return nil, err
    }

    // The horizon is checked only once a free room is found: a request
    // with every room taken reports "no room available", not the
    // horizon, matching the validation order the kiosk relies on.
    onFree := func() error { return nil }
    if !user.Staff() {
        horizon := now.AddDate(0, 0, BookingHorizonDays)
        if req.Date.After(horizon) {
            onFree = func() error {
                return fault.Newf(http.StatusForbidden, "bookings are limited to %d days ahead", BookingHorizonDays)
            }
        }
    }

    hold, err := s.holdFirstFreeRoom(ctx, rooms, req, user, now, onFree)
    if err != nil {
        return nil, err
    }

    s.audit.Record(ctx, "book.prepare", user.ID, map[string]any{
        "book_id": hold.ReservationID,
        "room_id": hold.RoomID,
        "date":    req.Date.Format("2006-01-02"),
        "slot":    req.Slot.String(),
        "client":  req.ClientName,
    })
    return hold, nil
}

// holdFirstFreeRoom walks the candidate rooms in ascending id order and
// creates the temporary hold on the first one that is neither blocked nor
// overlapping.  onFree runs after the overlap check passes and before
// the insert, so per-room conflicts still fall through to the next room
// while a free-room rejection aborts without writing.  The room's
// (room, date) key is held from the overlap check through the insert.
func (s *Service) holdFirstFreeRoom(ctx context.Context, rooms []model.Room, req PrepareRequest, user *model.User, now time.Time, onFree func() error) (*Hold, error) {
    for _, room := range rooms {
        if ok, _ := s.blocks.RoomAvailable(room.Type, room.No, req.Date); !ok {
            continue
        }

        release := s.locks.Acquire(RoomDateKey(room.ID, req.Date))
        res := &model.Reservation{
            RoomID:    room.ID,
            UserID:    user.ID,
            Status:    model.StatusTemporary,
            PeopleNo:  req.PeopleNo,
            BookDate:  req.Date,
            Slot:      req.Slot,
            CreatedAt: now,
        }
        err := s.reservations.CreateChecked(ctx, res, func(live []model.Reservation) error {
            if err := CheckOverlap(live, req.Slot); err != nil {
                return err
            }
            return onFree()
        })
        release()

        if err == nil {
            return &Hold{
                ReservationID: res.ID,
                RoomID:        room.ID,
                ExpiresAt:     now.Add(model.HoldTTL),
            }, nil
        }
        var conflict *ConflictError
        if asConflict(err, &conflict) {
            continue // try the next room
        }
        return nil, err
    }
    return nil, fault.New(http.StatusForbidden, "booking is not possible: no room available")
}

func asConflict(err error, target **ConflictError) bool {
    c, ok := err.(*ConflictError)
    if ok {
        *target = c
    }
    return ok
}

// candidateRooms resolves the rooms to try, optionally narrowed to one
// explicit room number, sorted ascending by id.
func (s *Service) candidateRooms(ctx context.Context, roomType int, roomNo *int) ([]model.Room, error) {
    rooms, err := s.rooms.ByType(ctx, roomType)
    if err != nil {
        return nil, err
    }
    if len(rooms) == 0 {
        return nil, fault.New(http.StatusBadRequest, "invalid room type")
    }
    if roomNo != nil {
        narrowed := rooms[:0]
        for _, r := range rooms {
            if r.No == *roomNo {
                narrowed = append(narrowed, r)
            }
        }
        rooms = narrowed
        if len(rooms) == 0 {
            return nil, fault.New(http.StatusForbidden, "booking is not possible: no room available")
        }
    }
    sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
    return rooms, nil
}

func (s *Service) resolveUser(ctx context.Context, chatID int64, userID uint64) (*model.User, error) {
    if chatID != 0 {
        return s.users.ByChatID(ctx, chatID)
    }
    if userID != 0 {
        return s.users.ByID(ctx, userID)
    }
    return nil, fault.New(http.StatusBadRequest, "chat_id or user_id is required")
}

// ConfirmRequest carries the metadata recorded at confirmation.
type ConfirmRequest struct {
    HoldID     uint64
    Department string
    Purpose    string
    Object     string
}

// Confirm finalizes a temporary hold within its ten-minute window.  An
// expired hold is deleted and rejected.  Confirmations outside business
// hours queue a contact-the-desk notification for non-admin members.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*model.Reservation, error) {
    now := s.now()

    res, err := s.reservations.GetLive(ctx, req.HoldID)
    if err != nil {
        return nil, err
    }
    if res == nil || res.Status != model.StatusTemporary {
        return nil, fault.New(http.StatusForbidden, "booking is not possible: prepare a hold first")
    }
    if res.HoldExpired(now) {
        if err := s.reservations.Delete(ctx, res.ID); err != nil {
            return nil, err
        }
        return nil, fault.New(http.StatusForbidden, "booking is not possible: the 10 minute hold expired")
    }

    if err := s.reservations.Confirm(ctx, res.ID, req.Department, req.Purpose, req.Object); err != nil {
        return nil, err
    }
    res.Status = model.StatusConfirmed
    res.Department = &req.Department
    res.Purpose = &req.Purpose
    res.Object = &req.Object

    user, err := s.users.ByID(ctx, res.UserID)
    if err != nil {
        return nil, err
    }
    if user != nil && !user.Admin() {
        hours := s.rules.Hours(ctx, res.BookDate)
        if res.Slot.Start < hours.Open || res.Slot.End > hours.Close {
            s.notifier.Notify(ctx, user, "your booking is outside business hours, please contact the desk")
        }
    }

    s.audit.Record(ctx, "book.confirm", res.UserID, map[string]any{"book_id": res.ID})
    return res, nil
}

// Immediately runs prepare and confirm as one operation with the same
// request payload.  A prepare failure surfaces unchanged.
func (s *Service) Immediately(ctx context.Context, req PrepareRequest, department, purpose, object string) (*model.Reservation, error) {
    hold, err := s.Prepare(ctx, req)
    if err != nil {
        return nil, err
    }
    return s.Confirm(ctx, ConfirmRequest{
        HoldID:     hold.ReservationID,
        Department: department,
        Purpose:    purpose,
        Object:     object,
    })
}

// CancelResult reports the outcome of a cancellation: the canceled
// reservation, the appended audit reason and the refund row if one was
// created.
type CancelResult struct {
    Reservation *model.Reservation
    Reason      string
    Refund      *model.Payment
}

// Cancel withdraws a reservation, routing any confirmed payment through
// the matching refund strategy.  Members may only cancel their own
// bookings and only until one day after the booked date; staff bypass
// both restrictions.
func (s *Service) Cancel(ctx context.Context, reservationID uint64, actor *model.User, cashier string) (*CancelResult, error) {
    now := s.now()

    res, err := s.reservations.Get(ctx, reservationID)
    if err != nil {
        return nil, err
    }
    if res == nil {
        return nil, fault.New(http.StatusNotFound, "no such booking")
    }
    if !actor.Staff() {
        if res.BookDate.AddDate(0, 0, 1).Before(now) {
            return nil, fault.New(http.StatusForbidden, "past bookings cannot be canceled")
        }
        if res.UserID != actor.ID {
            return nil, fault.New(http.StatusForbidden, "only your own bookings can be canceled")
        }
    }

    pays, err := s.ledger.ConfirmedByReservation(ctx, res.ID)
    if err != nil {
        return nil, err
    }

    reason := "[" + now.Format("2006-01-02 15:04:05") + "] "
    var refund *model.Payment

    switch {
    case len(pays) == 0:
        waiting, err := s.ledger.HasWaitingPayment(ctx, res.ID)
        if err != nil {
            return nil, err
        }
        if waiting {
            return nil, fault.New(http.StatusForbidden, "a payment is pending for this booking, retry shortly")
        }
        reason += "canceled by user."

    case len(pays) >= 2 && pays[0].Paid == pays[len(pays)-1].Paid:
        // A matching charge/refund pair is already on record.
        reason += "canceled by user (a refund is already recorded)."

    case len(pays) == 1:
        var fragment string
        refund, fragment, err = s.ledger.RefundForCancellation(ctx, actor, res, pays[0], cashier)
        if err != nil {
            return nil, err
        }
        reason += "canceled by user " + fragment
    default:
        return nil, fault.New(http.StatusForbidden, "payment record invalid, contact an administrator")
    }

    if err := s.reservations.Cancel(ctx, res.ID, reason); err != nil {
        return nil, err
    }
    res.Status = model.StatusCanceled
    res.Reason = &reason

    s.audit.Record(ctx, "book.cancel.success", actor.ID, map[string]any{
        "book_id":       res.ID,
        "cancel_reason": reason,
    })
    return &CancelResult{Reservation: res, Reason: reason, Refund: refund}, nil
}

// AdminDelete soft-cancels any reservation regardless of deadlines and
// tags its payment so ledger reports can tell canceled charges apart.
func (s *Service) AdminDelete(ctx context.Context, reservationID uint64, actor *model.User) error {
    if !actor.Staff() {
        return fault.New(http.StatusForbidden, "administrator permission required")
    }
    res, err := s.reservations.Get(ctx, reservationID)
    if err != nil {
        return err
    }
    if res == nil {
        return fault.New(http.StatusNotFound, "no such booking")
    }
    if err := s.reservations.Cancel(ctx, res.ID, "Admin"); err != nil {
        return err
    }
    if err := s.ledger.TagReservationCanceled(ctx, res.ID); err != nil {
        return err
    }
    s.audit.Record(ctx, "admin.book.delete", actor.ID, map[string]any{
        "book_id": res.ID,
        "user_id": res.UserID,
    })
    return nil
}

// SelfDeleteHour is the same-day cutoff for member-initiated deletion
// from non-web clients.
const SelfDeleteHour = 4

// Delete is the member-facing deletion variant: past dates are always
// rejected, same-day deletion is rejected after SelfDeleteHour for
// non-web clients, and a commander with staff grade bypasses both.
func (s *Service) Delete(ctx context.Context, reservationID uint64, commander *model.User, reason, clientName string) error {
    now := s.now()

    res, err := s.reservations.Get(ctx, reservationID)
    if err != nil {
        return err
    }
    if res == nil {
        return fault.New(http.StatusNotFound, "no such booking")
    }

    admin := commander != nil && commander.Staff()
    if !admin {
        today := now.Truncate(24 * time.Hour)
        day := res.BookDate.Truncate(24 * time.Hour)
        if day.Before(today) {
            return fault.New(http.StatusForbidden, "the cancellation deadline has passed")
        }
        if day.Equal(today) && now.Hour() >= SelfDeleteHour && !isWebClient(clientName) {
            return fault.New(http.StatusForbidden, "same-day bookings cannot be canceled")
        }
    }

    if err := s.reservations.Cancel(ctx, res.ID, reason); err != nil {
        return err
    }
    event := "user.book.cancel"
    var actorID uint64 = res.UserID
    if admin {
        event = "admin.book.delete"
        actorID = commander.ID
    }
    s.audit.Record(ctx, event, actorID, map[string]any{
        "book_id": res.ID,
        "reason":  reason,
    })
    return nil
}

func isWebClient(clientName string) bool {
    return len(clientName) >= 11 && clientName[:11] == "Mozilla/5.0"
}

// ChangeRoom moves a confirmed reservation to another room after a fresh
// overlap check against the target room's live reservations.  On conflict
// nothing is mutated.
func (s *Service) ChangeRoom(ctx context.Context, reservationID uint64, roomType, roomNo int) (*model.Room, error) {
    res, err := s.reservations.GetLive(ctx, reservationID)
    if err != nil {
        return nil, err
    }
    if res == nil {
        return nil, fault.New(http.StatusNotFound, "no such booking")
    }
    room, err := s.rooms.ByTypeAndNo(ctx, roomType, roomNo)
    if err != nil {
        return nil, err
    }
    if room == nil {
        return nil, fault.New(http.StatusBadRequest, "invalid room")
    }

    release := s.locks.Acquire(RoomDateKey(room.ID, res.BookDate))
    defer release()

    err = s.reservations.MoveRoomChecked(ctx, res.ID, room.ID, func(live []model.Reservation) error {
        others := live[:0]
        for _, rb := range live {
            if rb.ID != res.ID {
                others = append(others, rb)
            }
        }
        return CheckOverlap(others, res.Slot)
    })
    if err != nil {
        var conflict *ConflictError
        if asConflict(err, &conflict) {
            return nil, fault.New(http.StatusBadRequest, "the room cannot be changed: "+conflict.Error())
        }
        return nil, err
    }

    s.audit.Record(ctx, "book.change_room", res.UserID, map[string]any{
        "book_id": res.ID,
        "room_id": room.ID,
    })
    return room, nil
}

// RemoveNoShows hard-deletes today's unpaid reservations whose start time
// is more than NoShowGrace in the past, and notifies the owners.  The
// sweep is idempotent and only runs after the business day has started.
// This is the one place a reservation row is removed instead of
// soft-canceled: the deleted snapshot goes to the audit log instead.
func (s *Service) RemoveNoShows(ctx context.Context) error {
    now := s.now()
    if now.Hour() < noShowSweepHour {
        return nil
    }
    limit := now.Add(-NoShowGrace)
    limitMinute := limit.Hour()*60 + limit.Minute()

    books, err := s.reservations.ByDate(ctx, now)
    if err != nil {
        return err
    }
    for i := range books {
        book := &books[i]
        if !book.Live() || book.Slot.Start >= limitMinute {
            continue
        }
        paid, err := s.ledger.HasAnyPayment(ctx, book.ID)
        if err != nil {
            return err
        }
        if paid {
            continue
        }

        s.audit.Record(ctx, "book.del.record", book.UserID, map[string]any{
            "book_id": book.ID,
            "room_id": book.RoomID,
            "date":    book.BookDate.Format("2006-01-02"),
            "slot":    book.Slot.String(),
            "status":  int(book.Status),
        })
        if err := s.reservations.Delete(ctx, book.ID); err != nil {
            return err
        }
        if user, err := s.users.ByID(ctx, book.UserID); err == nil && user != nil {
            s.notifier.Notify(ctx, user, fmt.Sprintf("your booking %d was canceled as a no-show", book.ID))
        }
    }
    return nil
}

// MaterializeBlocks writes the recurring block schedule into the
// reservation table for the next blockWindowDays days.  Existing block
// rows are left alone, so the generator is safe to run on every read
// path.  Blocks count as ordinary live reservations for overlap purposes.
func (s *Service) MaterializeBlocks(ctx context.Context) error {
    now := s.now()
    for i := 0; i < blockWindowDays; i++ {
        date := now.AddDate(0, 0, i)
        for _, block := range s.BlockSchedule {
            if !block.Weekdays[int(date.Weekday())] {
                continue
            }
            room, err := s.rooms.ByTypeAndNo(ctx, block.RoomType, block.RoomNo)
            if err != nil {
                return err
            }
            if room == nil {
                continue
            }
            exists, err := s.reservations.BlockExists(ctx, room.ID, date, block.Slot)
            if err != nil {
                return err
            }
            if exists {
                continue
            }
            purpose := block.Purpose
            object := block.Object
            res := &model.Reservation{
                RoomID:    room.ID,
                UserID:    s.SystemUserID,
                Status:    model.StatusBlocked,
                PeopleNo:  1,
                BookDate:  date,
                Slot:      block.Slot,
                Purpose:   &purpose,
                Object:    &object,
                CreatedAt: now,
            }
            release := s.locks.Acquire(RoomDateKey(room.ID, date))
            err = s.reservations.CreateChecked(ctx, res, func([]model.Reservation) error {
                // Blocks are injected over whatever exists; user bookings
                // made before the block was scheduled stay valid.
                return nil
            })
            release()
            if err != nil {
                return err
            }
            if err := s.ledger.RecordBlockPayment(ctx, s.SystemUserID, res.ID, "server.block"); err != nil {
                return err
            }
        }
    }
    return nil
}
