package booking

import (
    "context"
    "net/http"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hyeonwoo/studycafe-server/internal/fault"
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
    t.Helper()
    d, err := time.Parse("2006-01-02", s)
    require.NoError(t, err)
    return d
}

// ----- in-memory fakes -----

// fakeReservations guards its rows with a mutex so the concurrency
// tests can hammer it from several goroutines.
type fakeReservations struct {
    mu     sync.Mutex
    nextID uint64
    rows   map[uint64]*model.Reservation
}

func newFakeReservations() *fakeReservations {
    return &fakeReservations{nextID: 1, rows: map[uint64]*model.Reservation{}}
}

func (f *fakeReservations) liveFor(roomID uint64, date time.Time) []model.Reservation {
    var out []model.Reservation
    for _, r := range f.rows {
        if r.RoomID == roomID && sameDay(r.BookDate, date) && r.Live() {
            out = append(out, *r)
        }
    }
    return out
}

func sameDay(a, b time.Time) bool {
    return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (f *fakeReservations) CreateChecked(_ context.Context, r *model.Reservation, check func([]model.Reservation) error) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if err := check(f.liveFor(r.RoomID, r.BookDate)); err != nil {
        return err
    }
    r.ID = f.nextID
    f.nextID++
    cp := *r
    f.rows[r.ID] = &cp
    return nil
}

func (f *fakeReservations) MoveRoomChecked(_ context.Context, id, newRoomID uint64, check func([]model.Reservation) error) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[id]
    if !ok {
        return nil
    }
    if err := check(f.liveFor(newRoomID, r.BookDate)); err != nil {
        return err
    }
    r.RoomID = newRoomID
    return nil
}

func (f *fakeReservations) LiveByRoomDate(_ context.Context, roomID uint64, date time.Time) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.liveFor(roomID, date), nil
}

func (f *fakeReservations) Get(_ context.Context, id uint64) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[id]
    if !ok {
        return nil, nil
    }
    cp := *r
    return &cp, nil
}

func (f *fakeReservations) GetLive(_ context.Context, id uint64) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[id]
    if !ok || !r.Live() {
        return nil, nil
    }
    cp := *r
    return &cp, nil
}

func (f *fakeReservations) Confirm(_ context.Context, id uint64, department, purpose, object string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    r := f.rows[id]
    r.Status = model.StatusConfirmed
    r.Department = &department
    r.Purpose = &purpose
    r.Object = &object
    return nil
}

func (f *fakeReservations) Cancel(_ context.Context, id uint64, reason string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    r := f.rows[id]
    r.Status = model.StatusCanceled
    r.Reason = &reason
    return nil
}

func (f *fakeReservations) Delete(_ context.Context, id uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    delete(f.rows, id)
    return nil
}

func (f *fakeReservations) ByDate(_ context.Context, date time.Time) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.rows {
        if sameDay(r.BookDate, date) {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (f *fakeReservations) BlockExists(_ context.Context, roomID uint64, date time.Time, slot model.TimeSlot) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, r := range f.rows {
        if r.RoomID == roomID && sameDay(r.BookDate, date) && r.Status == model.StatusBlocked && r.Slot == slot {
            return true, nil
        }
    }
    return false, nil
}

type fakeRooms struct{ rooms []model.Room }

func (f *fakeRooms) ByID(_ context.Context, id uint64) (*model.Room, error) {
    for i := range f.rooms {
        if f.rooms[i].ID == id {
            return &f.rooms[i], nil
        }
    }
    return nil, nil
}

func (f *fakeRooms) ByType(_ context.Context, roomType int) ([]model.Room, error) {
    var out []model.Room
    for _, r := range f.rooms {
        if r.Type == roomType {
            out = append(out, r)
        }
    }
    return out, nil
}

func (f *fakeRooms) ByTypeAndNo(_ context.Context, roomType, no int) (*model.Room, error) {
    for i := range f.rooms {
        if f.rooms[i].Type == roomType && f.rooms[i].No == no {
            return &f.rooms[i], nil
        }
    }
    return nil, nil
}

type fakeUsers struct{ users []model.User }

func (f *fakeUsers) ByID(_ context.Context, id uint64) (*model.User, error) {
    for i := range f.users {
        if f.users[i].ID == id {
            return &f.users[i], nil
        }
    }
    return nil, nil
}

func (f *fakeUsers) ByChatID(_ context.Context, chatID int64) (*model.User, error) {
    for i := range f.users {
        if f.users[i].ChatID == chatID {
            return &f.users[i], nil
        }
    }
    return nil, nil
}

type fakeLedger struct {
    confirmed map[uint64][]model.Payment
    waiting   map[uint64]bool
    any       map[uint64]bool

    refund        *model.Payment
    fragment      string
    refundCalled  bool
    taggedID      uint64
    blockPayments []uint64
}

func newFakeLedger() *fakeLedger {
    return &fakeLedger{
        confirmed: map[uint64][]model.Payment{},
        waiting:   map[uint64]bool{},
        any:       map[uint64]bool{},
    }
}

func (f *fakeLedger) ConfirmedByReservation(_ context.Context, id uint64) ([]model.Payment, error) {
    return f.confirmed[id], nil
}

func (f *fakeLedger) HasAnyPayment(_ context.Context, id uint64) (bool, error) {
    return f.any[id] || len(f.confirmed[id]) > 0, nil
}

func (f *fakeLedger) HasWaitingPayment(_ context.Context, id uint64) (bool, error) {
    return f.waiting[id], nil
}

func (f *fakeLedger) RefundForCancellation(_ context.Context, _ *model.User, _ *model.Reservation, _ model.Payment, _ string) (*model.Payment, string, error) {
    f.refundCalled = true
    return f.refund, f.fragment, nil
}

func (f *fakeLedger) TagReservationCanceled(_ context.Context, id uint64) error {
    f.taggedID = id
    return nil
}

func (f *fakeLedger) RecordBlockPayment(_ context.Context, _ uint64, reservationID uint64, _ string) error {
    f.blockPayments = append(f.blockPayments, reservationID)
    return nil
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) Notify(_ context.Context, _ *model.User, text string) {
    f.sent = append(f.sent, text)
}

type fakeAudit struct {
    mu     sync.Mutex
    events []string
}

func (f *fakeAudit) Record(_ context.Context, event string, _ uint64, _ any) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.events = append(f.events, event)
}

type fakeRules struct {
    cafeClosed bool
    closedOn   map[string]bool
    hours      OpenHours
}

func newFakeRules() *fakeRules {
    return &fakeRules{
        closedOn: map[string]bool{},
        hours:    OpenHours{Label: "weekday", Open: 690, Close: 1320}, // 11:30-22:00
    }
}

func (f *fakeRules) CafeClosed(context.Context) bool { return f.cafeClosed }
func (f *fakeRules) ClosedOn(_ context.Context, date time.Time) bool {
    return f.closedOn[date.Format("2006-01-02")]
}
func (f *fakeRules) Hours(context.Context, time.Time) OpenHours { return f.hours }

// ----- fixture -----

type fixture struct {
    svc          *Service
    reservations *fakeReservations
    rooms        *fakeRooms
    users        *fakeUsers
    ledger       *fakeLedger
    notifier     *fakeNotifier
    audit        *fakeAudit
    rules        *fakeRules
    now          time.Time
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    f := &fixture{
        reservations: newFakeReservations(),
        rooms: &fakeRooms{rooms: []model.Room{
            {ID: 1, Name: "Study 1", Type: model.RoomTypeStudy, No: 1},
            {ID: 2, Name: "Study 2", Type: model.RoomTypeStudy, No: 2},
            {ID: 5, Name: "Study 5", Type: model.RoomTypeStudy, No: 5},
            {ID: 10, Name: "Seminar 1", Type: model.RoomTypeSeminar, No: 1},
        }},
        users: &fakeUsers{users: []model.User{
            {ID: 1, Username: "system", Grade: model.GradeAdmin, SMSVerified: true},
            {ID: 2, ChatID: 200, Username: "member", Department: "downtown", Grade: model.GradeNormal, SMSVerified: true},
            {ID: 3, ChatID: 300, Username: "unverified", Grade: model.GradeNormal},
            {ID: 4, Username: "manager", Grade: model.GradeManager, SMSVerified: true},
        }},
        ledger:   newFakeLedger(),
        notifier: &fakeNotifier{},
        audit:    &fakeAudit{},
        rules:    newFakeRules(),
        now:      time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), // Tuesday noon
    }
    f.svc = NewService(f.reservations, f.rooms, f.users, f.ledger, f.notifier, f.audit, f.rules)
    f.svc.now = func() time.Time { return f.now }
    return f
}

func (f *fixture) prepareReq() PrepareRequest {
    return PrepareRequest{
        UserID:   2,
        Date:     time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
        Slot:     model.TimeSlot{Start: 720, End: 780}, // 12:00-13:00
        RoomType: model.RoomTypeStudy,
        PeopleNo: 2,
    }
}

func faultStatus(t *testing.T, err error, want int) {
    t.Helper()
    require.Error(t, err)
    assert.Equal(t, want, fault.StatusOf(err))
}

// ----- prepare -----

func TestPreparePicksLowestFreeRoom(t *testing.T) {
    f := newFixture(t)

    hold, err := f.svc.Prepare(context.Background(), f.prepareReq())
    require.NoError(t, err)
    assert.Equal(t, uint64(1), hold.RoomID)
    assert.Equal(t, f.now.Add(model.HoldTTL), hold.ExpiresAt)

    res, _ := f.reservations.Get(context.Background(), hold.ReservationID)
    require.NotNil(t, res)
    assert.Equal(t, model.StatusTemporary, res.Status)
}

func TestPrepareFallsThroughOnConflict(t *testing.T) {
    f := newFixture(t)

    first, err := f.svc.Prepare(context.Background(), f.prepareReq())
    require.NoError(t, err)
    assert.Equal(t, uint64(1), first.RoomID)

    second, err := f.svc.Prepare(context.Background(), PrepareRequest{
        ChatID:   200,
        Date:     mustDate(t, "2026-09-02"),
        Slot:     model.TimeSlot{Start: 720, End: 780},
        RoomType: model.RoomTypeStudy,
        PeopleNo: 2,
    })
    require.NoError(t, err)
    assert.Equal(t, uint64(2), second.RoomID)
}

func TestPrepareSkipsBlockedRoom(t *testing.T) {
    f := newFixture(t)
    // Only room 5 (policy-blocked) matches this explicit number.
    no := 5
    req := f.prepareReq()
    req.RoomNo = &no

    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusForbidden)
}

func TestPrepareIdentity(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.UserID = 999
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusUnauthorized)

    req = f.prepareReq()
    req.UserID = 3 // not SMS verified
    _, err = f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusForbidden)

    req = f.prepareReq()
    req.UserID = 0
    _, err = f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusBadRequest)
}

func TestPrepareClosures(t *testing.T) {
    f := newFixture(t)
    f.rules.cafeClosed = true
    _, err := f.svc.Prepare(context.Background(), f.prepareReq())
    faultStatus(t, err, http.StatusForbidden)

    f = newFixture(t)
    f.rules.closedOn["2026-09-02"] = true
    _, err = f.svc.Prepare(context.Background(), f.prepareReq())
    faultStatus(t, err, http.StatusForbidden)
    assert.Contains(t, err.Error(), "09-02")
}

func TestPrepareBusinessHours(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.Slot = model.TimeSlot{Start: 600, End: 780} // starts 10:00, before open
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusBadRequest)
    assert.Contains(t, err.Error(), "weekday bookings start at 11:30")

    req = f.prepareReq()
    req.Slot = model.TimeSlot{Start: 1260, End: 1380} // ends 23:00, after close
    _, err = f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusBadRequest)
    assert.Contains(t, err.Error(), "weekday bookings end at 22:00")
}

func TestPrepareAdminBypassesHoursAndClosure(t *testing.T) {
    f := newFixture(t)
    f.rules.cafeClosed = true

    req := f.prepareReq()
    req.UserID = 1 // admin
    req.Slot = model.TimeSlot{Start: 300, End: 360} // 05:00-06:00
    _, err := f.svc.Prepare(context.Background(), req)
    assert.NoError(t, err)
}

func TestPrepareHorizon(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.Date = f.now.AddDate(0, 0, BookingHorizonDays+1)
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusForbidden)

    // Staff may book past the horizon.
    req.UserID = 4
    _, err = f.svc.Prepare(context.Background(), req)
    assert.NoError(t, err)
}

func TestPrepareHorizonAfterRoomSearch(t *testing.T) {
    f := newFixture(t)
    date := f.now.AddDate(0, 0, BookingHorizonDays+1)

    // Fill every bookable study room on the target date; the rejection
    // must then name the missing room, not the horizon.
    for _, roomID := range []uint64{1, 2} {
        err := f.reservations.CreateChecked(context.Background(), &model.Reservation{
            RoomID:    roomID,
            UserID:    4,
            Status:    model.StatusConfirmed,
            BookDate:  date,
            Slot:      model.TimeSlot{Start: 690, End: 1320},
            CreatedAt: f.now,
        }, func([]model.Reservation) error { return nil })
        require.NoError(t, err)
    }

    req := f.prepareReq()
    req.Date = date
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusForbidden)
    assert.Contains(t, err.Error(), "no room available")
}

func TestPrepareConcurrentSameWindow(t *testing.T) {
    f := newFixture(t)
    roomNo := 1

    const writers = 8
    holds := make([]*Hold, writers)
    errs := make([]error, writers)
    var wg sync.WaitGroup
    for i := 0; i < writers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            req := f.prepareReq()
            req.RoomNo = &roomNo
            holds[i], errs[i] = f.svc.Prepare(context.Background(), req)
        }(i)
    }
    wg.Wait()

    won := 0
    for i := 0; i < writers; i++ {
        if errs[i] == nil {
            won++
            assert.Equal(t, uint64(1), holds[i].RoomID)
        } else {
            faultStatus(t, errs[i], http.StatusForbidden)
        }
    }
    assert.Equal(t, 1, won, "exactly one writer may hold the window")
}

func TestPrepareConcurrentStaggeredWindows(t *testing.T) {
    f := newFixture(t)
    roomNo := 1
    date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

    // Six writers race for windows that each overlap their neighbors;
    // whatever subset wins, the live slots must be pairwise disjoint.
    const writers = 6
    var wg sync.WaitGroup
    for i := 0; i < writers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            req := f.prepareReq()
            req.RoomNo = &roomNo
            req.Slot = model.TimeSlot{Start: 720 + 30*i, End: 780 + 30*i}
            _, _ = f.svc.Prepare(context.Background(), req)
        }(i)
    }
    wg.Wait()

    live, err := f.reservations.LiveByRoomDate(context.Background(), 1, date)
    require.NoError(t, err)
    require.NotEmpty(t, live)
    for i := range live {
        for j := i + 1; j < len(live); j++ {
            assert.False(t, live[i].Slot.Overlaps(live[j].Slot),
                "live slots %s and %s overlap", live[i].Slot, live[j].Slot)
        }
    }
}

func TestPrepareRejectsInvalidPartySize(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.PeopleNo = -6
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusBadRequest)
}

func TestPrepareInvalidRoomType(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.RoomType = 99
    _, err := f.svc.Prepare(context.Background(), req)
    faultStatus(t, err, http.StatusBadRequest)
}

// ----- confirm -----

func TestConfirmWithinWindow(t *testing.T) {
    f := newFixture(t)

    hold, err := f.svc.Prepare(context.Background(), f.prepareReq())
    require.NoError(t, err)

    f.now = f.now.Add(model.HoldTTL - time.Second)
    res, err := f.svc.Confirm(context.Background(), ConfirmRequest{
        HoldID:     hold.ReservationID,
        Department: "downtown",
        Purpose:    "study",
        Object:     "exam prep",
    })
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, res.Status)
    assert.Equal(t, "downtown", *res.Department)
}

func TestConfirmExpiredHoldIsDeleted(t *testing.T) {
    f := newFixture(t)

    hold, err := f.svc.Prepare(context.Background(), f.prepareReq())
    require.NoError(t, err)

    f.now = f.now.Add(model.HoldTTL) // exactly at the boundary: too late
    _, err = f.svc.Confirm(context.Background(), ConfirmRequest{HoldID: hold.ReservationID})
    faultStatus(t, err, http.StatusForbidden)

    res, _ := f.reservations.Get(context.Background(), hold.ReservationID)
    assert.Nil(t, res, "expired hold should be deleted")
}

func TestConfirmWithoutHold(t *testing.T) {
    f := newFixture(t)
    _, err := f.svc.Confirm(context.Background(), ConfirmRequest{HoldID: 42})
    faultStatus(t, err, http.StatusForbidden)
}

func TestImmediately(t *testing.T) {
    f := newFixture(t)

    res, err := f.svc.Immediately(context.Background(), f.prepareReq(), "downtown", "meeting", "weekly sync")
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, res.Status)
    assert.Equal(t, "meeting", *res.Purpose)
}

// ----- cancel -----

func confirmedBooking(t *testing.T, f *fixture) *model.Reservation {
    t.Helper()
    res, err := f.svc.Immediately(context.Background(), f.prepareReq(), "downtown", "study", "exam")
    require.NoError(t, err)
    return res
}

func TestCancelUnpaid(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    member, _ := f.users.ByID(context.Background(), 2)

    result, err := f.svc.Cancel(context.Background(), res.ID, member, "web")
    require.NoError(t, err)
    assert.Equal(t, model.StatusCanceled, result.Reservation.Status)
    assert.Contains(t, result.Reason, "canceled by user.")
    assert.Contains(t, result.Reason, f.now.Format("2006-01-02 15:04:05"))
    assert.Nil(t, result.Refund)
    assert.False(t, f.ledger.refundCalled)
}

func TestCancelBlockedByWaitingPayment(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    f.ledger.waiting[res.ID] = true
    member, _ := f.users.ByID(context.Background(), 2)

    _, err := f.svc.Cancel(context.Background(), res.ID, member, "web")
    faultStatus(t, err, http.StatusForbidden)
}

func TestCancelWithOnePaymentRoutesRefund(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    f.ledger.confirmed[res.ID] = []model.Payment{{ID: 7, Paid: 5000, PayType: "saved_money.d.downtown"}}
    f.ledger.refund = &model.Payment{ID: 8, Paid: 5000, PayType: "saved_money.d.refund.downtown"}
    f.ledger.fragment = "(pool refund: 5000)."
    member, _ := f.users.ByID(context.Background(), 2)

    result, err := f.svc.Cancel(context.Background(), res.ID, member, "web")
    require.NoError(t, err)
    assert.True(t, f.ledger.refundCalled)
    require.NotNil(t, result.Refund)
    assert.Equal(t, uint64(8), result.Refund.ID)
    assert.Contains(t, result.Reason, "(pool refund: 5000).")
}

func TestCancelAlreadyRefunded(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    f.ledger.confirmed[res.ID] = []model.Payment{
        {ID: 7, Paid: 5000},
        {ID: 8, Paid: 5000},
    }
    member, _ := f.users.ByID(context.Background(), 2)

    result, err := f.svc.Cancel(context.Background(), res.ID, member, "web")
    require.NoError(t, err)
    assert.False(t, f.ledger.refundCalled)
    assert.Contains(t, result.Reason, "a refund is already recorded")
}

func TestCancelOwnershipAndDeadline(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)

    other := &model.User{ID: 9, Grade: model.GradeNormal, SMSVerified: true}
    _, err := f.svc.Cancel(context.Background(), res.ID, other, "web")
    faultStatus(t, err, http.StatusForbidden)

    // One day past the booked date: too late for members.
    member, _ := f.users.ByID(context.Background(), 2)
    f.now = res.BookDate.AddDate(0, 0, 2)
    _, err = f.svc.Cancel(context.Background(), res.ID, member, "web")
    faultStatus(t, err, http.StatusForbidden)

    // Staff bypass both.
    manager, _ := f.users.ByID(context.Background(), 4)
    _, err = f.svc.Cancel(context.Background(), res.ID, manager, "desk")
    assert.NoError(t, err)
}

// ----- delete -----

func TestAdminDelete(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    manager, _ := f.users.ByID(context.Background(), 4)

    require.NoError(t, f.svc.AdminDelete(context.Background(), res.ID, manager))
    assert.Equal(t, res.ID, f.ledger.taggedID)

    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.Equal(t, model.StatusCanceled, got.Status)
    assert.Equal(t, "Admin", *got.Reason)

    member, _ := f.users.ByID(context.Background(), 2)
    err := f.svc.AdminDelete(context.Background(), res.ID, member)
    faultStatus(t, err, http.StatusForbidden)
}

func TestSelfDeleteRules(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    member, _ := f.users.ByID(context.Background(), 2)

    // Past booking cannot be deleted.
    f.now = res.BookDate.AddDate(0, 0, 3)
    err := f.svc.Delete(context.Background(), res.ID, member, "changed plans", "app/1.0")
    faultStatus(t, err, http.StatusForbidden)

    // Same-day after the cutoff hour from a non-web client is rejected.
    f.now = time.Date(res.BookDate.Year(), res.BookDate.Month(), res.BookDate.Day(), SelfDeleteHour, 30, 0, 0, time.UTC)
    err = f.svc.Delete(context.Background(), res.ID, member, "changed plans", "app/1.0")
    faultStatus(t, err, http.StatusForbidden)

    // The web console is allowed the whole day.
    err = f.svc.Delete(context.Background(), res.ID, member, "changed plans", "Mozilla/5.0 (X11; Linux)")
    assert.NoError(t, err)
}

func TestSelfDeleteStaffBypass(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)
    manager, _ := f.users.ByID(context.Background(), 4)

    f.now = res.BookDate.AddDate(0, 0, 5)
    err := f.svc.Delete(context.Background(), res.ID, manager, "cleanup", "app/1.0")
    assert.NoError(t, err)
}

// ----- change room -----

func TestChangeRoom(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)

    room, err := f.svc.ChangeRoom(context.Background(), res.ID, model.RoomTypeStudy, 2)
    require.NoError(t, err)
    assert.Equal(t, uint64(2), room.ID)

    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.Equal(t, uint64(2), got.RoomID)
}

func TestChangeRoomConflict(t *testing.T) {
    f := newFixture(t)
    res := confirmedBooking(t, f)

    // Occupy room 2 at the same slot.
    blocker := f.prepareReq()
    blocker.RoomNo = new(int)
    *blocker.RoomNo = 2
    _, err := f.svc.Immediately(context.Background(), blocker, "downtown", "study", "exam")
    require.NoError(t, err)

    _, err = f.svc.ChangeRoom(context.Background(), res.ID, model.RoomTypeStudy, 2)
    faultStatus(t, err, http.StatusBadRequest)

    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.Equal(t, uint64(1), got.RoomID, "conflicting change must not move the booking")
}

// ----- no-show sweep -----

func TestRemoveNoShows(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.Date = f.now
    req.Slot = model.TimeSlot{Start: 690, End: 750} // 11:30, started 30 min before noon
    res, err := f.svc.Immediately(context.Background(), req, "downtown", "study", "exam")
    require.NoError(t, err)

    require.NoError(t, f.svc.RemoveNoShows(context.Background()))

    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.Nil(t, got, "unpaid no-show should be hard-deleted")
    assert.Contains(t, f.audit.events, "book.del.record")
    assert.NotEmpty(t, f.notifier.sent)
}

func TestRemoveNoShowsKeepsPaid(t *testing.T) {
    f := newFixture(t)

    req := f.prepareReq()
    req.Date = f.now
    req.Slot = model.TimeSlot{Start: 690, End: 750}
    res, err := f.svc.Immediately(context.Background(), req, "downtown", "study", "exam")
    require.NoError(t, err)
    f.ledger.any[res.ID] = true

    require.NoError(t, f.svc.RemoveNoShows(context.Background()))

    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.NotNil(t, got)
}

func TestRemoveNoShowsOnlyAfterOpening(t *testing.T) {
    f := newFixture(t)
    f.now = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

    req := f.prepareReq()
    req.UserID = 1 // admin, bypasses the hours check at 05:00
    req.Date = f.now
    req.Slot = model.TimeSlot{Start: 300, End: 360}
    res, err := f.svc.Immediately(context.Background(), req, "hq", "setup", "morning")
    require.NoError(t, err)

    require.NoError(t, f.svc.RemoveNoShows(context.Background()))
    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.NotNil(t, got, "the sweep must not run before opening")
}

func TestRemoveNoShowsGrace(t *testing.T) {
    f := newFixture(t)

    // Started 10 minutes ago: inside the grace period.
    req := f.prepareReq()
    req.Date = f.now
    req.Slot = model.TimeSlot{Start: 710, End: 780} // 11:50
    res, err := f.svc.Immediately(context.Background(), req, "downtown", "study", "exam")
    require.NoError(t, err)

    require.NoError(t, f.svc.RemoveNoShows(context.Background()))
    got, _ := f.reservations.Get(context.Background(), res.ID)
    assert.NotNil(t, got)
}

// ----- recurring blocks -----

func TestMaterializeBlocks(t *testing.T) {
    f := newFixture(t)

    require.NoError(t, f.svc.MaterializeBlocks(context.Background()))

    // Room 5 (id 5) gets one full-day block per day in the window.
    count := 0
    for _, r := range f.reservations.rows {
        if r.Status == model.StatusBlocked {
            assert.Equal(t, uint64(5), r.RoomID)
            assert.Equal(t, f.svc.SystemUserID, r.UserID)
            count++
        }
    }
    assert.Equal(t, blockWindowDays, count)
    assert.Len(t, f.ledger.blockPayments, blockWindowDays)

    // Running the generator again adds nothing.
    require.NoError(t, f.svc.MaterializeBlocks(context.Background()))
    again := 0
    for _, r := range f.reservations.rows {
        if r.Status == model.StatusBlocked {
            again++
        }
    }
    assert.Equal(t, count, again)
    assert.Len(t, f.ledger.blockPayments, blockWindowDays)
}

func TestMaterializeBlocksWeekdayFilter(t *testing.T) {
    f := newFixture(t)
    f.svc.BlockSchedule = []BlockBooking{{
        RoomType: model.RoomTypeStudy,
        RoomNo:   2,
        Purpose:  "cleaning",
        Object:   "cleaning",
        Weekdays: [7]bool{time.Monday: true},
        Slot:     model.TimeSlot{Start: 540, End: 600},
    }}

    require.NoError(t, f.svc.MaterializeBlocks(context.Background()))

    for _, r := range f.reservations.rows {
        if r.Status == model.StatusBlocked {
            assert.Equal(t, time.Monday, r.BookDate.Weekday())
        }
    }
}
