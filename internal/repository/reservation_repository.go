package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// ReservationRepo provides data access to the reservations table.  A
// reservation row carries the full state machine (temporary hold,
// confirmed, canceled, blocked) plus the slot as minute-of-day columns.
// Soft-canceled rows keep their data and gain a reason; the only hard
// delete paths are expired holds and the no-show sweep.  All timestamp
// fields are assumed to be stored in UTC and book_date as a DATE column.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, room_id, user_id, status, people_no, book_date,
        start_minute, end_minute, department, purpose, object, reason, created_at`

func scanReservation(scan func(dest ...any) error) (*model.Reservation, error) {
    var (
        r        model.Reservation
        status   int
        dept     sql.NullString
        purpose  sql.NullString
        object   sql.NullString
        reason   sql.NullString
        bookDate string
    )
    err := scan(
        &r.ID, &r.RoomID, &r.UserID, &status, &r.PeopleNo, &bookDate,
        &r.Slot.Start, &r.Slot.End, &dept, &purpose, &object, &reason, &r.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    r.Status = model.ReservationStatus(status)
    if dept.Valid {
        v := dept.String
        r.Department = &v
    }
    if purpose.Valid {
        v := purpose.String
        r.Purpose = &v
    }
    if object.Valid {
        v := object.String
        r.Object = &v
    }
    if reason.Valid {
        v := reason.String
        r.Reason = &v
    }
    if t, err2 := time.Parse("2006-01-02", bookDate); err2 == nil {
        r.BookDate = t
    }
    return &r, nil
}

// liveRowsForUpdateTx reads the live reservations of one room and date
// with row locks held, so a concurrent writer on the same room/date
// blocks until the surrounding transaction finishes.
func (r *ReservationRepo) liveRowsForUpdateTx(ctx context.Context, tx *sql.Tx, roomID uint64, date time.Time) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE room_id = ? AND book_date = ? AND reason IS NULL AND status <> ?
               ORDER BY start_minute
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, roomID, date.Format("2006-01-02"), int(model.StatusCanceled))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var live []model.Reservation
    for rows.Next() {
        rec, err := scanReservation(rows.Scan)
        if err != nil {
            return nil, err
        }
        live = append(live, *rec)
    }
    return live, rows.Err()
}

// CreateChecked inserts a reservation only if the check callback accepts
// the room/date's current live reservations.  The live rows are read
// under FOR UPDATE in the same transaction as the insert, so the
// validation and the write are atomic per room and date.  A check error
// rolls everything back and is returned unchanged.
func (r *ReservationRepo) CreateChecked(ctx context.Context, res *model.Reservation, check func(live []model.Reservation) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    live, err := r.liveRowsForUpdateTx(ctx, tx, res.RoomID, res.BookDate)
    if err != nil {
        return err
    }
    if err := check(live); err != nil {
        return err
    }

    const q = `INSERT INTO reservations
               (room_id, user_id, status, people_no, book_date, start_minute, end_minute,
                department, purpose, object, reason, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.RoomID, res.UserID, int(res.Status), res.PeopleNo,
        res.BookDate.Format("2006-01-02"), res.Slot.Start, res.Slot.End,
        res.Department, res.Purpose, res.Object, res.Reason, res.CreatedAt,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// MoveRoomChecked reassigns a reservation to another room only if the
// check callback accepts the target room/date's live reservations, read
// under FOR UPDATE in the same transaction as the update.
func (r *ReservationRepo) MoveRoomChecked(ctx context.Context, id, newRoomID uint64, check func(live []model.Reservation) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var bookDate string
    if err := tx.QueryRowContext(ctx,
        `SELECT book_date FROM reservations WHERE id = ? FOR UPDATE`, id,
    ).Scan(&bookDate); err != nil {
        return err
    }
    date, err := time.Parse("2006-01-02", bookDate)
    if err != nil {
        return err
    }

    live, err := r.liveRowsForUpdateTx(ctx, tx, newRoomID, date)
    if err != nil {
        return err
    }
    if err := check(live); err != nil {
        return err
    }

    if _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET room_id = ? WHERE id = ?`, newRoomID, id,
    ); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// LiveByRoomDate returns a room's live reservations for one date ordered
// by start minute.  Use this for display; writers go through
// CreateChecked so they see locked rows instead.
func (r *ReservationRepo) LiveByRoomDate(ctx context.Context, roomID uint64, date time.Time) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE room_id = ? AND book_date = ? AND reason IS NULL AND status <> ?
               ORDER BY start_minute`
    return r.queryMany(ctx, q, roomID, date.Format("2006-01-02"), int(model.StatusCanceled))
}

// ByDate returns every reservation on a date regardless of status.
func (r *ReservationRepo) ByDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE book_date = ?
               ORDER BY room_id, start_minute`
    return r.queryMany(ctx, q, date.Format("2006-01-02"))
}

// ByUser returns a user's reservations newest first.
func (r *ReservationRepo) ByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE user_id = ?
               ORDER BY created_at DESC`
    return r.queryMany(ctx, q, userID)
}

func (r *ReservationRepo) queryMany(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        rec, err := scanReservation(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *rec)
    }
    return out, rows.Err()
}

// Get returns one reservation by id, or (nil, nil) when absent.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    rec, err := scanReservation(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return rec, err
}

// GetLive returns one non-canceled reservation by id, or (nil, nil).
func (r *ReservationRepo) GetLive(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations WHERE id = ? AND reason IS NULL AND status <> ?`
    rec, err := scanReservation(r.db.QueryRowContext(ctx, q, id, int(model.StatusCanceled)).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return rec, err
}

// Confirm promotes a temporary hold and records the confirmation
// metadata.
func (r *ReservationRepo) Confirm(ctx context.Context, id uint64, department, purpose, object string) error {
    const q = `UPDATE reservations
               SET status = ?, department = ?, purpose = ?, object = ?
               WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, int(model.StatusConfirmed), department, purpose, object, id)
    return err
}

// Cancel soft-cancels a reservation, keeping the row with its reason.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64, reason string) error {
    const q = `UPDATE reservations SET status = ?, reason = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, int(model.StatusCanceled), reason, id)
    return err
}

// MarkCanceled flips only the status column, leaving any existing reason
// in place.  Used by the card refund settlement to converge state.
func (r *ReservationRepo) MarkCanceled(ctx context.Context, id uint64) error {
    const q = `UPDATE reservations SET status = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, int(model.StatusCanceled), id)
    return err
}

// Delete removes a reservation row outright.  Reserved for expired holds
// and the no-show sweep.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
    return err
}

// BlockExists reports whether a block row already covers the given room,
// date and slot, so the recurring generator stays idempotent.
func (r *ReservationRepo) BlockExists(ctx context.Context, roomID uint64, date time.Time, slot model.TimeSlot) (bool, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE room_id = ? AND book_date = ? AND status = ?
                 AND start_minute = ? AND end_minute = ?`
    var n int
    err := r.db.QueryRowContext(ctx, q,
        roomID, date.Format("2006-01-02"), int(model.StatusBlocked), slot.Start, slot.End,
    ).Scan(&n)
    return n > 0, err
}
