package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/hyeonwoo/studycafe-server/internal/model"
    "github.com/hyeonwoo/studycafe-server/internal/payment"
)

// PaymentRepo provides data access to the payments table.  Payment rows
// are written before settlement and then updated in place, so rejected
// attempts stay on record.  Timestamps are stored in UTC.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, user_id, book_id, pool_id, cashier, pay_type, paid, comment, status, created_at`

func scanPayment(scan func(dest ...any) error) (*model.Payment, error) {
    var (
        p       model.Payment
        bookID  sql.NullInt64
        poolID  sql.NullInt64
        comment sql.NullString
        status  string
    )
    err := scan(
        &p.ID, &p.UserID, &bookID, &poolID, &p.Cashier, &p.PayType,
        &p.Paid, &comment, &status, &p.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if bookID.Valid {
        v := uint64(bookID.Int64)
        p.ReservationID = &v
    }
    if poolID.Valid {
        v := uint64(poolID.Int64)
        p.PoolID = &v
    }
    if comment.Valid {
        p.Comment = comment.String
    }
    p.Status = model.PaymentStatus(status)
    return &p, nil
}

// Create inserts a payment row and populates its generated id.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
    const q = `INSERT INTO payments
               (user_id, book_id, pool_id, cashier, pay_type, paid, comment, status, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        p.UserID, p.ReservationID, p.PoolID, p.Cashier, p.PayType,
        p.Paid, p.Comment, string(p.Status), p.CreatedAt,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

// Update writes a payment's mutable columns back.
func (r *PaymentRepo) Update(ctx context.Context, p *model.Payment) error {
    const q = `UPDATE payments
               SET pool_id = ?, cashier = ?, pay_type = ?, paid = ?, comment = ?, status = ?
               WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q,
        p.PoolID, p.Cashier, p.PayType, p.Paid, p.Comment, string(p.Status), p.ID,
    )
    return err
}

// Get returns one payment by id, or (nil, nil) when absent.
func (r *PaymentRepo) Get(ctx context.Context, id uint64) (*model.Payment, error) {
    const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
    p, err := scanPayment(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return p, err
}

// ByReservation returns a reservation's payments in creation order.
func (r *PaymentRepo) ByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
    const q = `SELECT ` + paymentColumns + ` FROM payments WHERE book_id = ? ORDER BY id`
    return r.queryMany(ctx, q, reservationID)
}

// ByReservationStatus returns a reservation's payments with one status in
// creation order.
func (r *PaymentRepo) ByReservationStatus(ctx context.Context, reservationID uint64, status model.PaymentStatus) ([]model.Payment, error) {
    const q = `SELECT ` + paymentColumns + ` FROM payments WHERE book_id = ? AND status = ? ORDER BY id`
    return r.queryMany(ctx, q, reservationID, string(status))
}

// Search returns payments matching the filter, assembling the WHERE
// clause from the fields actually set.  The date filter selects the
// calendar day of creation.
func (r *PaymentRepo) Search(ctx context.Context, f payment.Filter) ([]model.Payment, error) {
    clauses := make([]string, 0, 5)
    args := make([]any, 0, 6)
    if f.UserID != nil {
        clauses = append(clauses, "user_id = ?")
        args = append(args, *f.UserID)
    }
    if f.ReservationID != nil {
        clauses = append(clauses, "book_id = ?")
        args = append(args, *f.ReservationID)
    }
    if f.Cashier != nil {
        clauses = append(clauses, "cashier = ?")
        args = append(args, *f.Cashier)
    }
    if f.PayType != nil {
        clauses = append(clauses, "pay_type = ?")
        args = append(args, *f.PayType)
    }
    if f.Date != nil {
        day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
        clauses = append(clauses, "created_at >= ? AND created_at < ?")
        args = append(args, day, day.AddDate(0, 0, 1))
    }

    q := `SELECT ` + paymentColumns + ` FROM payments`
    if len(clauses) > 0 {
        q += " WHERE " + strings.Join(clauses, " AND ")
    }
    q += " ORDER BY id"
    return r.queryMany(ctx, q, args...)
}

func (r *PaymentRepo) queryMany(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Payment, 0)
    for rows.Next() {
        p, err := scanPayment(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}
