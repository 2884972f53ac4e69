package model

import "time"

// PaymentStatus is the settlement state of a payment attempt.  Stored as a
// string for readability in the ledger table.
type PaymentStatus string

// Payment settlement states.  WAITING payments are pending an external
// card-terminal callback and auto-reject after WaitingTTL; refusal and
// settlement both keep the row so rejections stay auditable.
const (
    PayWaiting   PaymentStatus = "waiting"
    PayConfirmed PaymentStatus = "confirm"
    PayRejected  PaymentStatus = "reject"
)

// WaitingTTL is how long a WAITING payment blocks new attempts on the same
// reservation before it is auto-rejected on the next read.
const WaitingTTL = 10 * time.Minute

// Payment is one row in the payment ledger.  A payment may reference a
// reservation (room charges) and/or a balance pool (saved-money debits and
// donation credits).  Refunds are recorded as new rows carrying a
// ".refund." pay type, never as mutations of the original.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – paying user.
//  ReservationID – reservation being paid for (nullable: donations).
//  PoolID        – balance pool touched by this payment (nullable).
//  Cashier       – operator or client identity that took the payment.
//  PayType       – raw pay-type string, e.g. "card", "saved_money.d.downtown".
//  Paid          – amount in the smallest currency unit.
//  Comment       – free text; settlement outcomes append to it.
//  Status        – see PaymentStatus.
//  CreatedAt     – creation timestamp, drives the WAITING timeout.
type Payment struct {
    ID            uint64        // pays.id
    UserID        uint64        // pays.user_id
    ReservationID *uint64       // pays.book_id (nullable)
    PoolID        *uint64       // pays.saved_money_id (nullable)
    Cashier       string        // pays.cashier
    PayType       string        // pays.pay_type
    Paid          int64         // pays.paid
    Comment       string        // pays.comment
    Status        PaymentStatus // pays.status
    CreatedAt     time.Time     // pays.created_at
}

// WaitingExpired reports whether a WAITING payment has outlived its
// timeout at the given instant.
func (p *Payment) WaitingExpired(now time.Time) bool {
    return p.Status == PayWaiting && now.After(p.CreatedAt.Add(WaitingTTL))
}
