package payment

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/hyeonwoo/studycafe-server/internal/booking"
    "github.com/hyeonwoo/studycafe-server/internal/fault"
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// PaymentStore persists payment rows.  Get-style methods return
// (nil, nil) when the row does not exist.
type PaymentStore interface {
    Create(ctx context.Context, p *model.Payment) error
    Update(ctx context.Context, p *model.Payment) error
    Get(ctx context.Context, id uint64) (*model.Payment, error)
    ByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error)
    ByReservationStatus(ctx context.Context, reservationID uint64, status model.PaymentStatus) ([]model.Payment, error)
    Search(ctx context.Context, f Filter) ([]model.Payment, error)
}

// Filter narrows payment listings; nil fields are ignored.
type Filter struct {
    UserID        *uint64
    ReservationID *uint64
    Cashier       *string
    PayType       *string
    Date          *time.Time
}

// PoolStore persists shared balance pools.  Adjust applies a signed
// delta under a row lock and reports the balance before and after; it
// refuses a write that would take the balance below zero.
type PoolStore interface {
    ByName(ctx context.Context, name string) (*model.BalancePool, error)
    ByUser(ctx context.Context, userID uint64) (*model.BalancePool, error)
    Create(ctx context.Context, pool *model.BalancePool) error
    Adjust(ctx context.Context, id uint64, delta int64) (before, after int64, err error)
}

// TransactionStore persists card terminal exchanges.
type TransactionStore interface {
    Create(ctx context.Context, t *model.CardTransaction) error
    Get(ctx context.Context, id uint64) (*model.CardTransaction, error)
    FirstByPay(ctx context.Context, payID uint64) (*model.CardTransaction, error)
    PendingByClient(ctx context.Context, clientName string) ([]model.CardTransaction, error)
    Update(ctx context.Context, t *model.CardTransaction) error
}

// ReservationCloser is the slice of the reservation store the terminal
// callback needs to finish a card refund.
type ReservationCloser interface {
    Get(ctx context.Context, id uint64) (*model.Reservation, error)
    MarkCanceled(ctx context.Context, id uint64) error
}

// UserDirectory resolves payers.
type UserDirectory interface {
    ByID(ctx context.Context, id uint64) (*model.User, error)
}

// Notifier queues a fire-and-forget text message to a user.
type Notifier interface {
    Notify(ctx context.Context, user *model.User, text string)
}

// Audit appends a structured event record.
type Audit interface {
    Record(ctx context.Context, event string, userID uint64, extra any)
}

// Service is the payment and refund ledger.  Every attempt is persisted
// before settlement, so rejected payments stay auditable, and all pool
// mutations are serialized per pool through the shared keyed lock.
type Service struct {
    pays         PaymentStore
    pools        PoolStore
    transactions TransactionStore
    reservations ReservationCloser
    users        UserDirectory
    notifier     Notifier
    audit        Audit
    locks        *booking.KeyedLock

    // TerminalCatID identifies this installation to the card terminal.
    TerminalCatID string

    now func() time.Time
}

// NewService wires a payment service.  The keyed lock must be the same
// instance the booking service uses so room and pool serialization share
// one domain.
func NewService(pays PaymentStore, pools PoolStore, transactions TransactionStore, reservations ReservationCloser, users UserDirectory, notifier Notifier, audit Audit, locks *booking.KeyedLock) *Service {
    return &Service{
        pays:         pays,
        pools:        pools,
        transactions: transactions,
        reservations: reservations,
        users:        users,
        notifier:     notifier,
        audit:        audit,
        locks:        locks,
        now:          time.Now,
    }
}

// ProcessRequest carries a payment submission.
type ProcessRequest struct {
    UserID        uint64
    ReservationID *uint64
    Cashier       string
    PayType       string
    Paid          int64
    Comment       *string
    ClientName    string
}

// Process runs the pay-type dispatch over a freshly persisted payment
// row and returns the settled row.  Business rejections (no such pool,
// insufficient balance, reconciliation failure) come back as a rejected
// payment, not an error; only request-shape and duplicate-payment
// problems fail the call.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*model.Payment, error) {
    now := s.now()

    if req.Cashier == "" || req.PayType == "" || req.Paid < 0 {
        return nil, fault.New(http.StatusBadRequest, "invalid payment request")
    }
    user, err := s.users.ByID(ctx, req.UserID)
    if err != nil {
        return nil, err
    }
    if user == nil {
        return nil, fault.New(http.StatusForbidden, "no such user")
    }

    if req.ReservationID != nil {
        if err := s.guardDuplicate(ctx, req.UserID, *req.ReservationID, now); err != nil {
            return nil, err
        }
    }

    pay := &model.Payment{
        UserID:        req.UserID,
        ReservationID: req.ReservationID,
        Cashier:       req.Cashier,
        PayType:       req.PayType,
        Paid:          req.Paid,
        Status:        model.PayWaiting,
        CreatedAt:     now,
    }
    if req.Comment != nil {
        pay.Comment = *req.Comment
    }
    if err := s.pays.Create(ctx, pay); err != nil {
        return nil, err
    }

    if err := s.settle(ctx, pay, req.ClientName); err != nil {
        return nil, err
    }
    if err := s.pays.Update(ctx, pay); err != nil {
        return nil, err
    }

    s.audit.Record(ctx, "pay.process", pay.UserID, map[string]any{
        "pay_id":   pay.ID,
        "pay_type": pay.PayType,
        "paid":     pay.Paid,
        "status":   string(pay.Status),
        "client":   req.ClientName,
    })
    return pay, nil
}

// guardDuplicate enforces at most one effective payment per reservation:
// a confirmed payment blocks new attempts outright, a fresh waiting one
// blocks them temporarily, and a stale waiting one is auto-rejected so
// the new attempt can proceed.
func (s *Service) guardDuplicate(ctx context.Context, userID, reservationID uint64, now time.Time) error {
    res, err := s.reservations.Get(ctx, reservationID)
    if err != nil {
        return err
    }
    if res == nil || res.UserID != userID {
        return fault.New(http.StatusNotFound, "no such booking")
    }

    // Every row for the reservation counts: a rejected early attempt must
    // not shadow a later confirmed or waiting one.
    pays, err := s.pays.ByReservation(ctx, reservationID)
    if err != nil {
        return err
    }
    for i := range pays {
        prev := &pays[i]
        switch prev.Status {
        case model.PayConfirmed:
            return fault.New(http.StatusBadRequest, "a payment already exists for this booking")
        case model.PayWaiting:
            if !prev.WaitingExpired(now) {
                return fault.New(http.StatusBadRequest, "a payment is already waiting for this booking")
            }
            prev.Status = model.PayRejected
            prev.Comment = "[TIMEOUT] Auto"
            if err := s.pays.Update(ctx, prev); err != nil {
                return err
            }
        }
    }
    return nil
}

func (s *Service) settle(ctx context.Context, pay *model.Payment, clientName string) error {
    switch Classify(pay.PayType) {
    case CategoryCard:
        pay.Status = model.PayConfirmed
        return s.openCardTransaction(ctx, pay, clientName)

    case CategoryDonationCard, CategoryDonationDirect:
        pool, err := s.creditPool(ctx, DepartmentOf(pay.PayType), pay.UserID, pay.Paid)
        if err != nil {
            return err
        }
        pay.PoolID = &pool.ID
        pay.Status = model.PayConfirmed

    case CategoryDirect, CategoryEtc:
        pay.Status = model.PayConfirmed

    case CategoryPoolDepartment:
        name := DepartmentOf(pay.PayType)
        return s.debitPool(ctx, pay, booking.PoolNameKey(name),
            func(ctx context.Context) (*model.BalancePool, error) { return s.pools.ByName(ctx, name) })

    case CategoryPoolPersonal:
        return s.debitPool(ctx, pay, booking.PoolUserKey(pay.UserID),
            func(ctx context.Context) (*model.BalancePool, error) { return s.pools.ByUser(ctx, pay.UserID) })

    case CategoryUnknown:
        // Leave the row waiting for manual review.
    }
    return nil
}

// openCardTransaction records the terminal request half the kiosk polls
// for; the response half arrives through TerminalCallback.
func (s *Service) openCardTransaction(ctx context.Context, pay *model.Payment, clientName string) error {
    return s.transactions.Create(ctx, &model.CardTransaction{
        UserID:     pay.UserID,
        PayID:      pay.ID,
        ClientName: clientName,
        Type:       model.TxTypeCardRequest,
        Money:      pay.Paid,
        CatID:      s.TerminalCatID,
        CreatedAt:  s.now(),
    })
}

// creditPool adds to the department pool named by name, or to the user's
// personal pool when name is empty, creating the pool on first use.
func (s *Service) creditPool(ctx context.Context, name string, userID uint64, amount int64) (*model.BalancePool, error) {
    var (
        key   string
        find  func(context.Context) (*model.BalancePool, error)
        fresh func() *model.BalancePool
    )
    if name != "" {
        key = booking.PoolNameKey(name)
        find = func(ctx context.Context) (*model.BalancePool, error) { return s.pools.ByName(ctx, name) }
        fresh = func() *model.BalancePool {
            n := name
            return &model.BalancePool{Type: model.PoolDepartment, Name: &n, Balance: amount}
        }
    } else {
        key = booking.PoolUserKey(userID)
        find = func(ctx context.Context) (*model.BalancePool, error) { return s.pools.ByUser(ctx, userID) }
        fresh = func() *model.BalancePool {
            id := userID
            return &model.BalancePool{Type: model.PoolPersonal, UserID: &id, Balance: amount}
        }
    }

    release := s.locks.Acquire(key)
    defer release()

    pool, err := find(ctx)
    if err != nil {
        return nil, err
    }
    if pool == nil {
        pool = fresh()
        pool.CreatedAt = s.now()
        if err := s.pools.Create(ctx, pool); err != nil {
            return nil, err
        }
        return pool, nil
    }
    if _, _, err := s.pools.Adjust(ctx, pool.ID, amount); err != nil {
        return nil, err
    }
    return pool, nil
}

// debitPool settles a pool-funded payment in place.  The pool is read
// inside the key lock so the sufficiency check never runs on a stale
// snapshot, and the debit re-checks the balance identity
// before == after + paid; a mismatch force-rejects the payment with both
// amounts on record and raises a severity-high audit event.
func (s *Service) debitPool(ctx context.Context, pay *model.Payment, key string, find func(context.Context) (*model.BalancePool, error)) error {
    release := s.locks.Acquire(key)
    defer release()

    pool, err := find(ctx)
    if err != nil {
        return err
    }
    if pool == nil {
        pay.Status = model.PayRejected
        pay.Comment = appendNote("no such pool", pay.Comment)
        return nil
    }

    if pool.Balance < pay.Paid {
        pay.Status = model.PayRejected
        pay.Comment = appendNote(fmt.Sprintf("insufficient balance (remaining: %d)", pool.Balance), pay.Comment)
        return nil
    }

    before, after, err := s.pools.Adjust(ctx, pool.ID, -pay.Paid)
    if err != nil {
        pay.Status = model.PayRejected
        pay.Comment = appendNote("pool debit failed", pay.Comment)
        return nil
    }
    if before != after+pay.Paid || after < 0 {
        pay.Status = model.PayRejected
        pay.Comment = appendNote(fmt.Sprintf("internal verification failure (before: %d, after: %d)", before, after), pay.Comment)
        s.audit.Record(ctx, "pay.reconcile.failure", pay.UserID, map[string]any{
            "pay_id": pay.ID,
            "before": before,
            "after":  after,
            "paid":   pay.Paid,
        })
        return nil
    }

    pay.PoolID = &pool.ID
    pay.Status = model.PayConfirmed
    pay.Comment = appendNote(fmt.Sprintf("paid (remaining: %d)", after), pay.Comment)
    return nil
}

func appendNote(note, prev string) string {
    if prev == "" {
        return note + "."
    }
    return note + " (" + prev + ")."
}

// RefundForCancellation creates the refund row matching the confirmed
// payment's category and returns it with a reason fragment for the
// cancellation record.  Card refunds are left waiting for the terminal;
// the cancellation itself does not block on their settlement.
func (s *Service) RefundForCancellation(ctx context.Context, actor *model.User, res *model.Reservation, pay model.Payment, cashier string) (*model.Payment, string, error) {
    department := ""
    if res.Department != nil {
        department = *res.Department
    }

    switch {
    case Classify(pay.PayType) == CategoryPoolDepartment:
        refund, err := s.refundToPool(ctx, res, pay.Paid, cashier, department,
            "saved_money.d.refund."+department,
            "refunded to the department pool.")
        if err != nil {
            return nil, "", err
        }
        return refund, fmt.Sprintf("(pool refund: %d).", refund.Paid), nil

    case strings.HasPrefix(pay.PayType, "transfer"):
        refund, err := s.refundToPool(ctx, res, pay.Paid, cashier, department,
            "transfer.refund."+department,
            "transfers are refunded to the department pool.")
        if err != nil {
            return nil, "", err
        }
        return refund, fmt.Sprintf("(transfer refunded to the %s pool: %d won).", department, refund.Paid), nil

    case Classify(pay.PayType) == CategoryCard:
        return s.refundThroughTerminal(ctx, res, pay, cashier, department)
    }

    return nil, "", fault.New(http.StatusForbidden, "payment record invalid, contact an administrator")
}

// refundToPool writes a confirmed refund payment and credits the booked
// department's pool by the refunded amount.  A missing pool fails the
// whole cancellation.
func (s *Service) refundToPool(ctx context.Context, res *model.Reservation, paid int64, cashier, department, payType, comment string) (*model.Payment, error) {
    pool, err := s.pools.ByName(ctx, department)
    if err != nil {
        return nil, err
    }
    if pool == nil {
        return nil, fault.New(http.StatusForbidden, "pool refund failed: no pool for "+department)
    }

    refund := &model.Payment{
        UserID:        res.UserID,
        ReservationID: &res.ID,
        PoolID:        &pool.ID,
        Cashier:       cashier,
        PayType:       payType,
        Paid:          paid,
        Comment:       comment,
        Status:        model.PayWaiting,
        CreatedAt:     s.now(),
    }
    if err := s.pays.Create(ctx, refund); err != nil {
        return nil, err
    }

    release := s.locks.Acquire(booking.PoolNameKey(department))
    _, _, err = s.pools.Adjust(ctx, pool.ID, refund.Paid)
    release()
    if err != nil {
        return nil, err
    }

    refund.Status = model.PayConfirmed
    if err := s.pays.Update(ctx, refund); err != nil {
        return nil, err
    }
    return refund, nil
}

// refundThroughTerminal opens a cancel-request transaction mirroring the
// original charge's card identifiers and leaves the refund payment
// waiting for the terminal callback.
func (s *Service) refundThroughTerminal(ctx context.Context, res *model.Reservation, pay model.Payment, cashier, department string) (*model.Payment, string, error) {
    original, err := s.transactions.FirstByPay(ctx, pay.ID)
    if err != nil {
        return nil, "", err
    }
    if original == nil || original.Type != model.TxTypeCardRequest || !original.Approved() {
        return nil, "", fault.New(http.StatusForbidden, "card payment record invalid, contact an administrator")
    }

    refund := &model.Payment{
        UserID:        res.UserID,
        ReservationID: &res.ID,
        Cashier:       cashier,
        PayType:       "card.refund." + department,
        Paid:          pay.Paid,
        Comment:       "card refund requested",
        Status:        model.PayWaiting,
        CreatedAt:     s.now(),
    }
    if err := s.pays.Create(ctx, refund); err != nil {
        return nil, "", err
    }

    mirror := &model.CardTransaction{
        UserID:     res.UserID,
        PayID:      refund.ID,
        ClientName:  original.ClientName,
        Type:        model.TxTypeCancelRequest,
        Money:       original.Money,
        Tax:         original.Tax,
        Service:     original.Service,
        Installment: original.Installment,
        CatID:       original.CatID,
        TaxFree:     original.TaxFree,
        CreatedAt:   s.now(),
    }
    if original.AuthorizationNo != nil {
        mirror.AgreeNum = *original.AuthorizationNo
    }
    if original.ApprovalDatetime != nil {
        mirror.AgreeDate = *original.ApprovalDatetime
    }
    if err := s.transactions.Create(ctx, mirror); err != nil {
        return nil, "", err
    }

    s.audit.Record(ctx, "pay.refund.card.requested", res.UserID, map[string]any{
        "pay_id":         refund.ID,
        "transaction_id": mirror.ID,
    })

    issuer := ""
    if original.IssuerName != nil {
        issuer = strings.TrimSpace(*original.IssuerName)
    }
    return refund, fmt.Sprintf("(card refund requested: [%s] %d).", issuer, refund.Paid), nil
}

// CallbackRequest carries the terminal's response for one transaction.
// Nil fields are left untouched on the stored row.
type CallbackRequest struct {
    TransactionID     uint64
    ResponseRaw       *string
    ResponseCode      *string
    TransactionAmount *string
    ResponseMessage   *string
    AuthorizationNo   *string
    ApprovalDatetime  *string
    IssuerName        *string
    AcquirerName      *string
}

// TerminalCallback settles a pending card transaction from the
// terminal's response: it mirrors the response fields onto the stored
// row, then revises the linked payment.  A "[ERROR]"-prefixed raw
// response rejects the payment, a card refund confirms-and-closes the
// reservation, and an ordinary charge confirms only when the amounts
// agree three ways and the response code is the success sentinel.
func (s *Service) TerminalCallback(ctx context.Context, req CallbackRequest) (*model.CardTransaction, error) {
    tx, err := s.transactions.Get(ctx, req.TransactionID)
    if err != nil {
        return nil, err
    }
    if tx == nil {
        return nil, fault.New(http.StatusNotFound, "no such transaction")
    }
    copyResponse(tx, req)

    pay, err := s.pays.Get(ctx, tx.PayID)
    if err != nil {
        return nil, err
    }
    if pay == nil {
        return nil, fault.New(http.StatusNotFound, "no payment for this transaction")
    }

    switch {
    case req.ResponseRaw != nil && strings.HasPrefix(*req.ResponseRaw, "[ERROR]"):
        pay.Status = model.PayRejected
        pay.Comment = "card payment failed"

    case IsCardRefund(pay.PayType):
        s.settleCardRefund(ctx, pay, tx)

    default:
        s.settleCardCharge(ctx, pay, tx)
    }

    if strings.HasPrefix(pay.PayType, "donation.card") && pay.Status == model.PayConfirmed {
        pool, err := s.creditPool(ctx, DepartmentOf(pay.PayType), pay.UserID, pay.Paid)
        if err != nil {
            return nil, err
        }
        pay.PoolID = &pool.ID
    }

    if err := s.pays.Update(ctx, pay); err != nil {
        return nil, err
    }
    if err := s.transactions.Update(ctx, tx); err != nil {
        return nil, err
    }

    s.audit.Record(ctx, "transaction.callback", pay.UserID, map[string]any{
        "transaction_id": tx.ID,
        "pay_id":         pay.ID,
        "status":         string(pay.Status),
    })
    return tx, nil
}

func copyResponse(tx *model.CardTransaction, req CallbackRequest) {
    assign := func(dst **string, src *string) {
        if src != nil && *src != "" {
            *dst = src
        }
    }
    assign(&tx.ResponseRaw, req.ResponseRaw)
    assign(&tx.ResponseCode, req.ResponseCode)
    assign(&tx.TransactionAmount, req.TransactionAmount)
    assign(&tx.ResponseMessage, req.ResponseMessage)
    assign(&tx.AuthorizationNo, req.AuthorizationNo)
    assign(&tx.ApprovalDatetime, req.ApprovalDatetime)
    assign(&tx.IssuerName, req.IssuerName)
    assign(&tx.AcquirerName, req.AcquirerName)
}

func (s *Service) settleCardRefund(ctx context.Context, pay *model.Payment, tx *model.CardTransaction) {
    if tx.TransactionAmount == nil {
        pay.Status = model.PayRejected
        pay.Comment = "card refund error"
    } else {
        pay.Status = model.PayConfirmed
        pay.Comment = "card refund succeeded"
        s.audit.Record(ctx, "transaction.card.refund.success", pay.UserID, map[string]any{"pay_id": pay.ID})
    }
    if pay.ReservationID != nil {
        // The reservation was already canceled when the refund was
        // requested; this keeps the state consistent if that write was
        // lost.
        _ = s.reservations.MarkCanceled(ctx, *pay.ReservationID)
    }
}

func (s *Service) settleCardCharge(ctx context.Context, pay *model.Payment, tx *model.CardTransaction) {
    if tx.TransactionAmount == nil {
        pay.Status = model.PayRejected
        pay.Comment = "card payment error"
        return
    }
    amount, err := strconv.ParseInt(strings.TrimSpace(*tx.TransactionAmount), 10, 64)
    if err != nil || pay.Paid != tx.Money || tx.Money != amount {
        pay.Status = model.PayRejected
        pay.Comment = "card payment error"
        return
    }
    if !tx.Approved() {
        pay.Status = model.PayRejected
        pay.Comment = "card payment error"
        if tx.ResponseMessage != nil {
            pay.Comment = strings.TrimSpace(*tx.ResponseMessage)
        }
        return
    }

    pay.Status = model.PayConfirmed
    pay.Comment = "card payment succeeded"
    if user, err := s.users.ByID(ctx, pay.UserID); err == nil && user != nil {
        s.notifier.Notify(ctx, user, fmt.Sprintf("your receipt for payment %d is ready", pay.ID))
    }
}

// PendingTransaction returns the oldest fresh pending transaction for a
// terminal client, or nil when there is none.  Pending rows older than
// the hard timeout are closed here: the transaction is stamped
// "[TIMEOUT] Local" and its payment rejected.  Rows in the gray window
// between the staleness and timeout thresholds are skipped so an
// in-flight terminal response is not handed out twice.
func (s *Service) PendingTransaction(ctx context.Context, clientName string) (*model.CardTransaction, error) {
    now := s.now()

    pending, err := s.transactions.PendingByClient(ctx, clientName)
    if err != nil {
        return nil, err
    }
    for i := range pending {
        tx := &pending[i]
        if !tx.Stale(now) {
            s.audit.Record(ctx, "transaction.poll", tx.UserID, map[string]any{"transaction_id": tx.ID})
            return tx, nil
        }
        if tx.TimedOut(now) {
            if err := s.timeoutTransaction(ctx, tx); err != nil {
                return nil, err
            }
        }
    }
    return nil, nil
}

func (s *Service) timeoutTransaction(ctx context.Context, tx *model.CardTransaction) error {
    marker := "[TIMEOUT] Local"
    tx.ResponseRaw = &marker
    if err := s.transactions.Update(ctx, tx); err != nil {
        return err
    }
    pay, err := s.pays.Get(ctx, tx.PayID)
    if err != nil {
        return err
    }
    if pay == nil {
        return nil
    }
    pay.Status = model.PayRejected
    pay.Comment = "payment wait timeout"
    return s.pays.Update(ctx, pay)
}

// AmendRequest is a partial payment update; nil fields keep the stored
// value.
type AmendRequest struct {
    Cashier *string
    PayType *string
    Paid    *int64
    Comment *string
}

// Amend edits a payment row in place for back-office corrections.
func (s *Service) Amend(ctx context.Context, payID uint64, req AmendRequest) (*model.Payment, error) {
    pay, err := s.pays.Get(ctx, payID)
    if err != nil {
        return nil, err
    }
    if pay == nil {
        return nil, fault.New(http.StatusNotFound, "no such payment")
    }
    if req.Cashier != nil {
        pay.Cashier = *req.Cashier
    }
    if req.PayType != nil {
        pay.PayType = *req.PayType
    }
    if req.Paid != nil {
        pay.Paid = *req.Paid
    }
    if req.Comment != nil {
        pay.Comment = *req.Comment
    }
    if err := s.pays.Update(ctx, pay); err != nil {
        return nil, err
    }
    s.audit.Record(ctx, "pay.amend", pay.UserID, map[string]any{"pay_id": pay.ID})
    return pay, nil
}

// List returns payments matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Payment, error) {
    return s.pays.Search(ctx, f)
}

// GetWithTransaction returns a payment and its card transaction, if any.
func (s *Service) GetWithTransaction(ctx context.Context, payID uint64) (*model.Payment, *model.CardTransaction, error) {
    pay, err := s.pays.Get(ctx, payID)
    if err != nil {
        return nil, nil, err
    }
    if pay == nil {
        return nil, nil, fault.New(http.StatusNotFound, "no such payment")
    }
    tx, err := s.transactions.FirstByPay(ctx, payID)
    if err != nil {
        return nil, nil, err
    }
    return pay, tx, nil
}

// ConfirmedByReservation lists a reservation's confirmed payments in
// creation order.
func (s *Service) ConfirmedByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
    return s.pays.ByReservationStatus(ctx, reservationID, model.PayConfirmed)
}

// HasAnyPayment reports whether any payment row references the
// reservation.
func (s *Service) HasAnyPayment(ctx context.Context, reservationID uint64) (bool, error) {
    pays, err := s.pays.ByReservation(ctx, reservationID)
    if err != nil {
        return false, err
    }
    return len(pays) > 0, nil
}

// HasWaitingPayment reports whether a waiting payment references the
// reservation.
func (s *Service) HasWaitingPayment(ctx context.Context, reservationID uint64) (bool, error) {
    pays, err := s.pays.ByReservationStatus(ctx, reservationID, model.PayWaiting)
    if err != nil {
        return false, err
    }
    return len(pays) > 0, nil
}

// TagReservationCanceled marks the reservation's payment rows so ledger
// exports can tell canceled charges apart.
func (s *Service) TagReservationCanceled(ctx context.Context, reservationID uint64) error {
    pays, err := s.pays.ByReservation(ctx, reservationID)
    if err != nil {
        return err
    }
    for i := range pays {
        if strings.HasSuffix(pays[i].PayType, ".canceled") {
            continue
        }
        pays[i].PayType += ".canceled"
        if err := s.pays.Update(ctx, &pays[i]); err != nil {
            return err
        }
    }
    return nil
}

// RecordBlockPayment writes the zero-amount bookkeeping row that marks a
// generated room block as settled.
func (s *Service) RecordBlockPayment(ctx context.Context, userID, reservationID uint64, cashier string) error {
    return s.pays.Create(ctx, &model.Payment{
        UserID:        userID,
        ReservationID: &reservationID,
        Cashier:       cashier,
        PayType:       "etc",
        Paid:          0,
        Comment:       "room block",
        Status:        model.PayConfirmed,
        CreatedAt:     s.now(),
    })
}
