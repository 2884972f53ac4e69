package model

import "time"

// Card terminal exchange types.  The terminal client polls for a pending
// request row, drives the physical terminal, then posts the response
// fields back.
const (
    TxTypeNone          = 0
    TxTypeCardRequest   = 100
    TxTypeCardFallback  = 101
    TxTypeCancelRequest = 102
)

// TxSuccessCode is the terminal response code that marks an approved
// exchange.
const TxSuccessCode = "0000"

// Poll staleness thresholds for pending transactions.  A request older
// than TxStaleAfter is no longer handed to the terminal; once it passes
// TxTimeoutAfter the linked payment is auto-rejected.
const (
    TxStaleAfter   = 30 * time.Second
    TxTimeoutAfter = 35 * time.Second
)

// CardTransaction mirrors one exchange with the physical card terminal.
// The request half is written when a card payment or refund is initiated;
// the response half is copied verbatim from the terminal callback.  The
// server treats most response fields as an opaque mirror of the external
// system and only interprets the amount and response code.
type CardTransaction struct {
    ID          uint64    // transactions.id
    UserID      uint64    // transactions.user_id
    PayID       uint64    // transactions.pay_id
    ClientName  string    // transactions.client_name
    Type        int       // transactions.type (request kind)
    Money       int64     // transactions.money
    Tax         int64     // transactions.tax
    Service     int64     // transactions.service_charge
    Installment int       // transactions.installment (months)
    AgreeNum    string    // transactions.agree_num
    AgreeDate   string    // transactions.agree_date
    CatID       string    // transactions.cat_id (terminal id)
    TaxFree     int64     // transactions.tax_free
    CreatedAt   time.Time // transactions.created_at

    // Terminal response mirror.  All nullable until the callback arrives.
    ResponseRaw       *string // transactions.response_original
    ResponseCode      *string // transactions.response_code
    TransactionAmount *string // transactions.transaction_amount
    ResponseMessage   *string // transactions.message
    AuthorizationNo   *string // transactions.authorization_number
    ApprovalDatetime  *string // transactions.approval_datetime
    IssuerName        *string // transactions.issuer_name
    AcquirerName      *string // transactions.acquisition_company_name
}

// Answered reports whether the terminal has responded to this exchange.
func (t *CardTransaction) Answered() bool { return t.ResponseRaw != nil }

// Approved reports a successful terminal response.
func (t *CardTransaction) Approved() bool {
    return t.ResponseCode != nil && *t.ResponseCode == TxSuccessCode
}

// Stale reports whether the pending request should no longer be handed to
// a polling terminal client.
func (t *CardTransaction) Stale(now time.Time) bool {
    return now.After(t.CreatedAt.Add(TxStaleAfter))
}

// TimedOut reports whether the pending request is old enough that its
// payment must be auto-rejected.
func (t *CardTransaction) TimedOut(now time.Time) bool {
    return now.After(t.CreatedAt.Add(TxTimeoutAfter))
}
