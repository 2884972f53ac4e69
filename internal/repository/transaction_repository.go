package repository

import (
    "context"
    "database/sql"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// TransactionRepo provides data access to the card_transactions table.
// A row's request half is written when a card payment or refund opens;
// the response half stays NULL until the terminal callback fills it in.
type TransactionRepo struct {
    db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, user_id, pay_id, client_name, type, money, tax,
        service_charge, installment, agree_num, agree_date, cat_id, tax_free, created_at,
        response_raw, response_code, transaction_amount, response_message,
        authorization_no, approval_datetime, issuer_name, acquirer_name`

func scanTransaction(scan func(dest ...any) error) (*model.CardTransaction, error) {
    var (
        t        model.CardTransaction
        response [8]sql.NullString
    )
    err := scan(
        &t.ID, &t.UserID, &t.PayID, &t.ClientName, &t.Type, &t.Money, &t.Tax,
        &t.Service, &t.Installment, &t.AgreeNum, &t.AgreeDate, &t.CatID, &t.TaxFree, &t.CreatedAt,
        &response[0], &response[1], &response[2], &response[3],
        &response[4], &response[5], &response[6], &response[7],
    )
    if err != nil {
        return nil, err
    }
    fields := []**string{
        &t.ResponseRaw, &t.ResponseCode, &t.TransactionAmount, &t.ResponseMessage,
        &t.AuthorizationNo, &t.ApprovalDatetime, &t.IssuerName, &t.AcquirerName,
    }
    for i, f := range fields {
        if response[i].Valid {
            v := response[i].String
            *f = &v
        }
    }
    return &t, nil
}

// Create inserts the request half of a terminal exchange and populates
// the generated id.
func (r *TransactionRepo) Create(ctx context.Context, t *model.CardTransaction) error {
    const q = `INSERT INTO card_transactions
               (user_id, pay_id, client_name, type, money, tax, service_charge,
                installment, agree_num, agree_date, cat_id, tax_free, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        t.UserID, t.PayID, t.ClientName, t.Type, t.Money, t.Tax, t.Service,
        t.Installment, t.AgreeNum, t.AgreeDate, t.CatID, t.TaxFree, t.CreatedAt,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// Update writes the response mirror columns back.
func (r *TransactionRepo) Update(ctx context.Context, t *model.CardTransaction) error {
    const q = `UPDATE card_transactions
               SET response_raw = ?, response_code = ?, transaction_amount = ?,
                   response_message = ?, authorization_no = ?, approval_datetime = ?,
                   issuer_name = ?, acquirer_name = ?
               WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q,
        t.ResponseRaw, t.ResponseCode, t.TransactionAmount, t.ResponseMessage,
        t.AuthorizationNo, t.ApprovalDatetime, t.IssuerName, t.AcquirerName, t.ID,
    )
    return err
}

// Get returns one transaction by id, or (nil, nil) when absent.
func (r *TransactionRepo) Get(ctx context.Context, id uint64) (*model.CardTransaction, error) {
    const q = `SELECT ` + transactionColumns + ` FROM card_transactions WHERE id = ?`
    t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return t, err
}

// FirstByPay returns the oldest transaction opened for a payment, or
// (nil, nil).
func (r *TransactionRepo) FirstByPay(ctx context.Context, payID uint64) (*model.CardTransaction, error) {
    const q = `SELECT ` + transactionColumns + `
               FROM card_transactions WHERE pay_id = ? ORDER BY id LIMIT 1`
    t, err := scanTransaction(r.db.QueryRowContext(ctx, q, payID).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return t, err
}

// PendingByClient returns a terminal client's unanswered transactions,
// oldest first.
func (r *TransactionRepo) PendingByClient(ctx context.Context, clientName string) ([]model.CardTransaction, error) {
    const q = `SELECT ` + transactionColumns + `
               FROM card_transactions
               WHERE client_name = ? AND response_raw IS NULL
               ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, clientName)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.CardTransaction, 0)
    for rows.Next() {
        t, err := scanTransaction(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *t)
    }
    return out, rows.Err()
}

// List returns every transaction ordered by id.
func (r *TransactionRepo) List(ctx context.Context) ([]model.CardTransaction, error) {
    const q = `SELECT ` + transactionColumns + ` FROM card_transactions ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.CardTransaction, 0)
    for rows.Next() {
        t, err := scanTransaction(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *t)
    }
    return out, rows.Err()
}
