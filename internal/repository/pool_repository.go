package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// ErrBalanceExhausted is returned by Adjust when the requested debit
// would take the pool balance below zero.  The row is left unchanged.
var ErrBalanceExhausted = errors.New("pool balance exhausted")

// PoolRepo provides data access to the balance_pools table.  A pool is
// either a named department balance or one user's personal balance.
// Adjust is the only balance writer and holds a row lock for the
// duration of the read-modify-write, so concurrent debits against the
// same pool serialize at the database as well as in process.
type PoolRepo struct {
    db *sql.DB
}

// NewPoolRepo returns a new PoolRepo bound to the given database.
func NewPoolRepo(db *sql.DB) *PoolRepo { return &PoolRepo{db: db} }

const poolColumns = `id, type, name, user_id, balance, created_at`

func scanPool(scan func(dest ...any) error) (*model.BalancePool, error) {
    var (
        p        model.BalancePool
        poolType string
        name     sql.NullString
        userID   sql.NullInt64
    )
    if err := scan(&p.ID, &poolType, &name, &userID, &p.Balance, &p.CreatedAt); err != nil {
        return nil, err
    }
    p.Type = model.PoolType(poolType)
    if name.Valid {
        v := name.String
        p.Name = &v
    }
    if userID.Valid {
        v := uint64(userID.Int64)
        p.UserID = &v
    }
    return &p, nil
}

// ByName returns the department pool with the given name, or (nil, nil).
func (r *PoolRepo) ByName(ctx context.Context, name string) (*model.BalancePool, error) {
    const q = `SELECT ` + poolColumns + ` FROM balance_pools WHERE name = ?`
    p, err := scanPool(r.db.QueryRowContext(ctx, q, name).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return p, err
}

// ByUser returns a user's personal pool, or (nil, nil).
func (r *PoolRepo) ByUser(ctx context.Context, userID uint64) (*model.BalancePool, error) {
    const q = `SELECT ` + poolColumns + ` FROM balance_pools WHERE user_id = ?`
    p, err := scanPool(r.db.QueryRowContext(ctx, q, userID).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return p, err
}

// List returns every pool ordered by id.
func (r *PoolRepo) List(ctx context.Context) ([]model.BalancePool, error) {
    const q = `SELECT ` + poolColumns + ` FROM balance_pools ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.BalancePool, 0)
    for rows.Next() {
        p, err := scanPool(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}

// Create inserts a pool row and populates its generated id.
func (r *PoolRepo) Create(ctx context.Context, pool *model.BalancePool) error {
    const q = `INSERT INTO balance_pools (type, name, user_id, balance, created_at)
               VALUES (?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        string(pool.Type), pool.Name, pool.UserID, pool.Balance, pool.CreatedAt,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    pool.ID = uint64(id)
    return nil
}

// Adjust applies a signed delta to a pool's balance under a row lock and
// returns the balance before and after the write.  A delta that would
// take the balance below zero is refused with ErrBalanceExhausted and
// the unchanged balance reported for both values.  The caller checks the
// before == after - delta identity; this method only guarantees the
// read-modify-write happened against a locked row.
func (r *PoolRepo) Adjust(ctx context.Context, id uint64, delta int64) (before, after int64, err error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err = tx.QueryRowContext(ctx,
        `SELECT balance FROM balance_pools WHERE id = ? FOR UPDATE`, id,
    ).Scan(&before); err != nil {
        return 0, 0, err
    }
    after = before + delta
    if after < 0 {
        return before, before, ErrBalanceExhausted
    }
    if _, err = tx.ExecContext(ctx,
        `UPDATE balance_pools SET balance = ? WHERE id = ?`, after, id,
    ); err != nil {
        return 0, 0, err
    }
    if err = tx.Commit(); err != nil {
        return 0, 0, err
    }
    committed = true
    return before, after, nil
}
