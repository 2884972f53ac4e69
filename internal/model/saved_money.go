package model

import "time"

// PoolType distinguishes department-scoped pools from per-user ones.
type PoolType string

const (
    PoolDepartment PoolType = "department"
    PoolPersonal   PoolType = "personal"
)

// BalancePool (saved money) is a running balance used for donation credits
// and internal saved-money payments and refunds.  A pool is owned either
// by a named department or by a single user, never both.  The balance is
// held in the smallest currency unit and must never go negative; every
// debit verifies before == after + amount inside the enclosing
// transaction.
//
// Fields:
//  ID        – primary key identifier.
//  Type      – department or personal scope.
//  Name      – owning department name (nil for personal pools).
//  UserID    – owning user (nil for department pools).
//  Balance   – current balance.
//  CreatedAt – creation timestamp.
type BalancePool struct {
    ID        uint64    // saved_moneys.id
    Type      PoolType  // saved_moneys.type
    Name      *string   // saved_moneys.name (nullable)
    UserID    *uint64   // saved_moneys.user_id (nullable)
    Balance   int64     // saved_moneys.money
    CreatedAt time.Time // saved_moneys.created_at
}
