package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "log"
    "time"
)

// LogRepo is the append-only audit trail.  Events are structured rows
// with a free-form JSON payload; writes are best effort and never fail
// the calling operation, so Record swallows errors after logging them.
type LogRepo struct {
    db *sql.DB
}

// NewLogRepo returns a new LogRepo bound to the given database.
func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{db: db} }

// LogRecord is one audit row as read back from the logs table.
type LogRecord struct {
    ID        uint64          `json:"id"`
    Event     string          `json:"event"`
    UserID    uint64          `json:"user_id"`
    Extra     json.RawMessage `json:"extra"`
    CreatedAt time.Time       `json:"created_at"`
}

// Record appends one audit event.  The extra payload is marshaled to
// JSON; a marshal or insert failure is logged and dropped.
func (r *LogRepo) Record(ctx context.Context, event string, userID uint64, extra any) {
    payload, err := json.Marshal(extra)
    if err != nil {
        log.Printf("audit: marshal %s: %v", event, err)
        return
    }
    _, err = r.db.ExecContext(ctx,
        `INSERT INTO logs (event, user_id, extra) VALUES (?, ?, ?)`,
        event, userID, payload)
    if err != nil {
        log.Printf("audit: insert %s: %v", event, err)
    }
}

// ByEvent returns the newest limit rows for one event type.
func (r *LogRepo) ByEvent(ctx context.Context, event string, limit int) ([]LogRecord, error) {
    const q = `SELECT id, event, user_id, extra, created_at
               FROM logs WHERE event = ? ORDER BY id DESC LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, event, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]LogRecord, 0)
    for rows.Next() {
        var rec LogRecord
        if err := rows.Scan(&rec.ID, &rec.Event, &rec.UserID, &rec.Extra, &rec.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    return out, rows.Err()
}

// Recent returns the newest limit rows across all events.
func (r *LogRepo) Recent(ctx context.Context, limit int) ([]LogRecord, error) {
    const q = `SELECT id, event, user_id, extra, created_at
               FROM logs ORDER BY id DESC LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]LogRecord, 0)
    for rows.Next() {
        var rec LogRecord
        if err := rows.Scan(&rec.ID, &rec.Event, &rec.UserID, &rec.Extra, &rec.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    return out, rows.Err()
}
