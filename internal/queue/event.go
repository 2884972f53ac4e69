// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationEvent is published whenever the core wants a text message
// delivered to a member: out-of-hours confirmations, no-show removals,
// receipt availability.  The messenger bridge consumes the queue and
// carries enough context to deliver without querying the primary
// database.
type NotificationEvent struct {
    UserID   uint64 `json:"user_id"`
    ChatID   int64  `json:"chat_id"`
    Username string `json:"username"`
    Text     string `json:"text"`
    QueuedAt string `json:"queued_at"`
}
