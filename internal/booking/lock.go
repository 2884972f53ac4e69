package booking

import (
    "fmt"
    "sync"
    "time"
)

// KeyedLock serializes critical sections per string key.  The overlap
// check and the insert of a temporary reservation are a check-then-act
// sequence; two concurrent requests for the same room and date could both
// pass the check before either inserts.  Holding the (room, date) key
// across check and insert closes that race.  Pool debits take the same
// lock keyed by pool identity.  Entries are reference-counted and removed
// once the last holder releases, so the map does not grow with key
// cardinality.
type KeyedLock struct {
    mu   sync.Mutex
    held map[string]*keyEntry
}

type keyEntry struct {
    mu   sync.Mutex
    refs int
}

// NewKeyedLock returns an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
    return &KeyedLock{held: make(map[string]*keyEntry)}
}

// Acquire blocks until the key's lock is held and returns the release
// function.  Release must be called exactly once.
func (l *KeyedLock) Acquire(key string) func() {
    l.mu.Lock()
    e, ok := l.held[key]
    if !ok {
        e = &keyEntry{}
        l.held[key] = e
    }
    e.refs++
    l.mu.Unlock()

    e.mu.Lock()
    return func() {
        e.mu.Unlock()
        l.mu.Lock()
        e.refs--
        if e.refs == 0 {
            delete(l.held, key)
        }
        l.mu.Unlock()
    }
}

// RoomDateKey builds the serialization key for one room on one date.
func RoomDateKey(roomID uint64, date time.Time) string {
    return fmt.Sprintf("room:%d:%s", roomID, date.Format("2006-01-02"))
}

// PoolNameKey builds the serialization key for a department pool.
func PoolNameKey(name string) string { return "pool:d:" + name }

// PoolUserKey builds the serialization key for a personal pool.
func PoolUserKey(userID uint64) string { return fmt.Sprintf("pool:p:%d", userID) }
