package booking

import (
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
    l := NewKeyedLock()

    var mu sync.Mutex
    inSection := 0
    maxSeen := 0

    var wg sync.WaitGroup
    for i := 0; i < 16; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            release := l.Acquire("room:1:2026-09-01")
            defer release()

            mu.Lock()
            inSection++
            if inSection > maxSeen {
                maxSeen = inSection
            }
            mu.Unlock()

            time.Sleep(time.Millisecond)

            mu.Lock()
            inSection--
            mu.Unlock()
        }()
    }
    wg.Wait()

    assert.Equal(t, 1, maxSeen, "two goroutines entered the same keyed section")
}

func TestKeyedLockIndependentKeys(t *testing.T) {
    l := NewKeyedLock()

    releaseA := l.Acquire("room:1:2026-09-01")
    defer releaseA()

    done := make(chan struct{})
    go func() {
        release := l.Acquire("room:2:2026-09-01")
        release()
        close(done)
    }()

    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("a different key blocked behind an unrelated holder")
    }
}

func TestKeyedLockCleansUpEntries(t *testing.T) {
    l := NewKeyedLock()

    release := l.Acquire("pool:d:downtown")
    release()

    l.mu.Lock()
    defer l.mu.Unlock()
    assert.Empty(t, l.held)
}

func TestLockKeys(t *testing.T) {
    date := mustDate(t, "2026-09-01")
    assert.Equal(t, "room:7:2026-09-01", RoomDateKey(7, date))
    assert.Equal(t, "pool:d:downtown", PoolNameKey("downtown"))
    assert.Equal(t, "pool:p:42", PoolUserKey(42))
}
