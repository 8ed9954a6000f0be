// Property-based tests for session lock serialization.
package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// For any set of concurrent deposits against one session's ledger total,
// the final total must equal sequential execution of all of them.
func TestConcurrentLedgerSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Uint64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]uint64, numOps)
		expected := initial
		for i := 0; i < numOps; i++ {
			amounts[i] = rapid.Uint64Range(1, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		sessionID := rapid.StringMatching(`[a-z0-9]{1,10}`).Draw(t, "sessionID")

		sl := NewSessionLock()
		total := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(a uint64) {
				defer wg.Done()
				sl.Lock(sessionID)
				defer sl.Unlock(sessionID)
				total += a
			}(amount)
		}
		wg.Wait()

		if total != expected {
			t.Fatalf("ledger total mismatch: expected %d, got %d (initial=%d, numOps=%d)",
				expected, total, initial, numOps)
		}
	})
}

// WithLock serializes read-modify-write cycles on a shared counter.
func TestWithLockSerializationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		perOp := rapid.Uint64Range(1, 100).Draw(t, "perOp")

		sl := NewSessionLock()
		var total uint64
		expected := uint64(numOps) * perOp

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = sl.WithLock("match1", func() error {
					total += perOp
					return nil
				})
			}()
		}
		wg.Wait()

		if total != expected {
			t.Fatalf("WithLock total mismatch: expected %d, got %d", expected, total)
		}
	})
}

// Locks for different sessions never serialize against each other: all
// per-session totals come out exact even when every session runs at once.
func TestIndependentSessionLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numSessions := rapid.IntRange(2, 10).Draw(t, "numSessions")
		opsPerSession := rapid.IntRange(5, 20).Draw(t, "opsPerSession")

		sl := NewSessionLock()
		totals := make([]uint64, numSessions)

		var wg sync.WaitGroup
		wg.Add(numSessions * opsPerSession)
		for s := 0; s < numSessions; s++ {
			id := fmt.Sprintf("match%d", s)
			for j := 0; j < opsPerSession; j++ {
				go func(s int, id string) {
					defer wg.Done()
					sl.Lock(id)
					defer sl.Unlock(id)
					totals[s] += 10
				}(s, id)
			}
		}
		wg.Wait()

		for s := 0; s < numSessions; s++ {
			want := uint64(opsPerSession) * 10
			if totals[s] != want {
				t.Fatalf("session %d total mismatch: expected %d, got %d", s, want, totals[s])
			}
		}
	})
}

// TryLock grants at most one holder at a time and leaves the lock free
// once every holder has released it.
func TestTryLockExclusivityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sessionID := rapid.StringMatching(`[a-z0-9]{1,10}`).Draw(t, "sessionID")
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		sl := NewSessionLock()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh
				if sl.TryLock(sessionID) {
					successCount.Add(1)
					sl.Unlock(sessionID)
				}
			}()
		}

		close(startCh)
		wg.Wait()

		if successCount.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed, got %d", successCount.Load())
		}
		if !sl.TryLock(sessionID) {
			t.Fatal("lock should be free after all holders released it")
		}
		sl.Unlock(sessionID)
	})
}

// Every Lock paired with an Unlock leaves the lock acquirable.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sessionID := rapid.StringMatching(`[a-z0-9]{1,10}`).Draw(t, "sessionID")
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		sl := NewSessionLock()
		for i := 0; i < numCycles; i++ {
			sl.Lock(sessionID)
			sl.Unlock(sessionID)
		}

		if !sl.TryLock(sessionID) {
			t.Fatal("lock should be available after symmetric lock/unlock cycles")
		}
		sl.Unlock(sessionID)
	})
}
