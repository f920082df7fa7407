package staffing

import (
	"sync"

	"github.com/google/uuid"
)

// LockMap serializes staffing work per deal so two pods can never be
// marked active at the same time. Entries are one mutex per deal ever
// touched; bounded by the deal count.
type LockMap struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLockMap() *LockMap {
	return &LockMap{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (lm *LockMap) get(dealID uuid.UUID) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	m, ok := lm.locks[dealID]
	if !ok {
		m = &sync.Mutex{}
		lm.locks[dealID] = m
	}
	return m
}

// Acquire blocks until the deal lock is held and returns the release func.
func (lm *LockMap) Acquire(dealID uuid.UUID) func() {
	m := lm.get(dealID)
	m.Lock()
	return m.Unlock
}

// TryAcquire takes the deal lock without blocking. The second return is
// false when another request already holds it.
func (lm *LockMap) TryAcquire(dealID uuid.UUID) (func(), bool) {
	m := lm.get(dealID)
	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
