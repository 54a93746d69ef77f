package lockmgr

import (
	"fmt"
	"sync"
)

type lockMgrImpl struct {
	locks []sync.RWMutex
}

// NewLockManager creates a lock manager with one reader/writer lock per bucket.
func NewLockManager(numBuckets int) ILockManager {
	if numBuckets <= 0 {
		panic(fmt.Sprintf("lockmgr: invalid number of buckets %d", numBuckets))
	}
	return &lockMgrImpl{
		locks: make([]sync.RWMutex, numBuckets),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr.ILockManager)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) Lock(buckets []int, mode Mode) func() {
	ordered := normalize(buckets, len(lm.locks))
	for _, idx := range ordered {
		lm.acquire(idx, mode)
	}
	return lm.releaseFunc(ordered, mode)
}

func (lm *lockMgrImpl) LockAll(mode Mode) func() {
	all := make([]int, len(lm.locks))
	for i := range all {
		all[i] = i
		lm.acquire(i, mode)
	}
	return lm.releaseFunc(all, mode)
}

func (lm *lockMgrImpl) Buckets() int {
	return len(lm.locks)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) acquire(idx int, mode Mode) {
	if mode == ModeWrite {
		lm.locks[idx].Lock()
	} else {
		lm.locks[idx].RLock()
	}
}

// releaseFunc returns a function releasing the given locks. Calling it more than
// once is a no-op.
func (lm *lockMgrImpl) releaseFunc(held []int, mode Mode) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, idx := range held {
				if mode == ModeWrite {
					lm.locks[idx].Unlock()
				} else {
					lm.locks[idx].RUnlock()
				}
			}
		})
	}
}
