package lockmgr

import (
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	got := normalize([]int{5, 1, 5, 0, 25, 1}, 26)
	want := []int{0, 1, 5, 25}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizePanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for an out of range bucket")
		}
	}()
	normalize([]int{26}, 26)
}

func TestWriteLockIsExclusive(t *testing.T) {
	lm := NewLockManager(4)

	unlock := lm.Lock([]int{2}, ModeWrite)

	acquired := make(chan struct{})
	go func() {
		release := lm.Lock([]int{2, 3}, ModeRead)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatalf("read lock acquired while write lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatalf("read lock was not acquired after release")
	}
}

func TestReadLocksAreShared(t *testing.T) {
	lm := NewLockManager(4)

	unlock1 := lm.LockAll(ModeRead)
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2 := lm.Lock([]int{0, 1, 2, 3}, ModeRead)
		unlock2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("second reader blocked by first reader")
	}
}

func TestUnlockTwiceIsNoop(t *testing.T) {
	lm := NewLockManager(2)
	unlock := lm.Lock([]int{0, 1}, ModeWrite)
	unlock()
	unlock()

	// must not block
	unlock = lm.LockAll(ModeWrite)
	unlock()
}

// TestDeadlockFreedom runs many goroutines locking random, overlapping bucket sets
// in random order. With ascending acquisition every goroutine must finish.
func TestDeadlockFreedom(t *testing.T) {
	const (
		numBuckets = 26
		workers    = 32
		rounds     = 500
	)

	lm := NewLockManager(numBuckets)
	var (
		wg        sync.WaitGroup
		completed atomic.Int64
	)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < rounds; i++ {
				n := 1 + rnd.Intn(6)
				buckets := make([]int, n)
				for j := range buckets {
					buckets[j] = rnd.Intn(numBuckets)
				}
				mode := ModeWrite
				if rnd.Intn(2) == 0 {
					mode = ModeRead
				}
				unlock := lm.Lock(buckets, mode)
				completed.Add(1)
				unlock()
			}
		}(int64(w))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatalf("deadlock: only %d of %d acquisitions completed", completed.Load(), workers*rounds)
	}
}

// TestMutualExclusion verifies that two writers never hold the same bucket at once
func TestMutualExclusion(t *testing.T) {
	lm := NewLockManager(3)
	var (
		inside [3]atomic.Int32
		wg     sync.WaitGroup
	)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				buckets := []int{w % 3, (w + i) % 3}
				unlock := lm.Lock(buckets, ModeWrite)
				for _, b := range normalize(buckets, 3) {
					if inside[b].Add(1) != 1 {
						t.Errorf("bucket %d held by two writers", b)
					}
				}
				for _, b := range normalize(buckets, 3) {
					inside[b].Add(-1)
				}
				unlock()
			}
		}(w)
	}
	wg.Wait()
}
