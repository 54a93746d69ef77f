package server

import (
	"context"

	"github.com/ValentinKolb/sKV/rpc/common"
	"golang.org/x/sync/semaphore"
)

// admission is the bounded hand-off between the register reader (producer) and the
// session workers (consumers).
//
// The producer waits for a free slot, enqueues the Connect request and thereby
// signals that a request is available. A consumer waits until a request is available
// and dequeues it. The slot is only given back when the session of the request ended,
// so a pool of n workers never admits more than n sessions.
//
// Thread-safety: All methods are thread-safe.
type admission struct {
	free      *semaphore.Weighted
	available chan *common.Message
}

func newAdmission(size int) *admission {
	return &admission{
		free:      semaphore.NewWeighted(int64(size)),
		available: make(chan *common.Message, size),
	}
}

// Admit blocks until a slot is free and enqueues req.
// It fails only if ctx is done before a slot became free.
func (a *admission) Admit(ctx context.Context, req *common.Message) error {
	if err := a.free.Acquire(ctx, 1); err != nil {
		return err
	}
	// Never blocks, every queued request holds one of the cap(available) slots
	a.available <- req
	return nil
}

// Next blocks until a request is available and dequeues it
func (a *admission) Next(ctx context.Context) (*common.Message, error) {
	select {
	case req := <-a.available:
		return req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release gives back the slot of an ended session
func (a *admission) Release() {
	a.free.Release(1)
}
