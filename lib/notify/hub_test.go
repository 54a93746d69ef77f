package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
)

type recordingSink struct {
	mu      sync.Mutex
	changes []db.Change
	err     error
}

func (s *recordingSink) Push(change db.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, change)
	return nil
}

func TestHubRoutesChanges(t *testing.T) {
	hub := NewHub()
	a, b := &recordingSink{}, &recordingSink{}
	idA, idB := hub.Register(a), hub.Register(b)

	if idA == idB {
		t.Fatalf("Expected distinct handles, got %d twice", idA)
	}

	hub.Notify([]db.SubscriberID{idA}, db.Change{Key: "k", Value: "v"})
	hub.Notify([]db.SubscriberID{idA, idB}, db.Change{Key: "k", Deleted: true})

	if len(a.changes) != 2 {
		t.Errorf("Expected 2 changes for a, got %v", a.changes)
	}
	if len(b.changes) != 1 || !b.changes[0].Deleted {
		t.Errorf("Expected one deletion for b, got %v", b.changes)
	}
}

func TestHubSkipsUnknownAndFailingSinks(t *testing.T) {
	hub := NewHub()
	broken := &recordingSink{err: errors.New("broken pipe")}
	ok := &recordingSink{}
	idBroken, idOk := hub.Register(broken), hub.Register(ok)

	hub.Deregister(idBroken)
	hub.Notify([]db.SubscriberID{idBroken, 999, idOk}, db.Change{Key: "k", Value: "v"})

	if len(ok.changes) != 1 {
		t.Errorf("Expected delivery to healthy sink, got %v", ok.changes)
	}

	idBroken = hub.Register(broken)
	hub.Notify([]db.SubscriberID{idBroken, idOk}, db.Change{Key: "k", Value: "w"})
	if len(ok.changes) != 2 {
		t.Errorf("Expected failing sink not to affect other subscribers, got %v", ok.changes)
	}
}

func TestHubReserve(t *testing.T) {
	hub := NewHub()
	id := hub.Register(&recordingSink{})

	for i := 0; i < 3; i++ {
		if !hub.Reserve(id, 3) {
			t.Fatalf("Expected reservation %d to succeed", i)
		}
	}
	if hub.Reserve(id, 3) {
		t.Errorf("Expected reservation beyond the limit to fail")
	}
	if hub.Count(id) != 3 {
		t.Errorf("Expected count to stay at 3, got %d", hub.Count(id))
	}

	hub.Release(id)
	if !hub.Reserve(id, 3) {
		t.Errorf("Expected reservation to succeed after release")
	}

	// deletion ends a subscription
	hub.Notify([]db.SubscriberID{id}, db.Change{Key: "k", Deleted: true})
	if hub.Count(id) != 2 {
		t.Errorf("Expected deletion to free a slot, got count %d", hub.Count(id))
	}

	if hub.Reserve(12345, 0) {
		t.Errorf("Expected reservation for unknown subscriber to fail")
	}
}

func TestHubReserveConcurrent(t *testing.T) {
	hub := NewHub()
	id := hub.Register(&recordingSink{})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hub.Reserve(id, 10) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 10 {
		t.Errorf("Expected exactly 10 granted reservations, got %d", granted)
	}
}
