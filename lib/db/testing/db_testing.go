package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation.
// The notifier must be wired into the instance so that subscription tests can observe changes.
type DBFactory func(notifier db.INotifier) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, factory(nil))
		})

		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, factory(nil))
		})

		t.Run("DuplicateKeys", func(t *testing.T) {
			testDuplicateKeys(t, factory(nil))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(nil))
		})

		t.Run("DeleteNotifiesOnce", func(t *testing.T) {
			rec := NewRecordingNotifier()
			testDeleteNotifiesOnce(t, factory(rec), rec)
		})

		t.Run("Snapshot", func(t *testing.T) {
			testSnapshot(t, factory(nil))
		})

		t.Run("SubscribeExisting", func(t *testing.T) {
			rec := NewRecordingNotifier()
			testSubscribeExisting(t, factory(rec), rec)
		})

		t.Run("SubscribePending", func(t *testing.T) {
			rec := NewRecordingNotifier()
			testSubscribePending(t, factory(rec), rec)
		})

		t.Run("Unsubscribe", func(t *testing.T) {
			rec := NewRecordingNotifier()
			testUnsubscribe(t, factory(rec), rec)
		})

		t.Run("UnsubscribeAll", func(t *testing.T) {
			rec := NewRecordingNotifier()
			testUnsubscribeAll(t, factory(rec), rec)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(nil))
		})

		t.Run("DeadlockFreedom", func(t *testing.T) {
			testDeadlockFreedom(t, factory(nil))
		})

		t.Run("MutualExclusion", func(t *testing.T) {
			testMutualExclusion(t, factory(nil))
		})

		t.Run("ConsistentSnapshot", func(t *testing.T) {
			testConsistentSnapshot(t, factory(nil))
		})
	})
}

// --------------------------------------------------------------------------
// Recording Notifier
// --------------------------------------------------------------------------

// Delivery is a single change as seen by one subscriber
type Delivery struct {
	Subscriber db.SubscriberID
	Change     db.Change
}

// RecordingNotifier is a db.INotifier that records every delivery
type RecordingNotifier struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewRecordingNotifier creates an empty RecordingNotifier
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (r *RecordingNotifier) Notify(subscribers []db.SubscriberID, change db.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subscribers {
		r.deliveries = append(r.deliveries, Delivery{Subscriber: s, Change: change})
	}
}

// For returns all changes delivered to subscriber
func (r *RecordingNotifier) For(subscriber db.SubscriberID) []db.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changes []db.Change
	for _, d := range r.deliveries {
		if d.Subscriber == subscriber {
			changes = append(changes, d.Change)
		}
	}
	return changes
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}})

	res := database.Read([]string{"a"})
	if len(res) != 1 || !res[0].Found || res[0].Value != "1" {
		t.Fatalf("Expected (a,1) after Write, got %v", res)
	}

	database.Write([]db.Pair{{Key: "a", Value: "2"}})
	res = database.Read([]string{"a"})
	if res[0].Value != "2" {
		t.Errorf("Expected value 2 after overwrite, got %s", res[0].Value)
	}
}

func testReadMissing(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}})

	res := database.Read([]string{"z", "a"})
	if len(res) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(res))
	}
	if res[0].Key != "a" || !res[0].Found || res[0].Value != "1" {
		t.Errorf("Expected (a,1) first, got %+v", res[0])
	}
	if res[1].Key != "z" || res[1].Found {
		t.Errorf("Expected z to be missing, got %+v", res[1])
	}
}

func testDuplicateKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "k", Value: "first"}, {Key: "j", Value: "x"}, {Key: "k", Value: "last"}})

	res := database.Read([]string{"k", "k"})
	if len(res) != 2 {
		t.Fatalf("Expected duplicate reads to be answered independently, got %d results", len(res))
	}
	for _, r := range res {
		if r.Value != "last" {
			t.Errorf("Expected last write to win, got %s", r.Value)
		}
	}

	del := database.Delete([]string{"k", "k"})
	if len(del) != 2 || !del[0].Found || del[1].Found {
		t.Errorf("Expected first duplicate delete to hit and second to miss, got %v", del)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	del := database.Delete([]string{"missing"})
	if len(del) != 1 || del[0].Found {
		t.Errorf("Expected missing key to be reported, got %v", del)
	}
	if info := database.GetInfo(); info.Keys != 0 {
		t.Errorf("Expected table to stay empty, got %d keys", info.Keys)
	}

	database.Write([]db.Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})
	del = database.Delete([]string{"b", "missing", "a"})
	if len(del) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(del))
	}
	for _, d := range del {
		if d.Key == "missing" && d.Found {
			t.Errorf("Expected missing key to be reported as not found")
		}
		if d.Key != "missing" && !d.Found {
			t.Errorf("Expected key %s to be deleted", d.Key)
		}
	}

	res := database.Read([]string{"a", "b"})
	for _, r := range res {
		if r.Found {
			t.Errorf("Expected key %s to be gone after Delete", r.Key)
		}
	}
}

func testDeleteNotifiesOnce(t *testing.T, database db.KVDB, rec *RecordingNotifier) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}})
	database.Subscribe("a", 1)
	database.Subscribe("a", 2)

	database.Delete([]string{"a"})
	database.Delete([]string{"a"})

	for _, id := range []db.SubscriberID{1, 2} {
		changes := rec.For(id)
		if len(changes) != 1 {
			t.Fatalf("Subscriber %d: expected exactly one notification, got %v", id, changes)
		}
		if !changes[0].Deleted || changes[0].Key != "a" {
			t.Errorf("Subscriber %d: expected deletion of a, got %+v", id, changes[0])
		}
	}

	// the subscription ends with the entry
	database.Write([]db.Pair{{Key: "a", Value: "again"}})
	if changes := rec.For(1); len(changes) != 1 {
		t.Errorf("Expected no notification after the entry was recreated, got %v", changes)
	}
}

func testSnapshot(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "b", Value: "2"}})
	database.Write([]db.Pair{{Key: "a", Value: "1"}})

	got := map[string]string{}
	err := database.Snapshot(func(p db.Pair) error {
		got[p.Key] = p.Value
		return nil
	})
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Errorf("Expected exactly (a,1) and (b,2), got %v", got)
	}

	// errors from the visitor stop the iteration
	stop := fmt.Errorf("stop")
	visited := 0
	err = database.Snapshot(func(p db.Pair) error {
		visited++
		return stop
	})
	if err != stop || visited != 1 {
		t.Errorf("Expected iteration to stop after first error, visited %d, err %v", visited, err)
	}
}

func testSubscribeExisting(t *testing.T, database db.KVDB, rec *RecordingNotifier) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}})

	existed, res := database.Subscribe("a", 1)
	if !existed || res != db.SubscribeAdded {
		t.Fatalf("Expected (true, added), got (%t, %v)", existed, res)
	}
	if _, res = database.Subscribe("a", 1); res != db.SubscribeExists {
		t.Errorf("Expected duplicate subscribe to report SubscribeExists, got %v", res)
	}

	database.Write([]db.Pair{{Key: "a", Value: "2"}, {Key: "b", Value: "x"}})

	changes := rec.For(1)
	if len(changes) != 1 {
		t.Fatalf("Expected one notification, got %v", changes)
	}
	if changes[0].Key != "a" || changes[0].Value != "2" || changes[0].Deleted {
		t.Errorf("Unexpected notification %+v", changes[0])
	}
}

func testSubscribePending(t *testing.T, database db.KVDB, rec *RecordingNotifier) {
	defer database.Close()

	existed, res := database.Subscribe("later", 5)
	if existed || res != db.SubscribeAdded {
		t.Fatalf("Expected (false, added) for missing key, got (%t, %v)", existed, res)
	}

	database.Write([]db.Pair{{Key: "later", Value: "now"}})

	changes := rec.For(5)
	if len(changes) != 1 || changes[0].Value != "now" {
		t.Fatalf("Expected pending subscriber to be notified on creation, got %v", changes)
	}

	if existed, res = database.Subscribe("later", 5); !existed || res != db.SubscribeExists {
		t.Errorf("Expected pending subscription to be adopted by the entry, got (%t, %v)", existed, res)
	}
}

func testUnsubscribe(t *testing.T, database db.KVDB, rec *RecordingNotifier) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}})
	database.Subscribe("a", 1)
	database.Subscribe("pending", 1)

	if !database.Unsubscribe("a", 1) {
		t.Errorf("Expected existing subscription to be removed")
	}
	if database.Unsubscribe("a", 1) {
		t.Errorf("Expected second unsubscribe to report no subscription")
	}
	if !database.Unsubscribe("pending", 1) {
		t.Errorf("Expected pending subscription to be removed")
	}
	if database.Unsubscribe("never", 1) {
		t.Errorf("Expected unsubscribe of unknown key to report no subscription")
	}

	database.Write([]db.Pair{{Key: "a", Value: "2"}, {Key: "pending", Value: "x"}})
	if changes := rec.For(1); len(changes) != 0 {
		t.Errorf("Expected no notifications after unsubscribe, got %v", changes)
	}
}

func testUnsubscribeAll(t *testing.T, database db.KVDB, rec *RecordingNotifier) {
	defer database.Close()

	database.Write([]db.Pair{{Key: "a", Value: "1"}, {Key: "m", Value: "1"}, {Key: "z", Value: "1"}})
	for _, k := range []string{"a", "m", "z", "pending"} {
		database.Subscribe(k, 1)
	}
	database.Subscribe("a", 2)

	if removed := database.UnsubscribeAll(1); removed != 4 {
		t.Errorf("Expected 4 removed subscriptions, got %d", removed)
	}

	database.Write([]db.Pair{{Key: "a", Value: "2"}, {Key: "m", Value: "2"}, {Key: "z", Value: "2"}, {Key: "pending", Value: "2"}})

	if changes := rec.For(1); len(changes) != 0 {
		t.Errorf("Expected no notifications for swept subscriber, got %v", changes)
	}
	if changes := rec.For(2); len(changes) != 1 {
		t.Errorf("Expected other subscribers to be untouched, got %v", changes)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	// empty batches are no-ops
	database.Write(nil)
	if res := database.Read(nil); len(res) != 0 {
		t.Errorf("Expected empty read result, got %v", res)
	}
	if res := database.Delete([]string{}); len(res) != 0 {
		t.Errorf("Expected empty delete result, got %v", res)
	}

	// empty values and odd keys
	database.Write([]db.Pair{{Key: "e", Value: ""}, {Key: "#hash", Value: "v"}, {Key: "", Value: "empty"}})
	res := database.Read([]string{"e", "#hash", ""})
	for _, r := range res {
		if !r.Found {
			t.Errorf("Expected key %q to exist", r.Key)
		}
	}

	// keys differing in case are distinct but share a bucket
	database.Write([]db.Pair{{Key: "Case", Value: "upper"}, {Key: "case", Value: "lower"}})
	res = database.Read([]string{"Case", "case"})
	if res[0].Value != "upper" || res[1].Value != "lower" {
		t.Errorf("Expected case sensitive keys, got %v", res)
	}
}

// testDeadlockFreedom issues many concurrent batches with overlapping keys in arbitrary order
func testDeadlockFreedom(t *testing.T, database db.KVDB) {
	defer database.Close()

	keys := []string{"a", "b", "c", "m", "n", "y", "z", "0", "9"}
	const workers = 16

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				batch := make([]string, 0, 4)
				for j := 0; j < 4; j++ {
					batch = append(batch, keys[(w*7+i*3+j*5)%len(keys)])
				}
				switch (w + i) % 3 {
				case 0:
					pairs := make([]db.Pair, len(batch))
					for j, k := range batch {
						pairs[len(batch)-1-j] = db.Pair{Key: k, Value: fmt.Sprintf("%d-%d", w, i)}
					}
					database.Write(pairs)
				case 1:
					database.Read(batch)
				default:
					database.Delete(batch)
				}
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("Concurrent batches did not complete, possible deadlock")
	}
}

// testMutualExclusion verifies that a batch write is visible atomically to batch reads
func testMutualExclusion(t *testing.T, database db.KVDB) {
	defer database.Close()

	keys := []string{"alpha", "mike", "zulu"}
	write := func(v string) {
		pairs := make([]db.Pair, len(keys))
		for i, k := range keys {
			pairs[i] = db.Pair{Key: k, Value: v}
		}
		database.Write(pairs)
	}
	write("init")

	var (
		wg     sync.WaitGroup
		stop   atomic.Bool
		errors atomic.Int32
	)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				write(fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for !stop.Load() {
			res := database.Read([]string{"zulu", "alpha", "mike"})
			for _, r := range res[1:] {
				if r.Value != res[0].Value {
					errors.Add(1)
				}
			}
		}
	}()

	wg.Wait()
	stop.Store(true)
	<-readerDone

	if n := errors.Load(); n > 0 {
		t.Fatalf("Observed %d torn batch reads", n)
	}
}

// testConsistentSnapshot verifies that a snapshot never observes half of a batch
func testConsistentSnapshot(t *testing.T, database db.KVDB) {
	defer database.Close()

	keys := []string{"b1", "k1", "x1"}
	var stop atomic.Bool

	done := make(chan struct{})
	go func() {
		defer close(done)
		i := 0
		for !stop.Load() {
			pairs := make([]db.Pair, len(keys))
			for j, k := range keys {
				pairs[j] = db.Pair{Key: k, Value: fmt.Sprint(i)}
			}
			database.Write(pairs)
			i++
		}
	}()

	for i := 0; i < 200; i++ {
		values := map[string]bool{}
		_ = database.Snapshot(func(p db.Pair) error {
			values[p.Value] = true
			return nil
		})
		if len(values) > 1 {
			t.Errorf("Snapshot observed values of different batches: %v", values)
			break
		}
	}

	stop.Store(true)
	<-done
}
