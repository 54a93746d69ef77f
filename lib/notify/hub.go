package notify

import (
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("notify")

var (
	notificationsTotal   = metrics.GetOrCreateCounter("skv_notifications_total")
	notificationsDropped = metrics.GetOrCreateCounter("skv_notifications_dropped_total")
)

// ISink receives the changes of all keys a subscriber is subscribed to.
// Push is called while a bucket write lock is held and must therefore never block.
type ISink interface {
	Push(change db.Change) error
}

// subscriber is the hub side state of a registered sink
type subscriber struct {
	sink  ISink
	count atomic.Int64 // number of live subscriptions
}

// Hub maps subscriber handles to their sinks and keeps the per subscriber
// subscription count. It is the db.INotifier of a store.
//
// Thread-safety: All methods are thread-safe.
type Hub struct {
	subscribers *xsync.MapOf[db.SubscriberID, *subscriber]
	nextID      atomic.Uint64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: xsync.NewMapOf[db.SubscriberID, *subscriber](),
	}
}

// Register adds sink to the hub and returns its new handle. Handles are never reused.
func (h *Hub) Register(sink ISink) db.SubscriberID {
	id := db.SubscriberID(h.nextID.Add(1))
	h.subscribers.Store(id, &subscriber{sink: sink})
	return id
}

// Deregister invalidates the handle. Changes for it are silently discarded and
// reservations fail afterward. The caller sweeps the subscriptions of id out of the
// database once it is deregistered.
func (h *Hub) Deregister(id db.SubscriberID) {
	h.subscribers.Delete(id)
}

// Registered reports whether id is a live handle
func (h *Hub) Registered(id db.SubscriberID) bool {
	_, ok := h.subscribers.Load(id)
	return ok
}

// Reserve takes one subscription slot of id. It fails if id is unknown or already
// holds max subscriptions (max <= 0 means unlimited).
func (h *Hub) Reserve(id db.SubscriberID, max int) bool {
	sub, ok := h.subscribers.Load(id)
	if !ok {
		return false
	}
	for {
		n := sub.count.Load()
		if max > 0 && n >= int64(max) {
			return false
		}
		if sub.count.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release gives back one subscription slot of id
func (h *Hub) Release(id db.SubscriberID) {
	if sub, ok := h.subscribers.Load(id); ok {
		if sub.count.Add(-1) < 0 {
			sub.count.Store(0)
		}
	}
}

// Count returns the number of live subscriptions of id
func (h *Hub) Count(id db.SubscriberID) int {
	if sub, ok := h.subscribers.Load(id); ok {
		return int(sub.count.Load())
	}
	return 0
}

// Size returns the number of registered subscribers
func (h *Hub) Size() int {
	return h.subscribers.Size()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.INotifier)
// --------------------------------------------------------------------------

func (h *Hub) Notify(subscribers []db.SubscriberID, change db.Change) {
	for _, id := range subscribers {
		sub, ok := h.subscribers.Load(id)
		if !ok {
			continue
		}

		// a deletion ends the subscription together with the entry
		if change.Deleted {
			if sub.count.Add(-1) < 0 {
				sub.count.Store(0)
			}
		}

		if err := sub.sink.Push(change); err != nil {
			notificationsDropped.Inc()
			Logger.Warningf("dropped notification for key %q to subscriber %d: %v", change.Key, id, err)
			continue
		}
		notificationsTotal.Inc()
	}
}
