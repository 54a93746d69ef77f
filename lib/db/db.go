package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBucket Implementation = "bucket"
)

// Pair is a single key-value pair as it is passed into and out of batch operations
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReadResult is the per-key outcome of a Read batch
type ReadResult struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// DeleteResult is the per-key outcome of a Delete batch
type DeleteResult struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
}

// SubscriberID is a non-owning handle to a subscriber (e.g. a client session).
// Entries only store this handle, never the subscriber itself.
type SubscriberID uint64

// Change describes a mutation of a single key as it is delivered to subscribers
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// INotifier receives change events from a database.
// Notify is called while the bucket write lock of the changed key is held, so
// implementations must not block and must not call back into the database.
type INotifier interface {
	Notify(subscribers []SubscriberID, change Change)
}

// SubscribeResult is the outcome of a Subscribe call
type SubscribeResult int

const (
	SubscribeAdded   SubscribeResult = iota // the subscription was recorded
	SubscribeExists                         // the subscriber was already subscribed to this key
	SubscribeRefused                        // the per-entry subscriber limit is reached
)

type DatabaseInfo struct {
	Keys          int            `json:"keys"`
	Buckets       int            `json:"buckets"`
	BucketSizes   []int          `json:"bucket_sizes"`
	Subscriptions int            `json:"subscriptions"`
	DbType        Implementation `json:"db_type"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for in-memory key-value tables with batch operations
// and per-key change subscriptions.
//
// All batch operations must follow the same locking discipline: the keys of the
// batch are sorted first, then every touched bucket is locked in ascending index
// order. This makes any number of concurrent batches deadlock free.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Write inserts or updates all pairs of the batch.
	// Duplicate keys are legal, the last pair (in sorted order) wins.
	// Subscribers of every written key are notified with the new value.
	Write(pairs []Pair)

	// Delete removes all keys of the batch and reports per key whether it existed.
	// Subscribers of a removed key are notified with a deletion marker and their
	// subscription ends together with the entry.
	Delete(keys []string) (results []DeleteResult)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Read returns a copy of the value for every key of the batch, in sorted key order.
	Read(keys []string) (results []ReadResult)

	// Snapshot calls visit for every pair in the table while holding a read lock on
	// all buckets. The view is therefore consistent and point-in-time.
	// Iteration stops at the first error returned by visit.
	Snapshot(visit func(pair Pair) error) (err error)

	// --------------------------------------------------------------------------
	// Subscription Operations
	// --------------------------------------------------------------------------

	// Subscribe records id as a subscriber of key. The subscription is recorded even if
	// the key does not exist yet; existed reports whether it did.
	Subscribe(key string, id SubscriberID) (existed bool, result SubscribeResult)

	// Unsubscribe removes id from the subscribers of key.
	// The return value reports whether a subscription was removed.
	Unsubscribe(key string, id SubscriberID) (removed bool)

	// UnsubscribeAll removes id from the subscriber set of every key in the table
	// and returns the number of removed subscriptions.
	UnsubscribeAll(id SubscriberID) (removed int)

	// --------------------------------------------------------------------------
	// Misc
	// --------------------------------------------------------------------------

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases all entries. The database must not be used afterward.
	Close() (err error)
}
