package bucket

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/bucket/internal"
	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Core Bucket database structure
// --------------------------------------------------------------------------

// bucketImpl implements a fixed-size hash table whose buckets are selected by the
// first character of the key
type bucketImpl struct {
	numBuckets int
	buckets    []*internal.Bucket
	locks      lockmgr.ILockManager
	notifier   db.INotifier

	maxStringLength        int
	maxSubscribersPerEntry int
}

// DBOptions configures the bucketImpl behavior during initialization
type DBOptions struct {
	NumBuckets             int          // Number of buckets (0 = util.DefaultBuckets)
	MaxStringLength        int          // Keys and values are truncated to this length (0 = unlimited)
	MaxSubscribersPerEntry int          // Max subscribers a single key can have (0 = unlimited)
	Notifier               db.INotifier // Receives change events for subscribed keys (nil = none)
}

// DefaultOptions returns the default bucketImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumBuckets: util.DefaultBuckets,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewBucketDB creates a new table with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewBucketDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	numBuckets := opts.NumBuckets
	if numBuckets <= 0 {
		numBuckets = util.DefaultBuckets
	}

	buckets := make([]*internal.Bucket, numBuckets)
	for i := range buckets {
		buckets[i] = internal.NewBucket()
	}

	return &bucketImpl{
		numBuckets:             numBuckets,
		buckets:                buckets,
		locks:                  lockmgr.NewLockManager(numBuckets),
		notifier:               opts.Notifier,
		maxStringLength:        opts.MaxStringLength,
		maxSubscribersPerEntry: opts.MaxSubscribersPerEntry,
	}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Write inserts or updates all pairs of the batch.
// The pairs are sorted by key (stable, so the last duplicate wins) and the touched
// buckets are write-locked in ascending order before any pair is applied.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *bucketImpl) Write(pairs []db.Pair) {
	if len(pairs) == 0 {
		return
	}

	truncated := make([]db.Pair, len(pairs))
	for i, p := range pairs {
		truncated[i] = db.Pair{
			Key:   util.Truncate(p.Key, b.maxStringLength),
			Value: util.Truncate(p.Value, b.maxStringLength),
		}
	}
	sorted := util.SortPairs(truncated)

	unlock := b.locks.Lock(b.bucketsOfPairs(sorted), lockmgr.ModeWrite)
	defer unlock()

	for _, p := range sorted {
		bucket := b.bucketFor(p.Key)
		entry := bucket.Find(p.Key)
		if entry == nil {
			entry = bucket.Insert(p.Key, p.Value)
		} else {
			entry.Value = p.Value
		}
		b.notify(entry, false)
	}
}

// Delete removes all keys of the batch and reports per key whether it existed.
// Results are returned in sorted key order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *bucketImpl) Delete(keys []string) []db.DeleteResult {
	if len(keys) == 0 {
		return nil
	}

	sorted := util.SortKeys(b.truncateKeys(keys))

	unlock := b.locks.Lock(util.BucketsOf(sorted, b.numBuckets), lockmgr.ModeWrite)
	defer unlock()

	results := make([]db.DeleteResult, len(sorted))
	for i, key := range sorted {
		entry := b.bucketFor(key).Remove(key)
		results[i] = db.DeleteResult{Key: key, Found: entry != nil}
		if entry != nil {
			b.notify(entry, true)
		}
	}
	return results
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Read returns a copy of the value of every key, in sorted key order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *bucketImpl) Read(keys []string) []db.ReadResult {
	if len(keys) == 0 {
		return nil
	}

	sorted := util.SortKeys(b.truncateKeys(keys))

	unlock := b.locks.Lock(util.BucketsOf(sorted, b.numBuckets), lockmgr.ModeRead)
	defer unlock()

	results := make([]db.ReadResult, len(sorted))
	for i, key := range sorted {
		results[i] = db.ReadResult{Key: key}
		if entry := b.bucketFor(key).Find(key); entry != nil {
			results[i].Value = entry.Value
			results[i].Found = true
		}
	}
	return results
}

// Snapshot visits all pairs, bucket by bucket, while every bucket is read-locked.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// It blocks all writers for the duration of the visit.
func (b *bucketImpl) Snapshot(visit func(pair db.Pair) error) error {
	unlock := b.locks.LockAll(lockmgr.ModeRead)
	defer unlock()

	for _, bucket := range b.buckets {
		for _, entry := range bucket.Entries {
			if err := visit(db.Pair{Key: entry.Key, Value: entry.Value}); err != nil {
				return err
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Subscriptions
// --------------------------------------------------------------------------

func (b *bucketImpl) Subscribe(key string, id db.SubscriberID) (bool, db.SubscribeResult) {
	key = util.Truncate(key, b.maxStringLength)
	idx := util.BucketIndex(key, b.numBuckets)

	unlock := b.locks.Lock([]int{idx}, lockmgr.ModeWrite)
	defer unlock()

	bucket := b.buckets[idx]
	if entry := bucket.Find(key); entry != nil {
		var result db.SubscribeResult
		entry.Subscribers, result = b.addSubscriber(entry.Subscribers, id)
		return true, result
	}

	subs, result := b.addSubscriber(bucket.Pending[key], id)
	if result == db.SubscribeAdded {
		bucket.Pending[key] = subs
	}
	return false, result
}

func (b *bucketImpl) Unsubscribe(key string, id db.SubscriberID) bool {
	key = util.Truncate(key, b.maxStringLength)
	idx := util.BucketIndex(key, b.numBuckets)

	unlock := b.locks.Lock([]int{idx}, lockmgr.ModeWrite)
	defer unlock()

	bucket := b.buckets[idx]
	if entry := bucket.Find(key); entry != nil {
		var removed bool
		entry.Subscribers, removed = internal.WithoutSubscriber(entry.Subscribers, id)
		return removed
	}

	rest, removed := internal.WithoutSubscriber(bucket.Pending[key], id)
	if removed {
		if len(rest) == 0 {
			delete(bucket.Pending, key)
		} else {
			bucket.Pending[key] = rest
		}
	}
	return removed
}

// UnsubscribeAll sweeps all buckets one at a time, in ascending order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *bucketImpl) UnsubscribeAll(id db.SubscriberID) int {
	removed := 0
	for idx, bucket := range b.buckets {
		unlock := b.locks.Lock([]int{idx}, lockmgr.ModeWrite)
		removed += bucket.RemoveSubscriber(id)
		unlock()
	}
	return removed
}

// --------------------------------------------------------------------------
// Misc Interface Methods
// --------------------------------------------------------------------------

func (b *bucketImpl) GetInfo() db.DatabaseInfo {
	unlock := b.locks.LockAll(lockmgr.ModeRead)
	defer unlock()

	info := db.DatabaseInfo{
		Buckets:     b.numBuckets,
		BucketSizes: make([]int, b.numBuckets),
		DbType:      db.ImplBucket,
	}
	for i, bucket := range b.buckets {
		info.BucketSizes[i] = len(bucket.Entries)
		info.Keys += len(bucket.Entries)
		info.Subscriptions += bucket.Subscriptions()
	}
	return info
}

func (b *bucketImpl) Close() error {
	unlock := b.locks.LockAll(lockmgr.ModeWrite)
	defer unlock()

	for i := range b.buckets {
		b.buckets[i] = internal.NewBucket()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (b *bucketImpl) bucketFor(key string) *internal.Bucket {
	return b.buckets[util.BucketIndex(key, b.numBuckets)]
}

func (b *bucketImpl) bucketsOfPairs(pairs []db.Pair) []int {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return util.BucketsOf(keys, b.numBuckets)
}

func (b *bucketImpl) truncateKeys(keys []string) []string {
	if b.maxStringLength <= 0 {
		return keys
	}
	truncated := make([]string, len(keys))
	for i, key := range keys {
		truncated[i] = util.Truncate(key, b.maxStringLength)
	}
	return truncated
}

// addSubscriber adds id to subs unless it is already present or the entry is full
func (b *bucketImpl) addSubscriber(subs []db.SubscriberID, id db.SubscriberID) ([]db.SubscriberID, db.SubscribeResult) {
	if internal.ContainsSubscriber(subs, id) {
		return subs, db.SubscribeExists
	}
	if b.maxSubscribersPerEntry > 0 && len(subs) >= b.maxSubscribersPerEntry {
		return subs, db.SubscribeRefused
	}
	return append(subs, id), db.SubscribeAdded
}

// notify hands the change of entry to the notifier. Must be called with the bucket
// write lock held. The notifier gets its own copy of the subscriber handles.
func (b *bucketImpl) notify(entry *internal.Entry, deleted bool) {
	if b.notifier == nil || len(entry.Subscribers) == 0 {
		return
	}

	subs := make([]db.SubscriberID, len(entry.Subscribers))
	copy(subs, entry.Subscribers)

	change := db.Change{Key: entry.Key, Deleted: deleted}
	if !deleted {
		change.Value = entry.Value
	}
	b.notifier.Notify(subs, change)
}
