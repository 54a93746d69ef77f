// Package bucket implements the db.KVDB interface as a fixed-size hash table.
//
// Keys are assigned to buckets by their first character: one bucket per letter,
// digits share the first ten buckets. Within a bucket entries are kept in
// insertion order and found by a linear scan. Every bucket is guarded by one
// reader/writer lock that is managed by the lockmgr package.
//
// Batches:
//
//	Write, Read and Delete first sort their keys (for writes the values travel
//	with their keys). Then they lock every touched bucket in ascending order, apply
//	all per-key operations and release. Duplicate keys are legal. A sorted batch
//	is applied in order, so the last duplicate of a write wins.
//
// Subscriptions:
//
//	Every entry carries the SubscriberIDs of its subscribers. Subscribing to a
//	missing key stores the handle in the pending list of the bucket. The next
//	write creating the key adopts it. On every write and delete the configured
//	db.INotifier is called while the bucket write lock is still held.
//
// Limits:
//
//	Keys and values longer than DBOptions.MaxStringLength are truncated.
//	DBOptions.MaxSubscribersPerEntry bounds the subscriber set of a single key.
//
// Usage:
//
//	table := bucket.NewBucketDB(&bucket.DBOptions{
//		NumBuckets:      26,
//		MaxStringLength: 40,
//		Notifier:        hub,
//	})
//	table.Write([]db.Pair{{Key: "a", Value: "1"}})
package bucket
