// Package db provides the interface for the in-memory tables backing the store.
// It defines the KVDB interface plus the small value types that travel through it.
//
// The package focuses on:
//   - Multi-key batch operations (Write, Read, Delete) with per-key results
//   - Consistent point-in-time iteration (Snapshot) used by SHOW and BACKUP
//   - Change subscriptions stored directly on the entries
//
// Key Components:
//
//   - KVDB Interface: The core interface that all table implementations must satisfy.
//
//   - SubscriberID: A non-owning handle to a subscriber. Entries never hold a
//     reference to the subscriber itself, so a subscriber can be torn down at any
//     time as long as UnsubscribeAll is called before its handle is reused.
//
//   - INotifier: The callback invoked by an implementation whenever a subscribed
//     key is written or deleted. The callback runs while the bucket lock of the key
//     is held, which orders notifications causally after the mutation.
//
// Note on Locking:
//   - Implementations partition their keys into buckets with one reader/writer lock each.
//   - Every batch sorts its keys before acquiring any lock and acquires bucket locks
//     in ascending bucket order. Snapshot acquires read locks on all buckets in the
//     same order. This total order prevents circular waits between batches.
//   - Release order is irrelevant.
//
// Note on Subscriptions:
//   - Subscribing to a key that does not exist is allowed. The subscription is kept
//     pending and is attached to the entry once the key is written.
//   - Deleting a key ends all subscriptions on it after the deletion was delivered.
package db
