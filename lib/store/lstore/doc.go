// Package lstore implements the local, in-memory store based on the
// store.IStore interface. It wraps a db.KVDB implementation and adds the
// behaviour the table itself does not know about. Data is stored entirely
// in memory and is not persisted between process restarts.
//
// Key Features:
//   - Lifecycle checks: every call after Close fails with store.ErrNotInitialized
//   - Capacity limits for batch size and subscriptions per subscriber
//   - A notification hub (notify.Hub) wired into the table as its notifier
//   - Bounded background backups through backup.Manager
//
// Implementation Details:
//
//   - Lifecycle: Operations hold a read lock on the store's lifecycle lock while
//     they run, Close takes the write lock. Close therefore waits for running
//     operations and outstanding backups before the table is released.
//
//   - Subscriptions: A subscription slot is reserved in the hub before the table is
//     touched. If the table refuses the subscription, or the subscriber was already
//     subscribed, the slot is given back, so a rejected call never changes state.
//     Deletions end the subscriptions on the deleted key and free their slots.
//
//   - Show and Backup: Both render "(key, value)" lines while every bucket is
//     read-locked. Show writes the rendered bytes to its writer after the locks are
//     released, Backup hands them to the backup sink in the background.
//
// Usage Example:
//
//	factory := func(n db.INotifier) db.KVDB {
//		return bucket.NewBucketDB(&bucket.DBOptions{Notifier: n})
//	}
//	s := lstore.NewLocalStore(factory, lstore.Options{MaxSubscriptions: 8})
//	defer s.Close()
//
//	_ = s.Write([]db.Pair{{Key: "a", Value: "1"}})
//	results, _ := s.Read([]string{"a", "z"})
package lstore
