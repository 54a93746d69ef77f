// Package lockmgr implements the bucket locking protocol used by the tables of the
// db package. Every bucket has its own reader/writer lock and multi-bucket
// operations acquire them through this package only.
//
// Core Functionality:
//   - Shared (read) and exclusive (write) locking of an arbitrary set of buckets
//   - Locking of all buckets for consistent snapshots
//   - A single release function per acquisition
//
// Implementation Approach:
//
//	Locks are always acquired in ascending bucket index order, independent of the
//	order in which the caller passes the indices. Duplicate indices are collapsed
//	so a bucket is never locked twice by the same acquisition. Because every
//	caller follows the same total order, no set of concurrent acquisitions can
//	form a circular wait.
//
//	Release order is not constrained.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. The release function returned by
//	Lock and LockAll is safe to call multiple times, only the first call releases.
//
// Fairness:
//
//	The package provides no fairness beyond the one of sync.RWMutex. A batch that
//	needs many buckets can be delayed indefinitely under adversarial scheduling,
//	but it can never deadlock.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(26)
//
//	unlock := lm.Lock([]int{25, 0, 3, 0}, lockmgr.ModeWrite) // locks 0, 3, 25
//	defer unlock()
package lockmgr
