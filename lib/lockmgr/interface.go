package lockmgr

// Mode selects whether bucket locks are taken shared or exclusive
type Mode int

const (
	ModeRead  Mode = iota // shared, used by read batches and snapshots
	ModeWrite             // exclusive, used by write and delete batches
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ILockManager defines the interface for a bucket lock provider.
type ILockManager interface {
	// Lock acquires the locks of the given buckets in ascending index order.
	// Duplicates and ordering of the input are irrelevant. The returned function
	// releases all acquired locks and must be called exactly once.
	Lock(buckets []int, mode Mode) (unlock func())

	// LockAll acquires the locks of all buckets in ascending index order.
	LockAll(mode Mode) (unlock func())

	// Buckets returns the number of buckets managed by this lock manager.
	Buckets() int
}
