package internal

import (
	"github.com/ValentinKolb/sKV/lib/db"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with subscribers)
// --------------------------------------------------------------------------

// Entry stores a key-value pair together with the handles of its subscribers.
// The key never changes after creation.
type Entry struct {
	Key         string
	Value       string
	Subscribers []db.SubscriberID
}

// --------------------------------------------------------------------------
// Bucket Type (partition of the table)
// --------------------------------------------------------------------------

// Bucket holds all entries whose key hashes to the same index. Lookups are a
// linear scan, buckets are expected to stay small.
//
// Thread-safety: A bucket has no lock of its own. The caller must hold the bucket
// lock of the owning table (read lock for Find, write lock for everything else).
type Bucket struct {
	Entries []*Entry

	// Pending holds subscribers of keys that do not exist (yet)
	Pending map[string][]db.SubscriberID
}

// NewBucket creates an empty bucket
func NewBucket() *Bucket {
	return &Bucket{
		Pending: make(map[string][]db.SubscriberID),
	}
}

// Find returns the entry for key or nil
func (b *Bucket) Find(key string) *Entry {
	for _, e := range b.Entries {
		if e.Key == key {
			return e
		}
	}
	return nil
}

// Insert appends a new entry for key. Pending subscribers of the key are moved
// onto the new entry. The caller must make sure the key does not exist.
func (b *Bucket) Insert(key, value string) *Entry {
	e := &Entry{Key: key, Value: value}
	if subs, ok := b.Pending[key]; ok {
		e.Subscribers = subs
		delete(b.Pending, key)
	}
	b.Entries = append(b.Entries, e)
	return e
}

// Remove unlinks the entry for key and returns it, or nil if the key does not exist
func (b *Bucket) Remove(key string) *Entry {
	for i, e := range b.Entries {
		if e.Key == key {
			copy(b.Entries[i:], b.Entries[i+1:])
			b.Entries[len(b.Entries)-1] = nil
			b.Entries = b.Entries[:len(b.Entries)-1]
			return e
		}
	}
	return nil
}

// Subscriptions returns the number of subscriptions held in this bucket, pending ones included
func (b *Bucket) Subscriptions() int {
	n := 0
	for _, e := range b.Entries {
		n += len(e.Subscribers)
	}
	for _, subs := range b.Pending {
		n += len(subs)
	}
	return n
}

// RemoveSubscriber removes id from every entry and every pending list of the bucket
// and returns the number of removed subscriptions.
func (b *Bucket) RemoveSubscriber(id db.SubscriberID) int {
	removed := 0
	for _, e := range b.Entries {
		var ok bool
		if e.Subscribers, ok = WithoutSubscriber(e.Subscribers, id); ok {
			removed++
		}
	}
	for key, subs := range b.Pending {
		rest, ok := WithoutSubscriber(subs, id)
		if !ok {
			continue
		}
		removed++
		if len(rest) == 0 {
			delete(b.Pending, key)
		} else {
			b.Pending[key] = rest
		}
	}
	return removed
}

// --------------------------------------------------------------------------
// Subscriber Set Helper
// --------------------------------------------------------------------------

// ContainsSubscriber reports whether id is in subs
func ContainsSubscriber(subs []db.SubscriberID, id db.SubscriberID) bool {
	for _, s := range subs {
		if s == id {
			return true
		}
	}
	return false
}

// WithoutSubscriber removes id from subs in place and reports whether it was present
func WithoutSubscriber(subs []db.SubscriberID, id db.SubscriberID) ([]db.SubscriberID, bool) {
	for i, s := range subs {
		if s == id {
			return append(subs[:i], subs[i+1:]...), true
		}
	}
	return subs, false
}
