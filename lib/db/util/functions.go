package util

import (
	"sort"

	"github.com/ValentinKolb/sKV/lib/db"
)

const (
	// DefaultBuckets is the number of buckets a table uses when none is configured.
	// Keys are hashed by their first character, so there is one bucket per letter.
	DefaultBuckets = 26
)

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// BucketIndex returns the bucket a key belongs to.
// Letters (case-insensitive) map to 0..25 and digits to 0..9. Every other first
// byte maps to byte % numBuckets. The empty key lives in bucket 0.
func BucketIndex(key string, numBuckets int) int {
	if numBuckets <= 0 {
		numBuckets = DefaultBuckets
	}
	if key == "" {
		return 0
	}

	c := key[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c-'A') % numBuckets
	case c >= 'a' && c <= 'z':
		return int(c-'a') % numBuckets
	case c >= '0' && c <= '9':
		return int(c-'0') % numBuckets
	default:
		return int(c) % numBuckets
	}
}

// --------------------------------------------------------------------------
// Batch Helper Functions
// --------------------------------------------------------------------------

// Truncate cuts s to at most maxLen bytes. A maxLen of zero disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// SortPairs returns a copy of pairs sorted by key. Pairs with equal keys keep
// their relative order, so the last one of a key still wins when applied in order.
func SortPairs(pairs []db.Pair) []db.Pair {
	sorted := make([]db.Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

// SortKeys returns a sorted copy of keys
func SortKeys(keys []string) []string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	return sorted
}

// BucketsOf returns the sorted, de-duplicated bucket indices touched by keys
func BucketsOf(keys []string, numBuckets int) []int {
	seen := make(map[int]struct{}, len(keys))
	indices := make([]int, 0, len(keys))
	for _, key := range keys {
		idx := BucketIndex(key, numBuckets)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
