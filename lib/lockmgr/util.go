package lockmgr

import (
	"fmt"
	"sort"
)

// normalize returns the sorted, de-duplicated bucket indices.
// It panics on an index outside [0, numBuckets) since that is a programming error.
func normalize(buckets []int, numBuckets int) []int {
	ordered := make([]int, 0, len(buckets))
	seen := make(map[int]struct{}, len(buckets))
	for _, idx := range buckets {
		if idx < 0 || idx >= numBuckets {
			panic(fmt.Sprintf("lockmgr: bucket index %d out of range [0, %d)", idx, numBuckets))
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)
	return ordered
}
