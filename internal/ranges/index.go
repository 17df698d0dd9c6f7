package ranges

import (
	"slices"
	"sort"
)

// Index provides O(log n + k) overlap queries over a set using a sorted-slice
// approach. It is built once and never modified.
type Index struct {
	intervals Set
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[:i+1]
}

// BuildIndex creates an index over the intervals of s.
func BuildIndex(s Set) *Index {
	if len(s) == 0 {
		return &Index{}
	}

	intervals := sorted(s)

	// Prefix-max array: maxEnd[i] = max(end) for intervals[:i+1]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].End
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].End)
	}

	return &Index{intervals: intervals, maxEnd: maxEnd}
}

// Overlapping returns all indexed intervals sharing at least one base with q,
// in coordinate order.
func (x *Index) Overlapping(q Interval) Set {
	if len(x.intervals) == 0 || q.Start >= q.End {
		return nil
	}

	// Candidates must start before q ends: [0, hi).
	hi := sort.Search(len(x.intervals), func(i int) bool {
		return x.intervals[i].Start >= q.End
	})

	var result Set
	for i := hi - 1; i >= 0; i-- {
		// Prune: nothing in intervals[:i+1] reaches q.
		if x.maxEnd[i] <= q.Start {
			break
		}
		if x.intervals[i].End > q.Start {
			result = append(result, x.intervals[i])
		}
	}

	// Scanned backwards.
	slices.Reverse(result)
	return result
}

// Any reports whether some indexed interval overlaps q.
func (x *Index) Any(q Interval) bool {
	return len(x.Overlapping(q)) > 0
}
