package ranges

import (
	"slices"
	"sort"
)

// Set is an ordered collection of intervals belonging to one transcript.
// Sets produced by this package are sorted by Start and never share
// backing arrays with their inputs.
type Set []Interval

// Len returns the summed width of all intervals.
func (s Set) Len() int64 {
	var n int64
	for _, iv := range s {
		n += iv.Len()
	}
	return n
}

// Strand returns the strand of the first interval, or Unstranded for an empty set.
func (s Set) Strand() Strand {
	if len(s) == 0 {
		return Unstranded
	}
	return s[0].Strand
}

// Overlaps reports whether any interval of s overlaps any interval of other.
func (s Set) Overlaps(other Set) bool {
	a, b := sorted(s), sorted(other)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Overlaps(b[j]) {
			return true
		}
		if a[i].End <= b[j].End {
			i++
		} else {
			j++
		}
	}
	return false
}

// Tagged returns the intervals tagged for direction d.
func (s Set) Tagged(d Direction) Set {
	var out Set
	for _, iv := range s {
		if iv.Tagged(d) {
			out = append(out, iv)
		}
	}
	return out
}

// Strip returns a copy of the set with all directional tags cleared.
func (s Set) Strip() Set {
	out := make(Set, len(s))
	for i, iv := range s {
		out[i] = iv.Strip()
	}
	return out
}

// Oriented returns a copy of the set in 5' to 3' order: ascending on the
// forward strand, descending on the reverse strand.
func (s Set) Oriented() Set {
	out := sorted(s)
	if s.Strand() == Reverse {
		slices.Reverse(out)
	}
	return out
}

// Normalize sorts the intervals and coalesces overlapping or book-ended
// ones. Tags are dropped.
func Normalize(s Set) Set {
	if len(s) == 0 {
		return nil
	}
	in := sorted(s)
	out := make(Set, 0, len(in))
	cur := in[0].Strip()
	for _, iv := range in[1:] {
		if iv.Start <= cur.End {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		out = append(out, cur)
		cur = iv.Strip()
	}
	return append(out, cur)
}

// Union merges the given sets into one coordinate-sorted set. Only
// coordinates and strand are kept.
func Union(sets ...Set) Set {
	var all Set
	for _, s := range sets {
		all = append(all, s...)
	}
	return Normalize(all)
}

// Intersect returns the bases covered by both a and b.
func Intersect(a, b Set) Set {
	x, y := Normalize(a), Normalize(b)
	var out Set
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		start := max(x[i].Start, y[j].Start)
		end := min(x[i].End, y[j].End)
		if start < end {
			out = append(out, Interval{Start: start, End: end, Strand: x[i].Strand})
		}
		if x[i].End <= y[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Subtract returns the parts of a not covered by b. Each fragment lies
// within exactly one interval of a.
func Subtract(a, b Set) Set {
	mask := Normalize(b)
	var out Set
	for _, iv := range sorted(a) {
		cur := iv.Strip()
		// first mask interval that could overlap cur
		k := sort.Search(len(mask), func(i int) bool { return mask[i].End > cur.Start })
		for ; k < len(mask) && mask[k].Start < cur.End; k++ {
			if mask[k].Start > cur.Start {
				out = append(out, Interval{Start: cur.Start, End: mask[k].Start, Strand: cur.Strand})
			}
			cur.Start = mask[k].End
			if cur.Start >= cur.End {
				break
			}
		}
		if cur.Start < cur.End {
			out = append(out, cur)
		}
	}
	return out
}

// sorted returns a copy of s ordered by Start, then End.
func sorted(s Set) Set {
	out := slices.Clone(s)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
