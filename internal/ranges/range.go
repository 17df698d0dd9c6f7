// Package ranges provides half-open genomic interval sets and the set
// operations used to compare transcript models.
package ranges

import "fmt"

// Strand is the genomic strand of an interval.
type Strand int8

// Strand values.
const (
	Unstranded Strand = 0
	Forward    Strand = 1
	Reverse    Strand = -1
)

// ParseStrand converts a GTF strand column ("+", "-", ".") to a Strand.
func ParseStrand(s string) Strand {
	switch s {
	case "+":
		return Forward
	case "-":
		return Reverse
	}
	return Unstranded
}

// String returns the GTF representation of the strand.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

// Direction is a side of a transcript relative to a shared region.
type Direction int

// Direction values.
const (
	Upstream   Direction = iota // 5', transcript start
	Downstream                  // 3', transcript end
)

func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

// Interval is a half-open range [Start, End) on one strand.
// Upstream and Downstream are only set by Diff.
type Interval struct {
	Start      int64
	End        int64
	Strand     Strand
	Upstream   bool
	Downstream bool
}

// Len returns the number of bases covered by the interval.
func (iv Interval) Len() int64 {
	return iv.End - iv.Start
}

// Overlaps reports whether two intervals share at least one base.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Tagged reports whether the interval carries the tag for d.
func (iv Interval) Tagged(d Direction) bool {
	if d == Upstream {
		return iv.Upstream
	}
	return iv.Downstream
}

// Strip returns the interval with its directional tags cleared.
func (iv Interval) Strip() Interval {
	return Interval{Start: iv.Start, End: iv.End, Strand: iv.Strand}
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)%s", iv.Start, iv.End, iv.Strand)
}
