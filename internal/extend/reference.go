package extend

import (
	"github.com/inodb/vibe-extend/internal/cache"
)

// ReferenceKind classifies how many reference transcripts a gene has for
// one direction.
type ReferenceKind int

// ReferenceKind values.
const (
	NoReference ReferenceKind = iota
	SingleReference
	AmbiguousReference
)

func (k ReferenceKind) String() string {
	switch k {
	case SingleReference:
		return "single"
	case AmbiguousReference:
		return "ambiguous"
	}
	return "none"
}

// Reference is the set of transcripts flagged as longest for one direction.
// Only a SingleReference lets a pass run.
type Reference struct {
	Kind ReferenceKind
	IDs  []string
}

// NewReference classifies ids.
func NewReference(ids []string) Reference {
	switch len(ids) {
	case 0:
		return Reference{Kind: NoReference}
	case 1:
		return Reference{Kind: SingleReference, IDs: ids}
	}
	return Reference{Kind: AmbiguousReference, IDs: ids}
}

// Single returns the reference id if exactly one exists.
func (r Reference) Single() (string, bool) {
	if r.Kind != SingleReference {
		return "", false
	}
	return r.IDs[0], true
}

// References holds a gene's reference transcripts for both directions.
type References struct {
	Start Reference // longest_start, used for upstream extension
	End   Reference // longest_end, used for downstream extension
}

// ResolveReferences collects the longest_start and longest_end transcripts
// of one gene's records.
func ResolveReferences(records []cache.Record) References {
	var start, end []string
	for _, r := range records {
		if r.LongestStart {
			start = append(start, r.ID)
		}
		if r.LongestEnd {
			end = append(end, r.ID)
		}
	}
	return References{Start: NewReference(start), End: NewReference(end)}
}

// Within demotes any single reference that has no entry in source to
// NoReference. Ambiguous references stay ambiguous.
func (r References) Within(source cache.Features) References {
	demote := func(ref Reference) Reference {
		if id, ok := ref.Single(); ok && !source.Has(id) {
			return Reference{Kind: NoReference}
		}
		return ref
	}
	return References{Start: demote(r.Start), End: demote(r.End)}
}

// SelectTruncated returns the records with any unconfirmed CDS boundary,
// in table order.
func SelectTruncated(records []cache.Record) []cache.Record {
	var out []cache.Record
	for _, r := range records {
		if r.Truncated() {
			out = append(out, r)
		}
	}
	return out
}
