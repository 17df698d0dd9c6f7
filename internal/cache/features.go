package cache

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inodb/vibe-extend/internal/ranges"
)

// ErrUnknownTranscript is returned when a transcript ID has no interval set
// in a feature collection.
var ErrUnknownTranscript = errors.New("unknown transcript")

// Features is a keyed collection of interval sets, one per transcript ID.
// A Features value is treated as immutable: methods return new maps.
type Features map[string]ranges.Set

// Get returns the set for id, or an error wrapping ErrUnknownTranscript.
func (f Features) Get(id string) (ranges.Set, error) {
	s, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTranscript, id)
	}
	return s, nil
}

// Has returns true if id has an entry.
func (f Features) Has(id string) bool {
	_, ok := f[id]
	return ok
}

// Restrict returns the entries for ids. Every id must be present.
func (f Features) Restrict(ids []string) (Features, error) {
	out := make(Features, len(ids))
	for _, id := range ids {
		s, err := f.Get(id)
		if err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, nil
}

// Subset returns the entries for the ids that are present, skipping the rest.
func (f Features) Subset(ids []string) Features {
	out := make(Features, len(ids))
	for _, id := range ids {
		if s, ok := f[id]; ok {
			out[id] = s
		}
	}
	return out
}

// With returns a copy of f where every entry of overrides replaces (or adds)
// the entry with the same id. Sets are stored without tags.
func (f Features) With(overrides Features) Features {
	out := make(Features, len(f)+len(overrides))
	for id, s := range f {
		out[id] = s
	}
	for id, s := range overrides {
		out[id] = s.Strip()
	}
	return out
}

// IDs returns the ids of the collection in sorted order.
func (f Features) IDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
