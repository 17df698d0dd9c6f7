package extend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

func single(id string) Reference {
	return NewReference([]string{id})
}

func TestExtendAll_StartPassReadsEndPassOutput(t *testing.T) {
	full := exons(10, 50, 100, 200, 300, 500, 600, 900)
	source := cache.Features{
		"R": full,
		"T": exons(100, 200, 300, 500),
	}
	truncated := []cache.Record{{ID: "T", CDSStartNF: true, CDSEndNF: true, CDSStartEndNF: 2}}
	refs := References{Start: single("R"), End: single("R")}
	e := NewExtender()

	got, err := e.ExtendAll(truncated, refs, source)
	require.NoError(t, err)
	assert.Equal(t, full, got["T"], "both ends extended")

	// A start pass computed from the original coordinates would lose the
	// end extension, since the start-pass result takes precedence.
	startFirst, err := e.Extend("T", "R", ranges.Upstream, source)
	require.NoError(t, err)
	require.True(t, startFirst.Extended())
	assert.Equal(t, exons(10, 50, 100, 200, 300, 500), startFirst.Exons)
	assert.NotEqual(t, startFirst.Exons, got["T"])

	assert.Equal(t, exons(100, 200, 300, 500), source["T"], "source untouched")
}

func TestExtendAll_ReturnsOnlyExtended(t *testing.T) {
	source := cache.Features{
		"R":    referenceExons,
		"T":    exons(100, 200, 300, 500),
		"ALT":  exons(100, 200, 300, 500, 950, 1000), // unsupported terminal exon
		"FULL": exons(100, 200, 300, 500, 600, 900),
		"OK":   exons(100, 200),
	}
	truncated := []cache.Record{
		{ID: "T", CDSEndNF: true, CDSStartEndNF: 1},
		{ID: "ALT", CDSEndNF: true, CDSStartEndNF: 1},
		{ID: "FULL", CDSEndNF: true, CDSStartEndNF: 1},
	}
	refs := References{Start: single("R"), End: single("R")}

	got, err := NewExtender().ExtendAll(truncated, refs, source)
	require.NoError(t, err)
	assert.Equal(t, []string{"T"}, got.IDs())
	assert.NotContains(t, got, "OK", "unflagged transcripts never appear")
}

func TestExtendAll_FlagSelectsDirection(t *testing.T) {
	source := cache.Features{
		"R": exons(10, 50, 100, 200, 300, 500, 600, 900),
		"E": exons(100, 200, 300, 500),
		"S": exons(100, 200, 300, 500),
	}
	truncated := []cache.Record{
		{ID: "E", CDSEndNF: true, CDSStartEndNF: 1},
		{ID: "S", CDSStartNF: true, CDSStartEndNF: 1},
	}
	refs := References{Start: single("R"), End: single("R")}

	got, err := NewExtender().ExtendAll(truncated, refs, source)
	require.NoError(t, err)
	assert.Equal(t, exons(100, 200, 300, 500, 600, 900), got["E"])
	assert.Equal(t, exons(10, 50, 100, 200, 300, 500), got["S"])
}

func TestExtendAll_SkipsDirectionWithoutSingleReference(t *testing.T) {
	source := cache.Features{
		"R1": exons(10, 50, 100, 200, 300, 500, 600, 900),
		"R2": exons(100, 200, 300, 500, 600, 900),
		"T":  exons(100, 200, 300, 500),
	}
	truncated := []cache.Record{{ID: "T", CDSStartNF: true, CDSEndNF: true, CDSStartEndNF: 2}}

	tests := []struct {
		name string
		refs References
		want ranges.Set
	}{
		{
			name: "ambiguous end, single start",
			refs: References{Start: single("R1"), End: NewReference([]string{"R1", "R2"})},
			want: exons(10, 50, 100, 200, 300, 500),
		},
		{
			name: "single end, no start",
			refs: References{End: single("R2")},
			want: exons(100, 200, 300, 500, 600, 900),
		},
		{
			name: "none",
			refs: References{},
		},
		{
			name: "both ambiguous",
			refs: References{Start: NewReference([]string{"R1", "R2"}), End: NewReference([]string{"R1", "R2"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtender().ExtendAll(truncated, tt.refs, source)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got["T"])
		})
	}
}

func TestExtendAll_UnknownTranscript(t *testing.T) {
	truncated := []cache.Record{{ID: "MISSING", CDSEndNF: true, CDSStartEndNF: 1}}
	refs := References{End: single("R")}

	_, err := NewExtender().ExtendAll(truncated, refs, cache.Features{"R": referenceExons})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cache.ErrUnknownTranscript))
}

func TestResolveReferences(t *testing.T) {
	records := []cache.Record{
		{ID: "A", LongestStart: true},
		{ID: "B", LongestStart: true, LongestEnd: true},
		{ID: "C"},
	}

	refs := ResolveReferences(records)
	assert.Equal(t, AmbiguousReference, refs.Start.Kind)
	assert.Equal(t, []string{"A", "B"}, refs.Start.IDs)
	_, ok := refs.Start.Single()
	assert.False(t, ok, "ambiguous reference never picks one")

	id, ok := refs.End.Single()
	require.True(t, ok)
	assert.Equal(t, "B", id)

	assert.Equal(t, NoReference, ResolveReferences(records[2:]).End.Kind)
}

func TestReferences_Within(t *testing.T) {
	refs := References{Start: single("A"), End: single("B")}
	got := refs.Within(cache.Features{"B": referenceExons})

	assert.Equal(t, NoReference, got.Start.Kind)
	assert.Equal(t, SingleReference, got.End.Kind)
}

func TestSelectTruncated(t *testing.T) {
	records := []cache.Record{
		{ID: "A", CDSStartEndNF: 0},
		{ID: "B", CDSEndNF: true, CDSStartEndNF: 1},
		{ID: "C", CDSStartEndNF: 2},
	}
	got := SelectTruncated(records)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "C", got[1].ID)
}
