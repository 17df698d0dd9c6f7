package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-extend/internal/ranges"
)

func features() Features {
	return Features{
		"A": ranges.Set{{Start: 100, End: 200, Strand: ranges.Forward}},
		"B": ranges.Set{{Start: 300, End: 400, Strand: ranges.Forward}},
	}
}

func TestFeatures_Restrict(t *testing.T) {
	f := features()

	got, err := f.Restrict([]string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.IDs())

	_, err = f.Restrict([]string{"A", "MISSING"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTranscript))
	assert.Contains(t, err.Error(), "MISSING")
}

func TestFeatures_Subset(t *testing.T) {
	got := features().Subset([]string{"B", "MISSING"})
	assert.Equal(t, []string{"B"}, got.IDs())
}

func TestFeatures_WithDoesNotMutate(t *testing.T) {
	f := features()
	tagged := ranges.Set{{Start: 100, End: 250, Strand: ranges.Forward, Downstream: true}}

	got := f.With(Features{"A": tagged})

	assert.Equal(t, int64(200), f["A"][0].End, "original untouched")
	assert.Equal(t, int64(250), got["A"][0].End)
	assert.False(t, got["A"][0].Downstream, "tags stripped")
	assert.Equal(t, f["B"], got["B"], "untouched entries pass through")
}

func TestCache_Collections(t *testing.T) {
	c := New()
	c.AddTranscript(&Transcript{ID: "A", GeneID: "G", Exons: features()["A"], CDS: features()["A"]})
	c.AddTranscript(&Transcript{ID: "B", GeneID: "G", Exons: features()["B"]})
	c.AddTranscript(&Transcript{ID: "A", GeneID: "G", Exons: features()["B"]}) // replaces

	assert.Equal(t, 2, c.TranscriptCount())
	assert.Len(t, c.FindTranscriptsByGene("G"), 2)
	assert.Equal(t, []string{"A", "B"}, c.Exons().IDs())
	assert.Empty(t, c.CDS().IDs(), "replacement dropped the CDS")
	assert.Equal(t, int64(300), c.Exons()["A"][0].Start)
}
