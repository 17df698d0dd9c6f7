// Package cache provides transcript model loading functionality.
package cache

import (
	"slices"

	"github.com/inodb/vibe-extend/internal/ranges"
)

// GENCODE tags marking an unconfirmed CDS boundary.
const (
	TagCDSStartNF = "cds_start_NF"
	TagCDSEndNF   = "cds_end_NF"
)

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID       string        // Transcript ID (e.g., ENST00000311936), version stripped
	GeneID   string        // Parent gene ID
	GeneName string        // Parent gene symbol
	Chrom    string        // Chromosome
	Strand   ranges.Strand // + or -
	Biotype  string        // Transcript biotype
	Tags     []string      // GTF tag attributes
	Exons    ranges.Set    // Exons, half-open, coordinate-sorted
	CDS      ranges.Set    // CDS segments, half-open, coordinate-sorted

	// CDSStartPhase is the GTF frame of the 5'-most CDS segment. It is
	// non-zero when a cds_start_NF transcript begins mid-codon.
	CDSStartPhase int
}

// IsProteinCoding returns true if the transcript has CDS segments.
func (t *Transcript) IsProteinCoding() bool {
	return len(t.CDS) > 0
}

// HasTag returns true if the transcript carries the given GTF tag.
func (t *Transcript) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// IsStartNF returns true if the CDS start is not confirmed.
func (t *Transcript) IsStartNF() bool {
	return t.HasTag(TagCDSStartNF)
}

// IsEndNF returns true if the CDS end is not confirmed.
func (t *Transcript) IsEndNF() bool {
	return t.HasTag(TagCDSEndNF)
}

// PhaseAt returns the phase of a CDS whose 5'-most segment is first: the
// transcript's own phase when first starts where its CDS starts, else 0.
func (t *Transcript) PhaseAt(first ranges.Interval) int {
	orig := t.CDS.Oriented()
	if len(orig) == 0 {
		return 0
	}
	same := first.Start == orig[0].Start
	if t.Strand == ranges.Reverse {
		same = first.End == orig[0].End
	}
	if same {
		return t.CDSStartPhase
	}
	return 0
}

// SplicedLength returns the summed exon length.
func (t *Transcript) SplicedLength() int64 {
	return t.Exons.Len()
}
