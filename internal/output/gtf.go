// Package output provides writers for extended transcript models.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

// Source is the GTF source column value for written records.
const Source = "vibe-extend"

// ExtendedTag marks records written for an extended transcript.
const ExtendedTag = "vibe_extended"

// GTFWriter writes extended transcripts as GTF exon and CDS records.
type GTFWriter struct {
	w *bufio.Writer
}

// NewGTFWriter creates a new GTF writer.
func NewGTFWriter(w io.Writer) *GTFWriter {
	return &GTFWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the GTF comment header.
func (gw *GTFWriter) WriteHeader(version string) error {
	lines := []string{
		"##description: transcripts extended by " + Source,
		"##provider: " + Source,
		"##version: " + version,
		"##format: gtf",
	}
	_, err := gw.w.WriteString(strings.Join(lines, "\n") + "\n")
	return err
}

// WriteTranscript writes the exon records of t and, when cds is non-empty,
// its CDS records. Exons are numbered 5' to 3'; a CDS record carries the
// number of the exon it lies in. CDS frames start from t's own phase while
// its 5' CDS boundary is unchanged, and from 0 after a start extension.
func (gw *GTFWriter) WriteTranscript(t *cache.Transcript, exons, cds ranges.Set) error {
	oriented := exons.Oriented()
	for i, iv := range oriented {
		if err := gw.writeRecord(t, "exon", iv, ".", i+1); err != nil {
			return err
		}
	}

	orientedCDS := cds.Oriented()
	var phase int64
	if len(orientedCDS) > 0 {
		phase = int64(t.PhaseAt(orientedCDS[0]))
	}
	var done int64 // coding bases written so far, 5' to 3'
	for _, iv := range orientedCDS {
		frame := (3 - ((done-phase)%3+3)%3) % 3
		if err := gw.writeRecord(t, "CDS", iv, fmt.Sprintf("%d", frame), exonNumber(oriented, iv)); err != nil {
			return err
		}
		done += iv.Len()
	}
	return nil
}

func (gw *GTFWriter) writeRecord(t *cache.Transcript, feature string, iv ranges.Interval, frame string, number int) error {
	attrs := fmt.Sprintf(`gene_id "%s"; transcript_id "%s";`, t.GeneID, t.ID)
	if t.GeneName != "" {
		attrs += fmt.Sprintf(` gene_name "%s";`, t.GeneName)
	}
	if number > 0 {
		attrs += fmt.Sprintf(" exon_number %d;", number)
	}
	attrs += fmt.Sprintf(` tag "%s";`, ExtendedTag)

	values := []string{
		t.Chrom,
		Source,
		feature,
		fmt.Sprintf("%d", iv.Start+1),
		fmt.Sprintf("%d", iv.End),
		".",
		t.Strand.String(),
		frame,
		attrs,
	}
	_, err := gw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GTFWriter) Flush() error {
	return gw.w.Flush()
}

// exonNumber returns the 1-based position of the exon containing iv, or 0.
func exonNumber(oriented ranges.Set, iv ranges.Interval) int {
	for i, ex := range oriented {
		if ex.Start <= iv.Start && iv.End <= ex.End {
			return i + 1
		}
	}
	return 0
}
