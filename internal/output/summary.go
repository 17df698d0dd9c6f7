package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

// SummaryRow describes the change made to one feature set of a transcript.
type SummaryRow struct {
	TranscriptID string
	GeneID       string
	GeneName     string
	Feature      string // "exon" or "CDS"
	ExonsBefore  int
	ExonsAfter   int
	BasesAdded   int64
}

// NewSummaryRow compares a transcript's feature set before and after extension.
func NewSummaryRow(t *cache.Transcript, feature string, before, after ranges.Set) SummaryRow {
	return SummaryRow{
		TranscriptID: t.ID,
		GeneID:       t.GeneID,
		GeneName:     t.GeneName,
		Feature:      feature,
		ExonsBefore:  len(before),
		ExonsAfter:   len(after),
		BasesAdded:   after.Len() - before.Len(),
	}
}

// SummaryWriter writes per-transcript extension summaries in tab-delimited format.
type SummaryWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewSummaryWriter creates a new summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"transcript_id",
			"gene_id",
			"gene_name",
			"feature",
			"exons_before",
			"exons_after",
			"bases_added",
		},
	}
}

// WriteHeader writes the header line.
func (sw *SummaryWriter) WriteHeader() error {
	_, err := sw.w.WriteString(strings.Join(sw.columns, "\t") + "\n")
	return err
}

// Write writes a single summary row.
func (sw *SummaryWriter) Write(r SummaryRow) error {
	geneName := r.GeneName
	if geneName == "" {
		geneName = "-"
	}
	values := []string{
		r.TranscriptID,
		r.GeneID,
		geneName,
		r.Feature,
		fmt.Sprintf("%d", r.ExonsBefore),
		fmt.Sprintf("%d", r.ExonsAfter),
		fmt.Sprintf("%d", r.BasesAdded),
	}
	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SummaryWriter) Flush() error {
	return sw.w.Flush()
}
