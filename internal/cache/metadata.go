// Package cache provides transcript model loading functionality.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Record is one row of the transcript metadata table.
type Record struct {
	GeneID        string
	ID            string // Transcript ID, version stripped
	LongestStart  bool   // Reference transcript for start (upstream) extension
	LongestEnd    bool   // Reference transcript for end (downstream) extension
	CDSStartNF    bool   // CDS start not confirmed
	CDSEndNF      bool   // CDS end not confirmed
	CDSStartEndNF int    // Combined indicator, truthy when > 0
}

// Truncated returns true if the transcript has any unconfirmed CDS boundary.
func (r Record) Truncated() bool {
	return r.CDSStartEndNF > 0
}

// Table is the transcript metadata table in file order.
type Table []Record

// Metadata column names.
const (
	colGeneID        = "gene_id"
	colTranscriptID  = "transcript_id"
	colID            = "id"
	colLongestStart  = "longest_start"
	colLongestEnd    = "longest_end"
	colCDSStartNF    = "cds_start_NF"
	colCDSEndNF      = "cds_end_NF"
	colCDSStartEndNF = "cds_start_end_NF"
)

// LoadMetadata loads a transcript metadata TSV file.
// The header must name gene_id, transcript_id (or id), longest_start,
// longest_end, cds_start_NF and cds_end_NF; cds_start_end_NF is optional.
func LoadMetadata(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	return ParseMetadata(f)
}

// ParseMetadata parses transcript metadata TSV content.
func ParseMetadata(reader io.Reader) (Table, error) {
	scanner := bufio.NewScanner(reader)

	// Read header to find column indices
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read metadata header: %w", err)
		}
		return nil, fmt.Errorf("metadata: empty file")
	}

	idx := make(map[string]int)
	for i, col := range strings.Split(scanner.Text(), "\t") {
		idx[strings.TrimSpace(col)] = i
	}
	if _, ok := idx[colTranscriptID]; !ok {
		if i, ok := idx[colID]; ok {
			idx[colTranscriptID] = i
		}
	}
	for _, col := range []string{colGeneID, colTranscriptID, colLongestStart, colLongestEnd, colCDSStartNF, colCDSEndNF} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("metadata: missing %q column", col)
		}
	}

	var table Table
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		r := Record{
			GeneID: stripVersion(field(colGeneID)),
			ID:     stripVersion(field(colTranscriptID)),
		}
		if r.ID == "" {
			return nil, fmt.Errorf("metadata line %d: empty transcript id", lineNum)
		}

		flags := []struct {
			col string
			dst *bool
		}{
			{colLongestStart, &r.LongestStart},
			{colLongestEnd, &r.LongestEnd},
			{colCDSStartNF, &r.CDSStartNF},
			{colCDSEndNF, &r.CDSEndNF},
		}
		for _, fl := range flags {
			n, err := parseFlag(field(fl.col))
			if err != nil {
				return nil, fmt.Errorf("metadata line %d: %s: %w", lineNum, fl.col, err)
			}
			*fl.dst = n > 0
		}

		if v := field(colCDSStartEndNF); v != "" {
			n, err := parseFlag(v)
			if err != nil {
				return nil, fmt.Errorf("metadata line %d: %s: %w", lineNum, colCDSStartEndNF, err)
			}
			r.CDSStartEndNF = n
		} else {
			r.CDSStartEndNF = btoi(r.CDSStartNF) + btoi(r.CDSEndNF)
		}

		table = append(table, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan metadata: %w", err)
	}

	return table, nil
}

// parseFlag parses a 0/1 (or non-negative count) column. Empty means 0.
// Whole-valued float spellings such as "1.0" are accepted.
func parseFlag(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %q", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("value out of range: %q", s)
	}
	return int(f), nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeriveMetadata builds a metadata table from the GTF tags of the cached
// coding transcripts. cds_start_NF and cds_end_NF tags set the NF flags.
// longest_start marks the transcript(s) with the greatest spliced length
// among those whose start is confirmed; longest_end likewise for the end.
// Ties mark every tied transcript, which leaves the direction ambiguous.
func DeriveMetadata(c *Cache) Table {
	var table Table
	for _, geneID := range c.GeneIDs() {
		var coding []*Transcript
		for _, t := range c.FindTranscriptsByGene(geneID) {
			if t.IsProteinCoding() {
				coding = append(coding, t)
			}
		}
		if len(coding) == 0 {
			continue
		}

		longestStart := longestWhere(coding, func(t *Transcript) bool { return !t.IsStartNF() })
		longestEnd := longestWhere(coding, func(t *Transcript) bool { return !t.IsEndNF() })

		for _, t := range coding {
			r := Record{
				GeneID:       geneID,
				ID:           t.ID,
				LongestStart: longestStart[t.ID],
				LongestEnd:   longestEnd[t.ID],
				CDSStartNF:   t.IsStartNF(),
				CDSEndNF:     t.IsEndNF(),
			}
			r.CDSStartEndNF = btoi(r.CDSStartNF) + btoi(r.CDSEndNF)
			table = append(table, r)
		}
	}
	return table
}

// longestWhere returns the IDs of the transcripts with the greatest spliced
// length among those matching keep.
func longestWhere(transcripts []*Transcript, keep func(*Transcript) bool) map[string]bool {
	var best int64
	out := make(map[string]bool)
	for _, t := range transcripts {
		if !keep(t) {
			continue
		}
		n := t.SplicedLength()
		switch {
		case n > best:
			best = n
			out = map[string]bool{t.ID: true}
		case n == best && n > 0:
			out[t.ID] = true
		}
	}
	return out
}
