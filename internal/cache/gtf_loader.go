// Package cache provides transcript model loading functionality.
package cache

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-extend/internal/ranges"
)

// GTFLoader loads transcript models from GENCODE GTF files.
type GTFLoader struct {
	path string
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path}
}

// Load loads all transcripts from the GTF file into the cache.
func (l *GTFLoader) Load(c *Cache) error {
	return l.loadGTF(c, "")
}

// LoadChromosome loads transcripts for a specific chromosome.
func (l *GTFLoader) LoadChromosome(c *Cache, chrom string) error {
	return l.loadGTF(c, chrom)
}

// loadGTF parses the GTF file and populates the cache.
// If filterChrom is non-empty, only loads that chromosome.
func (l *GTFLoader) loadGTF(c *Cache, filterChrom string) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	transcripts, err := l.parseGTF(reader, filterChrom)
	if err != nil {
		return err
	}

	for _, t := range transcripts {
		c.AddTranscript(t)
	}

	return nil
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64 // 1-based
	end         int64 // 1-based, inclusive
	strand      string
	frame       int // CDS phase, 0 when "."
	attributes  map[string]string
	tags        []string
}

// parseGTF parses GTF content and returns transcripts in file order.
func (l *GTFLoader) parseGTF(reader io.Reader, filterChrom string) ([]*Transcript, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var order []*Transcript
	transcripts := make(map[string]*Transcript)
	// 5'-most CDS boundary seen per transcript, for CDSStartPhase
	cdsStart := make(map[string]int64)

	// transcript rows normally precede their exons, but do not rely on it
	get := func(id string, feat *gtfFeature) *Transcript {
		t, ok := transcripts[id]
		if !ok {
			t = &Transcript{
				ID:       id,
				GeneID:   stripVersion(feat.attributes["gene_id"]),
				GeneName: feat.attributes["gene_name"],
				Chrom:    feat.chrom,
				Strand:   ranges.ParseStrand(feat.strand),
				Biotype:  feat.attributes["transcript_type"],
				Tags:     feat.tags,
			}
			transcripts[id] = t
			order = append(order, t)
		}
		return t
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := l.parseLine(line)
		if err != nil {
			continue // Skip malformed lines
		}

		if filterChrom != "" && normalizeChrom(feat.chrom) != normalizeChrom(filterChrom) {
			continue
		}

		transcriptID := stripVersion(feat.attributes["transcript_id"])
		if transcriptID == "" {
			continue
		}

		// GTF is 1-based inclusive; sets are half-open
		iv := ranges.Interval{
			Start:  feat.start - 1,
			End:    feat.end,
			Strand: ranges.ParseStrand(feat.strand),
		}

		switch feat.featureType {
		case "transcript":
			t := get(transcriptID, feat)
			t.Tags = feat.tags
			if t.Biotype == "" {
				t.Biotype = feat.attributes["transcript_type"]
			}
		case "exon":
			t := get(transcriptID, feat)
			t.Exons = append(t.Exons, iv)
		case "CDS":
			t := get(transcriptID, feat)
			t.CDS = append(t.CDS, iv)
			pos := iv.Start
			if iv.Strand == ranges.Reverse {
				pos = -iv.End
			}
			if best, ok := cdsStart[transcriptID]; !ok || pos < best {
				cdsStart[transcriptID] = pos
				t.CDSStartPhase = feat.frame
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	// Sort exons and CDS segments by genomic position
	for _, t := range order {
		t.Exons = ranges.Normalize(t.Exons)
		t.CDS = ranges.Normalize(t.CDS)
	}

	return order, nil
}

// parseLine parses a single GTF line.
func (l *GTFLoader) parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	frame := 0
	if fields[7] != "." {
		frame, err = strconv.Atoi(fields[7])
		if err != nil || frame < 0 || frame > 2 {
			return nil, fmt.Errorf("invalid frame %q", fields[7])
		}
	}

	attrs, tags := parseAttributes(fields[8])
	return &gtfFeature{
		chrom:       fields[0],
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		frame:       frame,
		attributes:  attrs,
		tags:        tags,
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
// The repeatable "tag" key is collected separately.
func parseAttributes(attrStr string) (map[string]string, []string) {
	attrs := make(map[string]string)
	var tags []string

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")

		if key == "tag" {
			tags = append(tags, value)
			continue
		}
		attrs[key] = value
	}

	return attrs, tags
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENST00000456328.2" -> "ENST00000456328"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom removes the "chr" prefix for chromosome comparisons.
func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
