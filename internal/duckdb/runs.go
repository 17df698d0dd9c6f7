package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

// Feature kinds stored in extended_features.
const (
	FeatureExon = "exon"
	FeatureCDS  = "CDS"
)

// Run describes one invocation of the extend command.
type Run struct {
	ID                  string
	CreatedAt           time.Time
	GTFPath             string
	MaxDivergence       int64
	Genes               int64
	TranscriptsExtended int64
}

// ExtendedFeature is one interval of an extended transcript.
// Start and End are 0-based half-open.
type ExtendedFeature struct {
	GeneID       string
	TranscriptID string
	Feature      string
	Chrom        string
	Start        int64
	End          int64
	Strand       ranges.Strand
	ExonNumber   int // 1-based, 5' to 3'
}

// FeatureRows expands a transcript's extended set into one row per interval.
func FeatureRows(t *cache.Transcript, feature string, set ranges.Set) []ExtendedFeature {
	oriented := set.Oriented()
	rows := make([]ExtendedFeature, len(oriented))
	for i, iv := range oriented {
		rows[i] = ExtendedFeature{
			GeneID:       t.GeneID,
			TranscriptID: t.ID,
			Feature:      feature,
			Chrom:        t.Chrom,
			Start:        iv.Start,
			End:          iv.End,
			Strand:       t.Strand,
			ExonNumber:   i + 1,
		}
	}
	return rows
}

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(gtfPath string, maxDivergence int64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO runs
		(run_id, created_at, gtf_path, max_divergence, genes, transcripts_extended)
		VALUES (?, ?, ?, ?, 0, 0)`,
		id, time.Now().UTC(), gtfPath, maxDivergence)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the totals of a completed run.
func (s *Store) FinishRun(runID string, genes, extended int) error {
	res, err := s.db.Exec(`UPDATE runs SET genes = ?, transcripts_extended = ? WHERE run_id = ?`,
		int64(genes), int64(extended), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: unknown run %s", runID)
	}
	return nil
}

// WriteExtensions batch-inserts extended features using the Appender API.
func (s *Store) WriteExtensions(runID string, rows []ExtendedFeature) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "extended_features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range rows {
		if err := appender.AppendRow(
			runID, r.GeneID, r.TranscriptID, r.Feature, r.Chrom,
			r.Start, r.End, r.Strand.String(), int32(r.ExonNumber),
		); err != nil {
			return fmt.Errorf("append extended feature: %w", err)
		}
	}

	return appender.Flush()
}

// Runs lists recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, gtf_path, max_divergence, genes, transcripts_extended
		FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.GTFPath, &r.MaxDivergence, &r.Genes, &r.TranscriptsExtended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LookupFeatures returns the stored features of a run, exons before CDS,
// each in 5' to 3' order. An empty transcriptID matches every transcript.
func (s *Store) LookupFeatures(runID, transcriptID string) ([]ExtendedFeature, error) {
	query := `SELECT gene_id, transcript_id, feature, chrom, start_pos, end_pos, strand, exon_number
		FROM extended_features WHERE run_id = ?`
	args := []any{runID}
	if transcriptID != "" {
		query += ` AND transcript_id = ?`
		args = append(args, transcriptID)
	}
	query += ` ORDER BY gene_id, transcript_id, feature DESC, exon_number`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query extended features: %w", err)
	}
	defer rows.Close()

	var out []ExtendedFeature
	for rows.Next() {
		var (
			f      ExtendedFeature
			strand string
			num    int32
		)
		if err := rows.Scan(&f.GeneID, &f.TranscriptID, &f.Feature, &f.Chrom, &f.Start, &f.End, &strand, &num); err != nil {
			return nil, fmt.Errorf("scan extended feature: %w", err)
		}
		f.Strand = ranges.ParseStrand(strand)
		f.ExonNumber = int(num)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extended features: %w", err)
	}
	return out, nil
}

// LatestRun returns the id of the most recent run, or "" when none exist.
func (s *Store) LatestRun() (string, error) {
	runs, err := s.Runs()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", nil
	}
	return runs[len(runs)-1].ID, nil
}
