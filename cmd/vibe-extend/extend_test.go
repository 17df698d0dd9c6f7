package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/vibe-extend/internal/duckdb"
	"github.com/inodb/vibe-extend/internal/extend"
)

const (
	sampleGTF      = "../../internal/cache/testdata/sample.gtf"
	sampleMetadata = "../../internal/cache/testdata/metadata.tsv"
)

func baseOptions(t *testing.T) extendOptions {
	return extendOptions{
		gtfPath:       sampleGTF,
		maxDivergence: extend.DefaultMaxDivergence,
		workers:       2,
		cacheDir:      t.TempDir(),
	}
}

// records returns the non-comment GTF lines split into columns.
func records(t *testing.T, gtf string) [][]string {
	t.Helper()
	var out [][]string
	for _, line := range strings.Split(strings.TrimSpace(gtf), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 9)
		out = append(out, fields)
	}
	return out
}

func coords(rec []string) string {
	return rec[2] + ":" + rec[3] + "-" + rec[4]
}

func TestRunExtend_DerivedMetadata(t *testing.T) {
	var buf bytes.Buffer
	stats, err := runExtend(baseOptions(t), &buf, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Genes)
	assert.Equal(t, 2, stats.ExonsExtended)
	assert.Equal(t, 2, stats.CDSExtended)

	recs := records(t, buf.String())
	require.Len(t, recs, 12)

	var got []string
	for _, r := range recs {
		got = append(got, coords(r))
		assert.Contains(t, r[8], `tag "vibe_extended";`)
	}
	assert.Equal(t, []string{
		"exon:101-200", "exon:301-500", "exon:601-900",
		"CDS:151-200", "CDS:301-500", "CDS:601-800",
		"exon:2501-3000", "exon:1501-2000", "exon:1001-1200",
		"CDS:2501-2900", "CDS:1501-2000", "CDS:1101-1200",
	}, got)
	assert.Contains(t, recs[0][8], `transcript_id "ENST00000000011";`)
	assert.Contains(t, recs[6][8], `transcript_id "ENST00000000021";`)
	assert.Equal(t, "-", recs[6][6])
}

func TestRunExtend_MetadataFileMatchesDerived(t *testing.T) {
	var derived, fromFile bytes.Buffer
	_, err := runExtend(baseOptions(t), &derived, zap.NewNop())
	require.NoError(t, err)

	opts := baseOptions(t)
	opts.metadataPath = sampleMetadata
	_, err = runExtend(opts, &fromFile, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, derived.String(), fromFile.String())
}

func TestRunExtend_UnknownTranscriptFails(t *testing.T) {
	meta := filepath.Join(t.TempDir(), "meta.tsv")
	content := "gene_id\ttranscript_id\tlongest_start\tlongest_end\tcds_start_NF\tcds_end_NF\n" +
		"ENSG00000000001\tENST00000000010\t1\t1\t0\t0\n" +
		"ENSG00000000001\tENST00000099999\t0\t0\t0\t1\n"
	require.NoError(t, os.WriteFile(meta, []byte(content), 0644))

	opts := baseOptions(t)
	opts.metadataPath = meta
	_, err := runExtend(opts, &bytes.Buffer{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENST00000099999")
}

func TestRunExtend_DivergenceLimit(t *testing.T) {
	// The truncated transcripts match their references exactly on the
	// shared side, so even a zero limit allows the extensions.
	opts := baseOptions(t)
	opts.maxDivergence = 0
	stats, err := runExtend(opts, &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ExonsExtended)
}

func TestRunExtend_SummaryAndDatabase(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(t)
	opts.outputPath = filepath.Join(dir, "out.gtf")
	opts.summaryPath = filepath.Join(dir, "summary.tsv")
	opts.dbPath = filepath.Join(dir, "results.duckdb")

	var stdout bytes.Buffer
	stats, err := runExtend(opts, &stdout, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, stdout.String(), "GTF goes to the output file")
	require.NotEmpty(t, stats.RunID)

	gtf, err := os.ReadFile(opts.outputPath)
	require.NoError(t, err)
	assert.Len(t, records(t, string(gtf)), 12)

	summary, err := os.ReadFile(opts.summaryPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(summary)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "ENST00000000011\tENSG00000000001\tGENEA\texon\t2\t3\t300", lines[1])
	assert.Equal(t, "ENST00000000011\tENSG00000000001\tGENEA\tCDS\t2\t3\t200", lines[2])
	assert.Equal(t, "ENST00000000021\tENSG00000000002\tGENEB\texon\t2\t3\t500", lines[3])
	assert.Equal(t, "ENST00000000021\tENSG00000000002\tGENEB\tCDS\t2\t3\t400", lines[4])

	store, err := duckdb.Open(opts.dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, stats.RunID, runs[0].ID)
	assert.Equal(t, int64(2), runs[0].Genes)
	assert.Equal(t, int64(2), runs[0].TranscriptsExtended)

	features, err := store.LookupFeatures(stats.RunID, "ENST00000000021")
	require.NoError(t, err)
	require.Len(t, features, 6)
	assert.Equal(t, int64(2500), features[0].Start)
	assert.Equal(t, 1, features[0].ExonNumber)
}

func TestRunExtend_TranscriptCacheReused(t *testing.T) {
	opts := baseOptions(t)

	var first, second bytes.Buffer
	_, err := runExtend(opts, &first, zap.NewNop())
	require.NoError(t, err)

	fp, err := duckdb.StatFile(sampleGTF)
	require.NoError(t, err)
	assert.True(t, duckdb.NewTranscriptCache(opts.cacheDir).Valid(fp))

	_, err = runExtend(opts, &second, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
}

func TestRunExtend_MissingGTF(t *testing.T) {
	opts := baseOptions(t)
	opts.gtfPath = "does-not-exist.gtf"
	_, err := runExtend(opts, &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	cmd := newTestRoot()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "vibe-extend version dev")
}

func TestResultsCommand(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(t)
	opts.dbPath = filepath.Join(dir, "results.duckdb")
	stats, err := runExtend(opts, &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)

	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("extend:\n  workers: 1\n"), 0644))

	cmd := newTestRoot()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"results", "--config", cfg, "--db", opts.dbPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), stats.RunID)

	cmd = newTestRoot()
	buf.Reset()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"results", "--config", cfg, "--db", opts.dbPath, "--run", "latest", "--transcript", "ENST00000000011"})
	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "ENST00000000011\tENSG00000000001\texon\tchr1\t101\t200\t+\t1", lines[1])
}

func TestRunExtend_EndExtensionKeepsStartPhase(t *testing.T) {
	dir := t.TempDir()
	gtf := filepath.Join(dir, "phase.gtf")
	require.NoError(t, os.WriteFile(gtf, []byte(strings.Join([]string{
		"chr1\tHAVANA\ttranscript\t301\t900\t.\t+\t.\tgene_id \"G\"; transcript_id \"R\"; transcript_type \"protein_coding\";",
		"chr1\tHAVANA\texon\t301\t500\t.\t+\t.\tgene_id \"G\"; transcript_id \"R\";",
		"chr1\tHAVANA\texon\t601\t900\t.\t+\t.\tgene_id \"G\"; transcript_id \"R\";",
		"chr1\tHAVANA\tCDS\t301\t500\t.\t+\t0\tgene_id \"G\"; transcript_id \"R\";",
		"chr1\tHAVANA\tCDS\t601\t800\t.\t+\t2\tgene_id \"G\"; transcript_id \"R\";",
		"chr1\tHAVANA\ttranscript\t301\t500\t.\t+\t.\tgene_id \"G\"; transcript_id \"T\"; transcript_type \"protein_coding\"; tag \"cds_start_NF\"; tag \"cds_end_NF\";",
		"chr1\tHAVANA\texon\t301\t500\t.\t+\t.\tgene_id \"G\"; transcript_id \"T\";",
		"chr1\tHAVANA\tCDS\t303\t500\t.\t+\t2\tgene_id \"G\"; transcript_id \"T\";",
	}, "\n")+"\n"), 0644))

	// R is the end reference only, so T's start stays where it was.
	meta := filepath.Join(dir, "meta.tsv")
	require.NoError(t, os.WriteFile(meta, []byte(
		"gene_id\ttranscript_id\tlongest_start\tlongest_end\tcds_start_NF\tcds_end_NF\n"+
			"G\tR\t0\t1\t0\t0\n"+
			"G\tT\t0\t0\t1\t1\n"), 0644))

	opts := baseOptions(t)
	opts.gtfPath = gtf
	opts.metadataPath = meta

	var buf bytes.Buffer
	stats, err := runExtend(opts, &buf, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CDSExtended)

	var cds [][]string
	for _, rec := range records(t, buf.String()) {
		if rec[2] == "CDS" {
			cds = append(cds, rec)
		}
	}
	require.Len(t, cds, 2)
	assert.Equal(t, []string{"303", "500", "2"}, []string{cds[0][3], cds[0][4], cds[0][7]})
	assert.Equal(t, []string{"601", "800", "2"}, []string{cds[1][3], cds[1][4], cds[1][7]})
}

func TestRunExtend_ChromosomeFilter(t *testing.T) {
	opts := baseOptions(t)
	opts.metadataPath = sampleMetadata
	opts.chrom = "2"

	var buf bytes.Buffer
	stats, err := runExtend(opts, &buf, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Genes)
	assert.Equal(t, 1, stats.ExonsExtended)

	recs := records(t, buf.String())
	require.Len(t, recs, 6)
	for _, r := range recs {
		assert.Equal(t, "chr2", r[0])
		assert.Contains(t, r[8], `transcript_id "ENST00000000021";`)
	}

	fp, err := duckdb.StatFile(sampleGTF)
	require.NoError(t, err)
	assert.False(t, duckdb.NewTranscriptCache(opts.cacheDir).Valid(fp), "partial load is not cached")
}
