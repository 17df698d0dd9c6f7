package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-extend/internal/duckdb"
)

func newResultsCmd() *cobra.Command {
	var (
		dbPath       string
		runID        string
		transcriptID string
	)

	cmd := &cobra.Command{
		Use:   "results --db FILE",
		Short: "List recorded runs or print their extended features",
		Long: `Without --run, lists the runs recorded in the database. With --run, prints
the extended exon and CDS intervals of that run (1-based, inclusive).
Use --run latest for the most recent run.`,
		Example: `  vibe-extend results --db results.duckdb
  vibe-extend results --db results.duckdb --run latest --transcript ENST00000000011`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				return printRuns(cmd.OutOrStdout(), store)
			}
			if runID == "latest" {
				runID, err = store.LatestRun()
				if err != nil {
					return err
				}
				if runID == "" {
					return fmt.Errorf("no runs recorded in %s", dbPath)
				}
			}
			return printFeatures(cmd.OutOrStdout(), store, runID, transcriptID)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database written by extend --db")
	cmd.Flags().StringVar(&runID, "run", "", "Run id, or \"latest\"")
	cmd.Flags().StringVar(&transcriptID, "transcript", "", "Only print this transcript")
	cmd.MarkFlagRequired("db") //nolint:errcheck

	return cmd
}

func printRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Join([]string{"run_id", "created_at", "genes", "transcripts_extended", "max_divergence", "gtf"}, "\t"))
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Genes, r.TranscriptsExtended, r.MaxDivergence, r.GTFPath)
	}
	return nil
}

func printFeatures(w io.Writer, store *duckdb.Store, runID, transcriptID string) error {
	features, err := store.LookupFeatures(runID, transcriptID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Join([]string{"transcript_id", "gene_id", "feature", "chrom", "start", "end", "strand", "exon_number"}, "\t"))
	for _, f := range features {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
			f.TranscriptID, f.GeneID, f.Feature, f.Chrom, f.Start+1, f.End, f.Strand, f.ExonNumber)
	}
	return nil
}
