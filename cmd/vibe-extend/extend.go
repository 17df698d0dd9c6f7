package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/duckdb"
	"github.com/inodb/vibe-extend/internal/extend"
	"github.com/inodb/vibe-extend/internal/output"
)

type extendOptions struct {
	gtfPath       string
	metadataPath  string
	outputPath    string
	summaryPath   string
	dbPath        string
	cacheDir      string
	chrom         string
	maxDivergence int64
	workers       int
}

// extendStats are the totals of one extend run.
type extendStats struct {
	RunID         string
	Genes         int
	ExonsExtended int
	CDSExtended   int
}

func newExtendCmd(newLogger func() (*zap.Logger, error)) *cobra.Command {
	var opts extendOptions

	cmd := &cobra.Command{
		Use:   "extend --gtf FILE [--metadata FILE]",
		Short: "Extend truncated transcripts of a GTF annotation",
		Long: `Extend transcripts flagged cds_start_NF or cds_end_NF using the terminal
exons of their gene's longest transcript in the truncated direction.

Transcript flags are read from --metadata when given; otherwise they are
derived from the GTF tags. Extended transcripts are written as GTF.`,
		Example: `  vibe-extend extend --gtf gencode.v46.annotation.gtf.gz -o extended.gtf
  vibe-extend extend --gtf genes.gtf --metadata flags.tsv --summary changes.tsv
  vibe-extend extend --gtf genes.gtf --db results.duckdb --max-divergence 50000
  vibe-extend extend --gtf genes.gtf --chrom chr17 -o chr17.gtf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.maxDivergence = viper.GetInt64(keyMaxDivergence)
			opts.workers = viper.GetInt(keyWorkers)
			opts.cacheDir = viper.GetString(keyCacheDir)

			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			_, err = runExtend(opts, cmd.OutOrStdout(), logger)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.gtfPath, "gtf", "", "GENCODE-style GTF file (optionally gzipped)")
	cmd.Flags().StringVar(&opts.metadataPath, "metadata", "", "Transcript metadata TSV (default: derived from GTF tags)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output GTF file (default: stdout)")
	cmd.Flags().StringVar(&opts.summaryPath, "summary", "", "Write a per-transcript summary TSV")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Record the run in a DuckDB database")
	cmd.Flags().StringVar(&opts.chrom, "chrom", "", "Only extend transcripts on this chromosome (\"17\" matches \"chr17\")")
	cmd.Flags().Int64("max-divergence", extend.DefaultMaxDivergence, "Maximum truncated-only bases before an extension is rejected")
	cmd.Flags().Int("workers", 0, "Number of parallel workers (0 = all CPUs)")
	cmd.Flags().String("cache-dir", "", "Directory for the parsed transcript cache (empty disables it)")
	cmd.MarkFlagRequired("gtf") //nolint:errcheck

	viper.BindPFlag(keyMaxDivergence, cmd.Flags().Lookup("max-divergence")) //nolint:errcheck
	viper.BindPFlag(keyWorkers, cmd.Flags().Lookup("workers"))              //nolint:errcheck
	viper.BindPFlag(keyCacheDir, cmd.Flags().Lookup("cache-dir"))           //nolint:errcheck

	return cmd
}

// runExtend loads the inputs, corrects every gene and writes the outputs.
// Output GTF goes to stdout unless opts.outputPath is set.
func runExtend(opts extendOptions, stdout io.Writer, logger *zap.Logger) (extendStats, error) {
	var stats extendStats

	c := cache.New()
	var table cache.Table

	var g errgroup.Group
	g.Go(func() error {
		if opts.chrom != "" {
			return loadChromosome(c, opts.gtfPath, opts.chrom, logger)
		}
		return loadTranscripts(c, opts.gtfPath, opts.cacheDir, logger)
	})
	if opts.metadataPath != "" {
		g.Go(func() error {
			var err error
			table, err = cache.LoadMetadata(opts.metadataPath)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if table == nil {
		table = cache.DeriveMetadata(c)
		logger.Info("derived transcript metadata from GTF tags", zap.Int("transcripts", len(table)))
	}
	genes := table.Genes()
	if opts.chrom != "" {
		genes = loadedGenes(c, genes)
	}
	stats.Genes = len(genes)

	extender := extend.NewExtender()
	extender.SetMaxDivergence(opts.maxDivergence)
	extender.SetLogger(logger)
	corrector := extend.NewCorrector(extender)
	corrector.SetLogger(logger)

	out := stdout
	if opts.outputPath != "" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return stats, fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	gtfWriter := output.NewGTFWriter(out)
	if err := gtfWriter.WriteHeader(version); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	var summary *output.SummaryWriter
	if opts.summaryPath != "" {
		f, err := os.Create(opts.summaryPath)
		if err != nil {
			return stats, fmt.Errorf("create summary file: %w", err)
		}
		defer f.Close()
		summary = output.NewSummaryWriter(f)
		if err := summary.WriteHeader(); err != nil {
			return stats, fmt.Errorf("write summary header: %w", err)
		}
	}

	var store *duckdb.Store
	if opts.dbPath != "" {
		var err error
		store, err = duckdb.Open(opts.dbPath)
		if err != nil {
			return stats, err
		}
		defer store.Close()
		stats.RunID, err = store.BeginRun(opts.gtfPath, opts.maxDivergence)
		if err != nil {
			return stats, err
		}
	}

	exons := c.Exons()
	cdss := c.CDS()
	results := corrector.ParallelCorrect(extend.Feed(genes), exons, cdss, opts.workers)

	err := extend.OrderedCollect(results, func(r extend.WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		var rows []duckdb.ExtendedFeature
		for _, id := range r.Result.Exons.IDs() {
			t := c.GetTranscript(id)
			newExons, newCDS := r.Result.Exons[id], r.Result.CDS[id]

			if err := gtfWriter.WriteTranscript(t, newExons, newCDS); err != nil {
				return fmt.Errorf("write transcript %s: %w", id, err)
			}
			stats.ExonsExtended++
			rows = append(rows, duckdb.FeatureRows(t, duckdb.FeatureExon, newExons)...)
			if len(newCDS) > 0 {
				stats.CDSExtended++
				rows = append(rows, duckdb.FeatureRows(t, duckdb.FeatureCDS, newCDS)...)
			}

			if summary != nil {
				if err := summary.Write(output.NewSummaryRow(t, duckdb.FeatureExon, t.Exons, newExons)); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				if len(newCDS) > 0 {
					if err := summary.Write(output.NewSummaryRow(t, duckdb.FeatureCDS, t.CDS, newCDS)); err != nil {
						return fmt.Errorf("write summary: %w", err)
					}
				}
			}
		}
		if store != nil {
			return store.WriteExtensions(stats.RunID, rows)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := gtfWriter.Flush(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}
	if summary != nil {
		if err := summary.Flush(); err != nil {
			return stats, fmt.Errorf("flush summary: %w", err)
		}
	}
	if store != nil {
		if err := store.FinishRun(stats.RunID, stats.Genes, stats.ExonsExtended); err != nil {
			return stats, err
		}
	}

	logger.Info("extension complete",
		zap.Int("genes", stats.Genes),
		zap.Int("exons_extended", stats.ExonsExtended),
		zap.Int("cds_extended", stats.CDSExtended),
		zap.String("run_id", stats.RunID))
	return stats, nil
}

// loadChromosome fills c with one chromosome's transcripts. The gob cache
// holds whole annotations, so it is bypassed.
func loadChromosome(c *cache.Cache, gtfPath, chrom string, logger *zap.Logger) error {
	if err := cache.NewGTFLoader(gtfPath).LoadChromosome(c, chrom); err != nil {
		return fmt.Errorf("load GTF: %w", err)
	}
	logger.Info("loaded GTF",
		zap.String("path", gtfPath),
		zap.String("chrom", chrom),
		zap.Int("transcripts", c.TranscriptCount()))
	return nil
}

// loadedGenes keeps the genes with at least one transcript in c. Ids of a
// kept gene that are missing from c still fail the run.
func loadedGenes(c *cache.Cache, genes []*cache.Gene) []*cache.Gene {
	var out []*cache.Gene
	for _, g := range genes {
		if len(c.FindTranscriptsByGene(g.ID)) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// loadTranscripts fills c from the gob cache in cacheDir when it was built
// from the same GTF, otherwise parses the GTF and refreshes the cache.
func loadTranscripts(c *cache.Cache, gtfPath, cacheDir string, logger *zap.Logger) error {
	fp, err := duckdb.StatFile(gtfPath)
	if err != nil {
		return fmt.Errorf("stat GTF file: %w", err)
	}

	var tc *duckdb.TranscriptCache
	if cacheDir != "" {
		tc = duckdb.NewTranscriptCache(cacheDir)
		if tc.Valid(fp) {
			err := tc.Load(c)
			if err == nil {
				logger.Info("loaded transcripts from cache",
					zap.String("dir", cacheDir),
					zap.Int("transcripts", c.TranscriptCount()))
				return nil
			}
			logger.Warn("transcript cache unreadable, reparsing GTF", zap.Error(err))
			tc.Clear()
		}
	}

	if err := cache.NewGTFLoader(gtfPath).Load(c); err != nil {
		return fmt.Errorf("load GTF: %w", err)
	}
	logger.Info("loaded GTF", zap.String("path", gtfPath), zap.Int("transcripts", c.TranscriptCount()))

	if tc != nil {
		if err := tc.Write(c, fp); err != nil {
			logger.Warn("could not write transcript cache", zap.Error(err))
		}
	}
	return nil
}
