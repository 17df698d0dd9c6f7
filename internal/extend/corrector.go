package extend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-extend/internal/cache"
)

// GeneResult holds the extended exon and CDS sets of one gene. Only
// transcripts that were extended appear.
type GeneResult struct {
	GeneID string
	Exons  cache.Features
	CDS    cache.Features
}

// Corrector runs the exon and CDS extension passes for whole genes.
type Corrector struct {
	extender *Extender
	logger   *zap.Logger
}

// NewCorrector creates a corrector using the given extender.
func NewCorrector(e *Extender) *Corrector {
	return &Corrector{
		extender: e,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for gene-level messages.
func (c *Corrector) SetLogger(l *zap.Logger) {
	c.logger = l
}

// CorrectGene extends the truncated transcripts of one gene. records are
// the gene's metadata rows; exons and cdss are keyed by transcript id and
// may hold other genes' transcripts too. Every record must have exons.
//
// Exons are extended first; CDS extension then runs only for the
// transcripts whose exons were extended and that have CDS segments.
func (c *Corrector) CorrectGene(records []cache.Record, exons, cdss cache.Features) (GeneResult, error) {
	var res GeneResult
	if len(records) > 0 {
		res.GeneID = records[0].GeneID
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	geneExons, err := exons.Restrict(ids)
	if err != nil {
		return res, fmt.Errorf("gene %s: %w", res.GeneID, err)
	}

	refs := ResolveReferences(records)
	truncated := SelectTruncated(records)

	res.Exons, err = c.extender.ExtendAll(truncated, refs, geneExons)
	if err != nil {
		return res, fmt.Errorf("gene %s exons: %w", res.GeneID, err)
	}

	var cdsTruncated []cache.Record
	for _, r := range truncated {
		if res.Exons.Has(r.ID) && cdss.Has(r.ID) {
			cdsTruncated = append(cdsTruncated, r)
		}
	}
	res.CDS = cache.Features{}
	if len(cdsTruncated) > 0 {
		geneCDS := cdss.Subset(ids)
		res.CDS, err = c.extender.ExtendAll(cdsTruncated, refs.Within(geneCDS), geneCDS)
		if err != nil {
			return res, fmt.Errorf("gene %s CDS: %w", res.GeneID, err)
		}
	}

	if len(res.Exons) > 0 {
		c.logger.Debug("gene corrected",
			zap.String("gene_id", res.GeneID),
			zap.Int("exons_extended", len(res.Exons)),
			zap.Int("cds_extended", len(res.CDS)))
	}
	return res, nil
}
