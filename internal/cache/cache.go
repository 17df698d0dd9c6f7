// Package cache provides transcript model loading functionality.
package cache

import "sort"

// Cache provides access to transcript models by id and by gene.
type Cache struct {
	// transcripts stores transcripts indexed by ID
	transcripts map[string]*Transcript
	// genes stores transcript IDs indexed by gene ID, in insertion order
	genes map[string][]string
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string]*Transcript),
		genes:       make(map[string][]string),
	}
}

// AddTranscript adds a transcript to the cache, replacing any transcript
// with the same ID.
func (c *Cache) AddTranscript(t *Transcript) {
	if _, ok := c.transcripts[t.ID]; !ok {
		c.genes[t.GeneID] = append(c.genes[t.GeneID], t.ID)
	}
	c.transcripts[t.ID] = t
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
func (c *Cache) GetTranscript(id string) *Transcript {
	return c.transcripts[id]
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	return len(c.transcripts)
}

// GeneIDs returns a sorted list of gene IDs in the cache.
func (c *Cache) GeneIDs() []string {
	ids := make([]string, 0, len(c.genes))
	for id := range c.genes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindTranscriptsByGene returns all transcripts of a gene, in insertion order.
func (c *Cache) FindTranscriptsByGene(geneID string) []*Transcript {
	ids := c.genes[geneID]
	out := make([]*Transcript, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.transcripts[id])
	}
	return out
}

// Transcripts returns all transcripts ordered by gene ID, then insertion order.
func (c *Cache) Transcripts() []*Transcript {
	out := make([]*Transcript, 0, len(c.transcripts))
	for _, g := range c.GeneIDs() {
		out = append(out, c.FindTranscriptsByGene(g)...)
	}
	return out
}

// Exons returns the exon collection keyed by transcript ID.
func (c *Cache) Exons() Features {
	f := make(Features, len(c.transcripts))
	for id, t := range c.transcripts {
		if len(t.Exons) > 0 {
			f[id] = t.Exons
		}
	}
	return f
}

// CDS returns the CDS collection keyed by transcript ID. Non-coding
// transcripts have no entry.
func (c *Cache) CDS() Features {
	f := make(Features)
	for id, t := range c.transcripts {
		if len(t.CDS) > 0 {
			f[id] = t.CDS
		}
	}
	return f
}
