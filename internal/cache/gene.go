// Package cache provides transcript model loading functionality.
package cache

// Gene groups the metadata rows of one gene, in table order.
type Gene struct {
	ID      string   // Gene identifier (e.g., ENSG00000133703)
	Records []Record // Metadata rows of the gene's transcripts
}

// IDs returns the transcript ids of the gene in table order.
func (g *Gene) IDs() []string {
	ids := make([]string, len(g.Records))
	for i, r := range g.Records {
		ids[i] = r.ID
	}
	return ids
}

// Genes groups table rows by gene id, in order of first appearance.
func (tb Table) Genes() []*Gene {
	var genes []*Gene
	byID := make(map[string]*Gene)
	for _, r := range tb {
		g, ok := byID[r.GeneID]
		if !ok {
			g = &Gene{ID: r.GeneID}
			byID[r.GeneID] = g
			genes = append(genes, g)
		}
		g.Records = append(g.Records, r)
	}
	return genes
}
