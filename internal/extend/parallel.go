package extend

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-extend/internal/cache"
)

// WorkItem holds one gene ready for correction.
type WorkItem struct {
	Seq  int
	Gene *cache.Gene
}

// WorkResult holds the correction output for a single gene.
type WorkResult struct {
	Seq    int
	Gene   *cache.Gene
	Result GeneResult
	Err    error
}

// ParallelCorrect corrects genes using a pool of workers. exons and cdss are
// shared read-only between workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (c *Corrector) ParallelCorrect(items <-chan WorkItem, exons, cdss cache.Features, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := c.CorrectGene(item.Gene.Records, exons, cdss)
				results <- WorkResult{
					Seq:    item.Seq,
					Gene:   item.Gene,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// Feed sends genes on a new channel with consecutive sequence numbers.
func Feed(genes []*cache.Gene) <-chan WorkItem {
	items := make(chan WorkItem, len(genes))
	for i, g := range genes {
		items <- WorkItem{Seq: i, Gene: g}
	}
	close(items)
	return items
}
