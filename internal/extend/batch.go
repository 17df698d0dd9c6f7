package extend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

// ExtendAll extends every truncated record of one gene, first at the end
// (downstream, records with cds_end_NF, reference refs.End) and then at the
// start (upstream, records with cds_start_NF, reference refs.Start). The
// start pass reads the end pass output, so a transcript truncated at both
// ends is start-extended from its end-extended coordinates.
//
// Only extended ids are returned; for an id extended in both passes the
// start-pass set wins. source is not modified.
func (e *Extender) ExtendAll(truncated []cache.Record, refs References, source cache.Features) (cache.Features, error) {
	ends, err := e.pass(truncated, refs.End, ranges.Downstream, source,
		func(r cache.Record) bool { return r.CDSEndNF })
	if err != nil {
		return nil, fmt.Errorf("end pass: %w", err)
	}

	baseline := source
	if len(ends) > 0 {
		baseline = source.With(ends)
	}

	starts, err := e.pass(truncated, refs.Start, ranges.Upstream, baseline,
		func(r cache.Record) bool { return r.CDSStartNF })
	if err != nil {
		return nil, fmt.Errorf("start pass: %w", err)
	}

	out := make(cache.Features, len(ends)+len(starts))
	for id, s := range ends {
		out[id] = s
	}
	for id, s := range starts {
		out[id] = s
	}
	return out, nil
}

// pass runs one direction over the selected records. A missing or
// ambiguous reference skips the pass.
func (e *Extender) pass(truncated []cache.Record, ref Reference, dir ranges.Direction, source cache.Features, selected func(cache.Record) bool) (cache.Features, error) {
	refID, ok := ref.Single()
	if !ok {
		if ref.Kind == AmbiguousReference {
			e.logger.Debug("ambiguous reference, skipping direction",
				zap.Stringer("direction", dir),
				zap.Strings("reference_ids", ref.IDs))
		}
		return nil, nil
	}

	out := make(cache.Features)
	for _, r := range truncated {
		if !selected(r) {
			continue
		}
		o, err := e.Extend(r.ID, refID, dir, source)
		if err != nil {
			return nil, err
		}
		if o.Extended() {
			out[r.ID] = o.Exons
		}
	}
	return out, nil
}
