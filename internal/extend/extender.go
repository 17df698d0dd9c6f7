// Package extend repairs truncated transcript models by borrowing terminal
// exons from the gene's reference transcript.
package extend

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-extend/internal/cache"
	"github.com/inodb/vibe-extend/internal/ranges"
)

// DefaultMaxDivergence is the default limit, in bases, on the truncated
// transcript's own unique region in the direction being extended.
const DefaultMaxDivergence int64 = 100000

// Reason explains the outcome of one extension attempt.
type Reason string

// Reason values.
const (
	ReasonExtended           Reason = "extended"
	ReasonSameTranscript     Reason = "same_transcript"
	ReasonNoOverlap          Reason = "no_overlap"
	ReasonUnsupportedExon    Reason = "unsupported_exon"
	ReasonDivergenceTooLarge Reason = "divergence_too_large"
	ReasonNothingToAdd       Reason = "nothing_to_add"
)

// Outcome is the result of one extension attempt. A transcript that was not
// extended has an empty Exons set.
type Outcome struct {
	Exons  ranges.Set
	Reason Reason
}

// Extended returns true if the attempt produced a new interval set.
func (o Outcome) Extended() bool {
	return len(o.Exons) > 0
}

func notExtended(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

// Extender decides whether truncated transcripts can safely be extended.
type Extender struct {
	maxDivergence int64
	logger        *zap.Logger
}

// NewExtender creates an extender with the default divergence limit.
func NewExtender() *Extender {
	return &Extender{
		maxDivergence: DefaultMaxDivergence,
		logger:        zap.NewNop(),
	}
}

// SetMaxDivergence sets the limit on the summed width of the truncated
// transcript's unique region in the extension direction.
func (e *Extender) SetMaxDivergence(n int64) {
	e.maxDivergence = n
}

// SetLogger sets the logger for per-transcript decisions.
func (e *Extender) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Extend decides whether the truncated transcript can be extended in
// direction dir using the reference transcript, both read from source. It
// returns an error only if either id has no entry in source.
func (e *Extender) Extend(truncatedID, referenceID string, dir ranges.Direction, source cache.Features) (Outcome, error) {
	truncated, err := source.Get(truncatedID)
	if err != nil {
		return Outcome{}, err
	}
	reference, err := source.Get(referenceID)
	if err != nil {
		return Outcome{}, err
	}

	out := e.decide(truncatedID, referenceID, truncated, reference, dir)
	e.logger.Debug("extension decision",
		zap.String("transcript_id", truncatedID),
		zap.String("reference_id", referenceID),
		zap.Stringer("direction", dir),
		zap.String("reason", string(out.Reason)))
	return out, nil
}

func (e *Extender) decide(truncatedID, referenceID string, truncated, reference ranges.Set, dir ranges.Direction) Outcome {
	if truncatedID == referenceID {
		return notExtended(ReasonSameTranscript)
	}

	// No shared splice context to anchor on
	if !truncated.Overlaps(reference) {
		return notExtended(ReasonNoOverlap)
	}

	truncOnly, refOnly := ranges.Diff(truncated, reference)

	if unique := truncOnly.Tagged(dir); len(unique) > 0 {
		// The check is on whole exons: a diff fragment may be a partial exon.
		parents := parentExons(truncated, unique)
		refIndex := ranges.BuildIndex(reference)
		supported := 0
		for _, p := range parents {
			if refIndex.Any(p) {
				supported++
			}
		}
		if supported < len(parents) {
			return notExtended(ReasonUnsupportedExon)
		}
		if unique.Len() > e.maxDivergence {
			return notExtended(ReasonDivergenceTooLarge)
		}
	}

	missing := refOnly.Tagged(dir)
	if len(missing) == 0 {
		return notExtended(ReasonNothingToAdd)
	}

	return Outcome{Exons: ranges.Union(truncated, missing), Reason: ReasonExtended}
}

// parentExons maps each fragment to the exons of set containing it,
// without duplicates, in coordinate order.
func parentExons(set, fragments ranges.Set) ranges.Set {
	idx := ranges.BuildIndex(set)
	seen := make(map[ranges.Interval]bool)
	var parents ranges.Set
	for _, f := range fragments {
		for _, p := range idx.Overlapping(f) {
			p = p.Strip()
			if !seen[p] {
				seen[p] = true
				parents = append(parents, p)
			}
		}
	}
	return parents
}
