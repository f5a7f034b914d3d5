package aggregator

import (
	"github.com/atikulmunna/lograte/internal/model"
	"github.com/atikulmunna/lograte/internal/parser"
)

// Aggregator groups lines into hour buckets and counts keyword hits.
//
// It is a two-state machine: Empty until the first timestamped line, then
// Open(key, count). A line whose key differs from the open one emits the
// open bucket and starts a new one. End of input does not flush the open
// bucket; callers that want it can read Pending.
//
// An Aggregator belongs to a single run and is not safe for concurrent use.
type Aggregator struct {
	extractor *parser.Extractor
	matcher   parser.Matcher

	open    bool
	current model.Bucket
	totals  model.Totals
}

// New creates an Aggregator in the Empty state.
func New(extractor *parser.Extractor, matcher parser.Matcher) *Aggregator {
	return &Aggregator{
		extractor: extractor,
		matcher:   matcher,
	}
}

// Advance feeds one line through the state machine. It returns the
// displaced bucket and true when the line's key closes the open bucket.
// Lines without a timestamp are ignored entirely.
func (a *Aggregator) Advance(line string) (model.Bucket, bool) {
	key, ok := a.extractor.Extract(line)
	if !ok {
		return model.Bucket{}, false
	}
	hit := a.matcher.Match(line)

	var (
		emitted model.Bucket
		flushed bool
	)
	if !a.open || a.current.Key != key {
		if a.open {
			emitted, flushed = a.current, true
		}
		a.open = true
		a.current = model.Bucket{Key: key}
	}

	if hit {
		a.current.ErrorCount++
		a.totals.Entries++
		a.totals.Errors++
	}
	return emitted, flushed
}

// Pending returns the open bucket, if any. It is never emitted by Advance
// once input ends.
func (a *Aggregator) Pending() (model.Bucket, bool) {
	return a.current, a.open
}

// Totals returns the run-wide counters accumulated so far.
func (a *Aggregator) Totals() model.Totals {
	return a.totals
}
