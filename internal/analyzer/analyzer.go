package analyzer

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/atikulmunna/lograte/internal/aggregator"
	"github.com/atikulmunna/lograte/internal/lines"
	"github.com/atikulmunna/lograte/internal/model"
	"github.com/atikulmunna/lograte/internal/output"
	"github.com/atikulmunna/lograte/internal/parser"
	"github.com/atikulmunna/lograte/internal/source"
)

// Recorder observes a run. Implementations must be cheap; they are called
// once per line.
type Recorder interface {
	LineRead()
	LineError()
	BucketEmitted()
	RunFinished(d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) LineRead()                        {}
func (nopRecorder) LineError()                       {}
func (nopRecorder) BucketEmitted()                   {}
func (nopRecorder) RunFinished(time.Duration, error) {}

// Options configures an Analyzer. Zero values select the defaults.
type Options struct {
	Keyword  string
	Pattern  string
	Logger   *log.Logger // line-level diagnostics; defaults to log.Default()
	Recorder Recorder
}

// Analyzer runs the hour-bucket error analysis over log sources. It holds
// only immutable configuration; every call to Run gets fresh state.
type Analyzer struct {
	extractor *parser.Extractor
	matcher   parser.Matcher
	logger    *log.Logger
	recorder  Recorder
}

// New validates opts and compiles the timestamp pattern.
func New(opts Options) (*Analyzer, error) {
	ext, err := parser.NewExtractor(opts.Pattern)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		extractor: ext,
		matcher:   parser.NewKeyword(opts.Keyword),
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	if a.recorder == nil {
		a.recorder = nopRecorder{}
	}
	return a, nil
}

// AnalyzeFile opens path and runs the analysis over it.
func (a *Analyzer) AnalyzeFile(path string, r output.Renderer) (model.Report, error) {
	src, err := source.Open(path)
	if err != nil {
		a.recorder.RunFinished(0, err)
		return model.Report{Source: path}, err
	}
	return a.Run(src, r)
}

// AnalyzeStream runs the analysis over an already open stream; name selects
// decompression the same way a file path does. rc is closed on return.
func (a *Analyzer) AnalyzeStream(name string, rc io.ReadCloser, r output.Renderer) (model.Report, error) {
	src, err := source.New(name, rc)
	if err != nil {
		a.recorder.RunFinished(0, err)
		return model.Report{Source: name}, err
	}
	return a.Run(src, r)
}

// Run consumes src to the end, rendering one event per emitted bucket and a
// final total. Unreadable lines are logged and skipped; a stream failure
// aborts the run without rendering the total. src is always closed.
func (a *Analyzer) Run(src source.Source, r output.Renderer) (rep model.Report, err error) {
	start := time.Now()
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", src.Name(), cerr)
		}
		a.recorder.RunFinished(time.Since(start), err)
	}()

	rep = model.Report{Source: src.Name(), Compressed: src.Compressed()}
	agg := aggregator.New(a.extractor, a.matcher)
	producer := lines.New(src)

	for line, lerr := range producer.All() {
		if lerr != nil {
			if !lines.IsRecoverable(lerr) {
				rep.LinesRead = producer.Count()
				return rep, fmt.Errorf("%s: %w", src.Name(), lerr)
			}
			rep.LineErrors++
			a.recorder.LineError()
			a.logger.Printf("error reading line in %s: %v", src.Name(), lerr)
			continue
		}
		a.recorder.LineRead()

		if b, ok := agg.Advance(line); ok {
			a.recorder.BucketEmitted()
			if err := r.Render(model.BucketEvent(b)); err != nil {
				return rep, fmt.Errorf("render bucket: %w", err)
			}
		}
	}

	rep.LinesRead = producer.Count()
	rep.Totals = agg.Totals()
	if b, ok := agg.Pending(); ok {
		rep.OpenBucket = &b
	}

	if err := r.Render(model.TotalEvent(rep.Totals)); err != nil {
		return rep, fmt.Errorf("render total: %w", err)
	}
	return rep, nil
}
