package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atikulmunna/lograte/internal/model"
)

const (
	// DefaultPattern matches "YYYY-MM-DD HH:MM:SS-ZZ".
	DefaultPattern = `(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}-\d{2})`

	// DefaultKeyword marks a line as an error occurrence.
	DefaultKeyword = "Error"
)

// minMatchLen is the shortest match that still covers the hour field.
const minMatchLen = 13

// ---------------------------------------------------------------------------
// Timestamp Extractor
// ---------------------------------------------------------------------------

// Extractor pulls a date+hour Key out of a line. It is stateless and safe to
// share; the pattern is compiled once.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles pattern. An empty pattern selects DefaultPattern.
func NewExtractor(pattern string) (*Extractor, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp pattern: %w", err)
	}
	return &Extractor{re: re}, nil
}

// MustExtractor is NewExtractor for known-good patterns.
func MustExtractor(pattern string) *Extractor {
	e, err := NewExtractor(pattern)
	if err != nil {
		panic(err)
	}
	return e
}

// Pattern returns the source text of the compiled pattern.
func (e *Extractor) Pattern() string { return e.re.String() }

// Extract returns the Key of the first timestamp on the line. Date is the
// first 10 bytes of the match and Hour bytes 11..13. Later timestamps on the
// same line are ignored.
func (e *Extractor) Extract(line string) (model.Key, bool) {
	loc := e.re.FindStringIndex(line)
	if loc == nil {
		return model.Key{}, false
	}
	ts := line[loc[0]:loc[1]]
	if len(ts) < minMatchLen {
		return model.Key{}, false
	}
	return model.Key{Date: ts[0:10], Hour: ts[11:13]}, true
}

// ---------------------------------------------------------------------------
// Error Matcher
// ---------------------------------------------------------------------------

// Matcher decides whether a line counts as an error occurrence.
type Matcher interface {
	Match(line string) bool
}

// Keyword is a case-sensitive substring Matcher with no word-boundary rule.
type Keyword string

// NewKeyword returns the Matcher for kw, or DefaultKeyword when kw is empty.
func NewKeyword(kw string) Keyword {
	if kw == "" {
		return Keyword(DefaultKeyword)
	}
	return Keyword(kw)
}

func (k Keyword) Match(line string) bool {
	return strings.Contains(line, string(k))
}
