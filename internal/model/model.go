package model

import "fmt"

// Key identifies an hour bucket. It is a lexical grouping of the extracted
// timestamp text, not a parsed time: two keys are equal iff both fields are.
type Key struct {
	Date string `json:"date"` // YYYY-MM-DD
	Hour string `json:"hour"` // HH
}

func (k Key) String() string {
	return fmt.Sprintf("%s, Hour: %s", k.Date, k.Hour)
}

// Bucket is the error count accumulated for one Key.
type Bucket struct {
	Key        Key `json:"key"`
	ErrorCount int `json:"error_count"`
}

// Totals are the run-wide counters. Both fields advance together and only on
// lines that carry a timestamp and contain the keyword.
type Totals struct {
	Entries int `json:"total_entries"`
	Errors  int `json:"total_errors"`
}

// EventKind distinguishes the two kinds of report line.
type EventKind string

const (
	EventBucket EventKind = "bucket"
	EventTotal  EventKind = "total"
)

// Event is a single report line handed to a renderer.
type Event struct {
	Kind   EventKind `json:"type"`
	RunID  string    `json:"run_id,omitempty"`
	Source string    `json:"source,omitempty"`
	Bucket *Bucket   `json:"bucket,omitempty"`
	Totals *Totals   `json:"totals,omitempty"`
}

// BucketEvent wraps an emitted bucket.
func BucketEvent(b Bucket) Event {
	return Event{Kind: EventBucket, Bucket: &b}
}

// TotalEvent wraps the end-of-run totals.
func TotalEvent(t Totals) Event {
	return Event{Kind: EventTotal, Totals: &t}
}

// Report summarizes a finished run.
type Report struct {
	RunID      string   `json:"run_id,omitempty"`
	Source     string   `json:"source"`
	Compressed bool     `json:"compressed"`
	Buckets    []Bucket `json:"buckets"`
	Totals     Totals   `json:"totals"`
	LinesRead  int      `json:"lines_read"`
	LineErrors int      `json:"line_errors"`
	OpenBucket *Bucket  `json:"open_bucket,omitempty"` // never printed as a bucket line
}
