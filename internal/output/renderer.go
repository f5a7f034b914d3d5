package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/atikulmunna/lograte/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes report events to an output stream.
type Renderer interface {
	Render(ev model.Event) error
}

// ---------------------------------------------------------------------------
// Text Renderer
// ---------------------------------------------------------------------------

// FormatBucket returns the report line for an emitted bucket.
func FormatBucket(b model.Bucket) string {
	return fmt.Sprintf("%s - Error Count: %d", b.Key, b.ErrorCount)
}

// FormatTotal returns the final report line.
func FormatTotal(t model.Totals) string {
	return fmt.Sprintf("Total error count for current log: %d", t.Errors)
}

// TextRenderer prints one human-readable line per event. Styling is only
// applied when the destination is a terminal, so piped output stays plain.
type TextRenderer struct {
	w     io.Writer
	color bool
	hit   lipgloss.Style // bucket with errors
	quiet lipgloss.Style // bucket without errors
	total lipgloss.Style
}

// NewTextRenderer returns a TextRenderer writing to w. With color false no
// escape sequences are ever written.
func NewTextRenderer(w io.Writer, color bool) *TextRenderer {
	r := &TextRenderer{w: w, color: color}
	if color {
		lr := lipgloss.NewRenderer(w)
		r.hit = lr.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
		r.quiet = lr.NewStyle().Foreground(lipgloss.Color("245"))          // gray
		r.total = lr.NewStyle().Bold(true)
	}
	return r
}

func (r *TextRenderer) Render(ev model.Event) error {
	var line string
	switch {
	case ev.Kind == model.EventBucket && ev.Bucket != nil:
		line = FormatBucket(*ev.Bucket)
		if r.color {
			if ev.Bucket.ErrorCount > 0 {
				line = r.hit.Render(line)
			} else {
				line = r.quiet.Render(line)
			}
		}
	case ev.Kind == model.EventTotal && ev.Totals != nil:
		line = FormatTotal(*ev.Totals)
		if r.color {
			line = r.total.Render(line)
		}
	default:
		return fmt.Errorf("unrenderable event %q", ev.Kind)
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// ---------------------------------------------------------------------------
// JSON Renderer
// ---------------------------------------------------------------------------

// JSONRenderer prints each event as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(ev model.Event) error {
	return r.enc.Encode(ev)
}

// ---------------------------------------------------------------------------
// Composition
// ---------------------------------------------------------------------------

// Multi fans every event out to each renderer in order and returns the
// first error.
type Multi []Renderer

func (m Multi) Render(ev model.Event) error {
	for _, r := range m {
		if err := r.Render(ev); err != nil {
			return err
		}
	}
	return nil
}

// Tagged stamps run metadata onto events before passing them on.
type Tagged struct {
	Next   Renderer
	RunID  string
	Source string
}

func (t Tagged) Render(ev model.Event) error {
	ev.RunID = t.RunID
	ev.Source = t.Source
	return t.Next.Render(ev)
}

// Collector keeps emitted buckets in memory for callers that return them as
// a single document.
type Collector struct {
	mu      sync.Mutex
	buckets []model.Bucket
	totals  *model.Totals
}

func (c *Collector) Render(ev model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case model.EventBucket:
		if ev.Bucket != nil {
			c.buckets = append(c.buckets, *ev.Bucket)
		}
	case model.EventTotal:
		if ev.Totals != nil {
			t := *ev.Totals
			c.totals = &t
		}
	}
	return nil
}

// Buckets returns the collected buckets in emission order.
func (c *Collector) Buckets() []model.Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Bucket, len(c.buckets))
	copy(out, c.buckets)
	return out
}

// Totals returns the rendered totals, if the run reached its end.
func (c *Collector) Totals() (model.Totals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totals == nil {
		return model.Totals{}, false
	}
	return *c.totals, true
}
