package lines

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

const readBufferSize = 64 * 1024

// ErrInvalidEncoding marks a line that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("line is not valid UTF-8")

// LineError reports a single unreadable line. It is recoverable: the
// producer has already moved past the line and the next call continues.
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Producer reads newline-delimited lines from a byte stream. It is
// single-pass; reopen the source to start again.
type Producer struct {
	r    *bufio.Reader
	line int
	done bool
}

// New wraps r in a buffered reader.
func New(r io.Reader) *Producer {
	return &Producer{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next returns the next line without its line terminator. At end of stream
// it returns io.EOF. A *LineError is recoverable; any other error means the
// stream is unusable and every later call returns io.EOF.
func (p *Producer) Next() (string, error) {
	if p.done {
		return "", io.EOF
	}

	text, err := p.r.ReadString('\n')
	if err != nil {
		p.done = true
		if err != io.EOF {
			return "", fmt.Errorf("read line %d: %w", p.line+1, err)
		}
		if text == "" {
			return "", io.EOF
		}
		// Final line without a trailing newline.
	}

	p.line++
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")

	if !utf8.ValidString(text) {
		return "", &LineError{Line: p.line, Err: ErrInvalidEncoding}
	}
	return text, nil
}

// Count returns how many lines have been consumed so far, including lines
// that failed to decode.
func (p *Producer) Count() int { return p.line }

// All returns the remaining lines as a lazy sequence. Iteration stops after
// a fatal error has been yielded or the stream is exhausted.
func (p *Producer) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			text, err := p.Next()
			if err == io.EOF {
				return
			}
			if !yield(text, err) {
				return
			}
			if err != nil && !IsRecoverable(err) {
				return
			}
		}
	}
}

// IsRecoverable reports whether err only affects a single line.
func IsRecoverable(err error) bool {
	var le *LineError
	return errors.As(err, &le)
}
