package source

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// GzipSuffix selects transparent decompression.
const GzipSuffix = ".gz"

var (
	// ErrOpen wraps failures to open the underlying file.
	ErrOpen = errors.New("open log source")
	// ErrDecompress wraps malformed compressed content.
	ErrDecompress = errors.New("decompress log source")
)

// Source is a byte stream for a single log, decompressed if needed.
type Source interface {
	io.ReadCloser
	Name() string
	Compressed() bool
}

// IsCompressed reports whether name selects gzip decompression.
// Only the suffix is inspected; content is never sniffed.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, GzipSuffix)
}

// Open opens the file at path and returns a PlainSource or GzipSource
// depending on its suffix. The caller owns the returned Source.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return New(path, f)
}

// New selects the source variant for an already open stream. On error rc is
// closed before returning.
func New(name string, rc io.ReadCloser) (Source, error) {
	if !IsCompressed(name) {
		return &PlainSource{name: name, rc: rc}, nil
	}
	src, err := newGzipSource(name, rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return src, nil
}

// ---------------------------------------------------------------------------
// Plain
// ---------------------------------------------------------------------------

// PlainSource passes the raw stream through untouched.
type PlainSource struct {
	name string
	rc   io.ReadCloser
}

func (s *PlainSource) Read(p []byte) (int, error) { return s.rc.Read(p) }
func (s *PlainSource) Close() error               { return s.rc.Close() }
func (s *PlainSource) Name() string               { return s.name }
func (s *PlainSource) Compressed() bool           { return false }

// ---------------------------------------------------------------------------
// Gzip
// ---------------------------------------------------------------------------

// GzipSource decompresses the raw stream incrementally. Corrupt input is
// reported when the damaged bytes are reached, wrapped in ErrDecompress.
type GzipSource struct {
	name  string
	rc    io.ReadCloser
	zr    *gzip.Reader // nil for a zero-length file
	empty bool
}

func newGzipSource(name string, rc io.ReadCloser) (*GzipSource, error) {
	zr, err := gzip.NewReader(rc)
	switch {
	case errors.Is(err, io.EOF):
		// gzip.NewReader reports a zero-length input as EOF; treat it as an
		// empty log rather than a corrupt one.
		return &GzipSource{name: name, rc: rc, empty: true}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompress, name, err)
	}
	return &GzipSource{name: name, rc: rc, zr: zr}, nil
}

func (s *GzipSource) Read(p []byte) (int, error) {
	if s.empty {
		return 0, io.EOF
	}
	n, err := s.zr.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %s: %w", ErrDecompress, s.name, err)
	}
	return n, err
}

// Close releases the decompressor and the underlying stream.
func (s *GzipSource) Close() error {
	var zerr error
	if s.zr != nil {
		zerr = s.zr.Close()
	}
	return errors.Join(zerr, s.rc.Close())
}

func (s *GzipSource) Name() string     { return s.name }
func (s *GzipSource) Compressed() bool { return true }
