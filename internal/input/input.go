// Package input reads line-oriented CLI input, transparently decompressing
// xz and gzip streams.
package input

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

// Compression identifies how an input stream is encoded.
type Compression string

const (
	// CompressionNone is plain text.
	CompressionNone Compression = "none"
	// CompressionXZ is an xz stream.
	CompressionXZ Compression = "xz"
	// CompressionGzip is a gzip stream.
	CompressionGzip Compression = "gzip"
)

// MaxLineSize is the longest line Lines accepts.
const MaxLineSize = 16 * 1024 * 1024

var (
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Detect reports the compression of a stream from its leading bytes.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, xzMagic):
		return CompressionXZ
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Reader wraps r, decompressing it when it starts with xz or gzip magic bytes.
func Reader(r io.Reader) (io.Reader, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, CompressionNone, fmt.Errorf("failed to read magic bytes: %w", err)
	}

	switch c := Detect(head); c {
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, c, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gr, c, nil
	default:
		return br, c, nil
	}
}

// Open opens path for reading; "" and "-" mean stdin. The caller closes the
// returned file.
func Open(path string) (io.Reader, io.Closer, error) {
	if path == "" || path == "-" {
		r, _, err := Reader(os.Stdin)
		return r, nopCloser{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open input %s", path)
	}
	r, _, err := Reader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "read input %s", path)
	}
	return r, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Lines calls fn for each line of r without its trailing newline (and
// carriage return). The slice passed to fn is only valid during the call.
func Lines(r io.Reader, fn func(line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for sc.Scan() {
		if err := fn(bytes.TrimSuffix(sc.Bytes(), []byte{'\r'})); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to scan input: %w", err)
	}
	return nil
}
