package woff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// DefaultCompressionLevel is the zlib level used when a writer is not given
// an explicit one.
const DefaultCompressionLevel = 9

// deflate zlib-compresses b at level, which must be in [1, 9]. This is the
// only compression WOFF 1.0 permits for table bodies, metadata and -- via
// the same call -- any other block the format asks to shrink.
func deflate(b []byte, level int) ([]byte, error) {
	if level < 1 || level > 9 {
		return nil, fmt.Errorf("deflate: level must be between 1 and 9, got %d", level)
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate zlib-decompresses b. Any error -- bad header, truncated stream,
// checksum failure -- is reported as ErrDecompressionFailed so callers can
// distinguish a malformed compressed block from other structural failures.
func inflate(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// compressTable returns the compressed form of data along with the
// compLength to store, applying the format's "never grow" rule: if
// deflate does not shrink the table, the uncompressed bytes are kept and
// compLength equals origLength.
func compressTable(data []byte, level int) (body []byte, compLength uint32, err error) {
	compressed, err := deflate(data, level)
	if err != nil {
		return nil, 0, err
	}
	if len(compressed) >= len(data) {
		return data, uint32(len(data)), nil
	}
	return compressed, uint32(len(compressed)), nil
}
