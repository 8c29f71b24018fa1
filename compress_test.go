package woff

import (
	"bytes"
	"testing"

	"github.com/tdewolff/test"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	orig := []byte("the quick brown fox jumps over the lazy dog, repeatedly, for compressibility")
	compressed, err := deflate(orig, DefaultCompressionLevel)
	test.Error(t, err)

	decompressed, err := inflate(compressed)
	test.Error(t, err)
	test.T(t, decompressed, orig)
}

func TestInflateMalformed(t *testing.T) {
	_, err := inflate([]byte{0x00, 0x01, 0x02, 0x03})
	if err == nil {
		test.Fail(t, "expected an error for a malformed zlib stream")
	}
}

func TestCompressTableNeverGrows(t *testing.T) {
	// Random-looking short data that will not compress smaller than itself.
	incompressible := []byte{0x4c, 0x91, 0x02, 0xfe, 0x13, 0x77, 0x00, 0xab}
	body, compLength, err := compressTable(incompressible, DefaultCompressionLevel)
	test.Error(t, err)
	test.T(t, compLength, uint32(len(incompressible)))
	test.T(t, body, incompressible)
}

func TestCompressTableShrinks(t *testing.T) {
	data := bytes.Repeat([]byte("aaaaaaaaaa"), 200)
	body, compLength, err := compressTable(data, DefaultCompressionLevel)
	test.Error(t, err)
	if compLength >= uint32(len(data)) {
		test.Fail(t, "expected compression to shrink a highly repetitive buffer")
	}
	decompressed, err := inflate(body)
	test.Error(t, err)
	test.T(t, decompressed, data)
}
