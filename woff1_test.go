package woff

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

func buildSampleWOFF(t *testing.T) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf, 3, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01, 0x02, 0x03})
	w.SetTable("head", makeHeadTable(0))
	w.SetTable("maxp", []byte{0x00, 0x01, 0x00, 0x02})
	err := w.Close()
	test.Error(t, err)
	return buf.Bytes()
}

func TestWriterReaderRoundTrip(t *testing.T) {
	b := buildSampleWOFF(t)

	f, err := Parse(b)
	test.Error(t, err)
	test.T(t, f.Flavor, uint32(0x00010000))

	cmap, ok := f.GetTableBytes("cmap")
	test.T(t, ok, true)
	test.T(t, cmap, []byte{0x00, 0x00, 0x00, 0x01, 0x02, 0x03})

	maxp, ok := f.GetTableBytes("maxp")
	test.T(t, ok, true)
	test.T(t, maxp, []byte{0x00, 0x01, 0x00, 0x02})
}

func TestWriterRecomputesHeadChecksum(t *testing.T) {
	b := buildSampleWOFF(t)

	r, err := NewReader(b)
	test.Error(t, err)
	r.Strict = true

	head, err := r.TableBytes("head")
	test.Error(t, err)

	tables := []Table{}
	for _, tag := range r.Tags() {
		data, err := r.TableBytes(tag)
		test.Error(t, err)
		tables = append(tables, Table{Tag: tag, Data: data})
	}
	want, err := headCheckSumAdjustment(r.Flavor, tables)
	test.Error(t, err)
	got := uint32(head[8])<<24 | uint32(head[9])<<16 | uint32(head[10])<<8 | uint32(head[11])
	test.T(t, got, want)
}

func TestWriterAcceptsConsistentPrecompressedForm(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	data := bytes.Repeat([]byte{0x00, 0x00, 0x00, 0x01}, 64)
	compressed, compLength, err := compressTable(data, DefaultCompressionLevel)
	test.Error(t, err)
	w.SetTable("cmap", data, PrecompressedForm{
		OrigLength:   uint32(len(data)),
		OrigChecksum: tableChecksum("cmap", data),
		CompLength:   compLength,
		CompBody:     compressed,
	})
	test.Error(t, w.Close())

	f, err := Parse(buf.Bytes())
	test.Error(t, err)
	cmap, ok := f.GetTableBytes("cmap")
	test.T(t, ok, true)
	test.T(t, cmap, data)
}

func TestWriterRejectsPrecompressedFormWithWrongChecksum(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	data := []byte{0x00, 0x00, 0x00, 0x01}
	w.SetTable("cmap", data, PrecompressedForm{
		OrigLength:   uint32(len(data)),
		OrigChecksum: 0xBAADF00D, // does not match data's real checksum
		CompLength:   uint32(len(data)),
		CompBody:     data,
	})
	err := w.Close()
	if !errors.Is(err, ErrConformanceFailure) {
		test.Fail(t, "expected ErrConformanceFailure for a mismatched checksum claim")
	}
}

func TestWriterRejectsPrecompressedFormWithOverlongCompLength(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	data := []byte{0x00, 0x00, 0x00, 0x01}
	w.SetTable("cmap", data, PrecompressedForm{
		OrigLength:   uint32(len(data)),
		OrigChecksum: tableChecksum("cmap", data),
		CompLength:   uint32(len(data)) + 1, // claims to be larger than origLength
		CompBody:     append(append([]byte(nil), data...), 0x00),
	})
	err := w.Close()
	if !errors.Is(err, ErrConformanceFailure) {
		test.Fail(t, "expected ErrConformanceFailure for compLength exceeding origLength")
	}
}

func TestWriterWrongTableCount(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 2, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	err := w.Close()
	if err == nil {
		test.Fail(t, "expected ErrWrongTableCount")
	}
}

func TestWriterDsigRequiresFixedLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 2, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetTable("DSIG", []byte{0x00, 0x00, 0x00, 0x01})
	err := w.Close()
	if err == nil {
		test.Fail(t, "expected ErrDsigRequiresFixedLayout")
	}
}

func TestWriterDsigSucceedsWithFixedLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 2, 0x00010000, 1, 0)
	w.ReorderTables = false
	w.RecomputeHeadChecksum = false
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetTable("DSIG", []byte{0x00, 0x00, 0x00, 0x01})
	err := w.Close()
	test.Error(t, err)
}

func TestMetadataRoundTripsThroughFont(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetMetadataTree(&MetadataElement{Name: "metadata"})
	err := w.Close()
	test.Error(t, err)

	f, err := Parse(buf.Bytes())
	test.Error(t, err)
	tree, err := f.MetadataTree()
	test.Error(t, err)
	test.T(t, tree.Name, "metadata")
}

func TestParseBadSignature(t *testing.T) {
	b := make([]byte, 44)
	copy(b, "XOFF")
	_, err := NewReader(b)
	if err != ErrBadSignature {
		test.Fail(t, "expected ErrBadSignature")
	}
}

func TestParseTooShort(t *testing.T) {
	_, err := NewReader([]byte("wOFF"))
	if err == nil {
		test.Fail(t, "expected an error for a file shorter than the header")
	}
}
