package woff

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"testing"

	"github.com/tdewolff/test"
)

func TestValidateCleanFile(t *testing.T) {
	b := buildSampleWOFF(t)
	report := Validate(b)
	test.T(t, report.HaveReadError, false)
	if report.HasErrors() {
		test.Fail(t, "a well-formed WOFF file must not report any errors")
	}
	test.T(t, len(report.Groups), 25)
}

func TestValidateTruncatedFileStopsEarly(t *testing.T) {
	report := Validate([]byte("wOFF"))
	test.T(t, report.HaveReadError, true)
	test.T(t, len(report.Groups), 1)
	test.T(t, report.Groups[0].Title, "h-size")
	if !report.HasErrors() {
		test.Fail(t, "a truncated file must report an error")
	}
}

func TestValidateBadSignature(t *testing.T) {
	b := buildSampleWOFF(t)
	bad := append([]byte(nil), b...)
	copy(bad[:4], "XOFF")
	report := Validate(bad)
	group := report.Group("h-signature")
	if len(group) == 0 || group[0].Kind != Error {
		test.Fail(t, "expected h-signature to report an error")
	}
}

func TestValidateDsigIsWarningNotError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 2, 0x00010000, 1, 0)
	w.ReorderTables = false
	w.RecomputeHeadChecksum = false
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetTable("DSIG", []byte{0x00, 0x00, 0x00, 0x01})
	test.Error(t, w.Close())

	report := Validate(buf.Bytes())
	if report.HasErrors() {
		test.Fail(t, "a DSIG table must only trigger a warning, not an error")
	}
	group := report.Group("t-dsig")
	if len(group) == 0 || group[0].Kind != Warning {
		test.Fail(t, "expected t-dsig to report a warning")
	}
}

func TestValidateMetadataDuplicateLangIsError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetMetadataTree(&MetadataElement{
		Name:  "metadata",
		Attrs: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: "1.0"}},
		Children: []*MetadataElement{
			{
				Name: "description",
				Children: []*MetadataElement{
					{Name: "text", Text: "English copy."},
					{Name: "text", Text: "Another English copy."},
				},
			},
		},
	})
	test.Error(t, w.Close())

	report := Validate(buf.Bytes())
	if !report.HasErrors() {
		test.Fail(t, "duplicate untagged languages must be reported as an error")
	}
	group := report.Group("m-structure")
	found := false
	for _, f := range group {
		if f.Kind == Error {
			found = true
		}
	}
	if !found {
		test.Fail(t, "expected m-structure to carry an error finding")
	}
}

// TestValidateHLengthDoesNotPadFinalMetadataSection builds a WOFF file by
// hand whose metadata block is the final section and whose compressed
// length (5 bytes) is not a multiple of four -- the common case, since
// zlib output length has no relation to 4-byte alignment. h-length must
// not require tail padding after a final metadata section (§9, writer.go's
// own Close never emits any), so the pipeline must reach m-decompression
// rather than stopping at h-length with a false "length is smaller than
// computed minimum" error.
func TestValidateHLengthDoesNotPadFinalMetadataSection(t *testing.T) {
	const (
		headerSize = 44
		dirSize    = 20
		tableData  = "AAAA"
		metaOffset = headerSize + dirSize + len(tableData) // 68, already 4-aligned
		metaLength = 5                                     // deliberately not a multiple of 4
		length     = metaOffset + metaLength               // unpadded, metadata is the final section
	)

	b := make([]byte, length)
	copy(b[0:4], "wOFF")
	binary.BigEndian.PutUint32(b[4:8], 0x00010000)
	binary.BigEndian.PutUint32(b[8:12], uint32(length))
	binary.BigEndian.PutUint16(b[12:14], 1) // numTables
	binary.BigEndian.PutUint32(b[16:20], uint32(12+16+pad4(uint32(len(tableData)))))
	binary.BigEndian.PutUint16(b[20:22], 1) // majorVersion
	binary.BigEndian.PutUint32(b[24:28], uint32(metaOffset))
	binary.BigEndian.PutUint32(b[28:32], uint32(metaLength))
	binary.BigEndian.PutUint32(b[32:36], 10) // metaOrigLength, unchecked before inflate fails

	copy(b[44:48], "cmap")
	binary.BigEndian.PutUint32(b[48:52], uint32(headerSize+dirSize)) // offset
	binary.BigEndian.PutUint32(b[52:56], uint32(len(tableData)))     // compLength
	binary.BigEndian.PutUint32(b[56:60], uint32(len(tableData)))     // origLength
	binary.BigEndian.PutUint32(b[60:64], tableChecksum("cmap", []byte(tableData)))

	copy(b[64:68], tableData)
	copy(b[68:73], []byte{0x01, 0x02, 0x03, 0x04, 0x05}) // not a valid zlib stream

	report := Validate(b)
	group := report.Group("h-length")
	if len(group) == 0 || group[0].Kind != Pass {
		test.Fail(t, "expected h-length to pass for an unpadded final metadata section")
	}
	if report.Group("m-decompression") == nil {
		test.Fail(t, "expected the pipeline to reach m-decompression instead of stopping at h-length")
	}
}

func TestValidateMalformedMetadataStopsEarly(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1, 0x00010000, 1, 0)
	w.SetTable("cmap", []byte{0x00, 0x00, 0x00, 0x01})
	w.SetMetadata([]byte("not valid xml metadata"))
	test.Error(t, w.Close())

	// Flip the first byte of the compressed metadata block so it is no
	// longer a valid zlib stream.
	b := buf.Bytes()
	b[binary.BigEndian.Uint32(b[24:28])] ^= 0xFF

	report := Validate(b)
	group := report.Group("m-decompression")
	if len(group) == 0 || group[0].Kind != Error {
		test.Fail(t, "expected m-decompression to report an error")
	}
	test.T(t, report.HaveReadError, true)
}
