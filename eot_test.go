package woff

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

// minimalSFNT returns the smallest structurally valid bare sfnt ParseSFNT
// accepts: a 12-byte header with zero tables.
func minimalSFNT() []byte {
	b := make([]byte, 12)
	copy(b, "true")
	return b
}

// buildEOT assembles a version 0x00010000 EOT wrapper around fontData, with
// every name field empty, matching the layout ParseEOT reads in eot.go.
func buildEOT(fontData []byte, flags uint32) []byte {
	const headerSize = 96
	b := make([]byte, headerSize+len(fontData))
	le := binary.LittleEndian
	le.PutUint32(b[0:4], uint32(len(b)))         // EOTSize
	le.PutUint32(b[4:8], uint32(len(fontData)))  // FontDataSize
	le.PutUint32(b[8:12], uint32(eotVersion1))   // Version
	le.PutUint32(b[12:16], flags)                // Flags
	// FontPANOSE[10], Charset, Italic, Weight, fsType all left zero
	le.PutUint16(b[34:36], 0x504C) // MagicNumber
	// Unicode/CodePage ranges (24 bytes), CheckSumAdjustment, Reserved(16),
	// Padding1, the four *NameSize fields, and their Padding*N siblings
	// are all left zero -- empty names, no checksum claim.
	copy(b[headerSize:], fontData)
	return b
}

func TestParseEOTExtractsEmbeddedSFNT(t *testing.T) {
	sfnt := minimalSFNT()
	eot := buildEOT(sfnt, 0)

	got, err := ParseEOT(eot)
	test.Error(t, err)
	test.T(t, got, sfnt)
}

func TestParseEOTUnXORs(t *testing.T) {
	sfnt := minimalSFNT()
	xored := append([]byte(nil), sfnt...)
	for i := range xored {
		xored[i] ^= 0x50
	}
	eot := buildEOT(xored, 0x10000000)

	got, err := ParseEOT(eot)
	test.Error(t, err)
	test.T(t, got, sfnt)
}

func TestParseEOTRejectsCompressed(t *testing.T) {
	eot := buildEOT(minimalSFNT(), 0x00000004)
	_, err := ParseEOT(eot)
	if !errors.Is(err, ErrInvalidFontData) {
		test.Fail(t, "expected ErrInvalidFontData for a compressed EOT payload")
	}
}

func TestParseEOTRejectsBadMagicNumber(t *testing.T) {
	eot := buildEOT(minimalSFNT(), 0)
	binary.LittleEndian.PutUint16(eot[34:36], 0x0000)
	_, err := ParseEOT(eot)
	if !errors.Is(err, ErrInvalidFontData) {
		test.Fail(t, "expected ErrInvalidFontData for a bad magic number")
	}
}

func TestParseEOTRejectsUnsupportedVersion(t *testing.T) {
	eot := buildEOT(minimalSFNT(), 0)
	binary.LittleEndian.PutUint32(eot[8:12], 0x00030000)
	_, err := ParseEOT(eot)
	if !errors.Is(err, ErrInvalidFontData) {
		test.Fail(t, "expected ErrInvalidFontData for an unrecognised EOT version")
	}
}

func TestParseEOTRejectsMalformedEmbeddedSFNT(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B}
	eot := buildEOT(garbage, 0)
	_, err := ParseEOT(eot)
	if !errors.Is(err, ErrInvalidFontData) {
		test.Fail(t, "expected ErrInvalidFontData for a payload that is not a valid sfnt")
	}
}

func TestParseEOTRejectsTruncatedWrapper(t *testing.T) {
	eot := buildEOT(minimalSFNT(), 0)
	_, err := ParseEOT(eot[:len(eot)-4])
	if !errors.Is(err, ErrInvalidFontData) {
		test.Fail(t, "expected ErrInvalidFontData for a wrapper shorter than FontDataSize promises")
	}
}

func TestDispatchToSFNTRecognisesEOT(t *testing.T) {
	sfnt := minimalSFNT()
	eot := buildEOT(sfnt, 0)

	mediatype, err := MediaType(eot)
	test.Error(t, err)
	test.T(t, mediatype, "font/eot")
	test.T(t, Extension(eot), ".eot")

	got, err := ToSFNT(eot)
	test.Error(t, err)
	test.T(t, got, sfnt)
}
