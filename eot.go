package woff

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// eotVersion identifies the three EOT header layouts this decoder
// recognises; later versions append a root-string block (0x00020001 and
// up) and, in 0x00020002, signature and EUDC (end-user-defined character)
// font blocks on top of the version 1 fields. See
// https://www.w3.org/Submission/EOT/.
type eotVersion uint32

const (
	eotVersion1  eotVersion = 0x00010000
	eotVersion20 eotVersion = 0x00020001
	eotVersion22 eotVersion = 0x00020002
)

// ParseEOT parses the EOT font format and returns its contained sfnt bytes
// (TTF or OTF). Before returning, the extracted bytes are run through
// ParseSFNT (the module's structural, non-semantic sfnt parser, see
// sfnt.go) so a truncated FontDataSize or a wrongly un-XORed payload is
// rejected as ErrInvalidFontData here rather than handed to a caller as
// sfnt bytes that merely look plausible.
func ParseEOT(b []byte) ([]byte, error) {
	r := parse.NewBinaryReaderBytes(b)
	r.ByteOrder = binary.LittleEndian
	_ = r.ReadUint32()             // EOTSize
	fontDataSize := r.ReadUint32() // FontDataSize
	version := eotVersion(r.ReadUint32())
	if version != eotVersion1 && version != eotVersion20 && version != eotVersion22 {
		return nil, fmt.Errorf("%w: unsupported EOT version 0x%08X", ErrInvalidFontData, uint32(version))
	}
	flags := r.ReadUint32()       // Flags
	_ = r.ReadBytes(10)           // FontPANOSE
	_ = r.ReadUint8()             // Charset
	_ = r.ReadUint8()             // Italic
	_ = r.ReadUint32()            // Weight
	_ = r.ReadUint16()            // fsType
	magicNumber := r.ReadUint16() // MagicNumber
	if magicNumber != 0x504C {
		return nil, fmt.Errorf("%w: bad EOT magic number", ErrInvalidFontData)
	}
	_ = r.ReadBytes(24) // Unicode and CodePage ranges
	masterChecksum := r.ReadUint32()
	_ = r.ReadBytes(16) // Reserved
	_ = r.ReadUint16()  // Padding1

	familyNameSize := r.ReadUint16()       // FamilyNameSize
	_ = r.ReadBytes(int64(familyNameSize)) // FamilyName
	_ = r.ReadUint16()                     // Padding2

	styleNameSize := r.ReadUint16()       // StyleNameSize
	_ = r.ReadBytes(int64(styleNameSize)) // Stylename
	_ = r.ReadUint16()                    // Padding3

	versionNameSize := r.ReadUint16()       // VersionNameSize
	_ = r.ReadBytes(int64(versionNameSize)) // VersionName
	_ = r.ReadUint16()                      // Padding4

	fullNameSize := r.ReadUint16()       // FullNameSize
	_ = r.ReadBytes(int64(fullNameSize)) // FullName

	if version == eotVersion20 || version == eotVersion22 {
		_ = r.ReadUint16()                     // Padding5
		rootStringSize := r.ReadUint16()       // RootStringSize
		_ = r.ReadBytes(int64(rootStringSize)) // RootString
	}
	if version == eotVersion22 {
		_ = r.ReadUint32()                    // RootStringCheckSum
		_ = r.ReadUint32()                    // EUDCCodePage
		_ = r.ReadUint16()                    // Padding6
		signatureSize := r.ReadUint16()       // SignatureSize
		_ = r.ReadBytes(int64(signatureSize)) // Signature
		_ = r.ReadUint32()                    // EUDCFlags
		eudcFontSize := r.ReadUint32()        // EUDCFontSize
		_ = r.ReadBytes(int64(eudcFontSize))  // EUDCFontData
	}

	fontData := r.ReadBytes(int64(fontDataSize))
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: truncated EOT wrapper", ErrInvalidFontData)
	}

	isCompressed := flags&0x00000004 != 0
	isXORed := flags&0x10000000 != 0

	if isXORed {
		for i := range fontData {
			fontData[i] ^= 0x50
		}
	}
	if isCompressed {
		// TODO: (EOT) MicroType Express decompression, see
		// https://www.w3.org/Submission/MTX/ -- no pack dependency
		// implements it, so compressed EOT input is rejected rather
		// than silently mishandled.
		return nil, fmt.Errorf("%w: MicroType Express compressed EOT is not supported", ErrInvalidFontData)
	}

	if _, err := ParseSFNT(fontData); err != nil {
		return nil, fmt.Errorf("EOT: embedded sfnt: %w", err)
	}
	_ = masterChecksum // covers EOT-wrapper fields (names, PANOSE, ...) this decoder discards, not the sfnt payload

	return fontData, nil
}
