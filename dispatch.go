package woff

import (
	"encoding/binary"
	"fmt"
)

// MediaType returns the sniffed media type (MIME) for a font byte stream,
// recognising WOFF 1.0, WOFF2, EOT, and bare sfnt (TrueType/OpenType/
// collection). Grounded on the sibling example repo's font.MediaType,
// the most directly analogous known-good format sniffer in the pack.
func MediaType(b []byte) (string, error) {
	if len(b) < 4 {
		return "", fmt.Errorf("empty font file")
	}
	tag := string(b[:4])
	switch {
	case tag == "wOFF":
		return "font/woff", nil
	case tag == "wOF2":
		return "font/woff2", nil
	case tag == "true" || tag == "ttcf" || binary.BigEndian.Uint32(b[:4]) == 0x00010000:
		return "font/truetype", nil
	case tag == "OTTO":
		return "font/opentype", nil
	case 36 < len(b) && binary.LittleEndian.Uint16(b[34:36]) == 0x504C:
		return "font/eot", nil
	}
	return "", fmt.Errorf("unrecognized font file format")
}

// Extension returns the conventional file extension for a font byte
// stream, or "" if the format is not recognised.
func Extension(b []byte) string {
	mediatype, err := MediaType(b)
	if err != nil {
		return ""
	}
	switch mediatype {
	case "font/truetype":
		return ".ttf"
	case "font/opentype":
		return ".otf"
	case "font/woff":
		return ".woff"
	case "font/woff2":
		return ".woff2"
	case "font/eot":
		return ".eot"
	}
	return ""
}

// ToSFNT normalises any of WOFF 1.0/WOFF2/EOT/bare sfnt input into plain
// sfnt (TTF/OTF) bytes, dispatching to ParseWOFF1 (this package), and the
// retained decode-only ParseWOFF2/ParseEOT for the other two container
// formats.
func ToSFNT(b []byte) ([]byte, error) {
	mediatype, err := MediaType(b)
	if err != nil {
		return nil, err
	}
	switch mediatype {
	case "font/truetype", "font/opentype":
		return b, nil
	case "font/woff":
		sfnt, err := ParseWOFF1(b)
		if err != nil {
			return nil, fmt.Errorf("WOFF: %w", err)
		}
		return sfnt, nil
	case "font/woff2":
		sfnt, err := ParseWOFF2(b)
		if err != nil {
			return nil, fmt.Errorf("WOFF2: %w", err)
		}
		return sfnt, nil
	case "font/eot":
		sfnt, err := ParseEOT(b)
		if err != nil {
			return nil, fmt.Errorf("EOT: %w", err)
		}
		return sfnt, nil
	}
	return nil, fmt.Errorf("unrecognized font file format")
}
