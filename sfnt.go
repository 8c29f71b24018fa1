package woff

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// ParseSFNT parses a bare sfnt byte stream (TrueType or OpenType, not a
// collection) into a Font whose tables are exactly the ones carried by the
// sfnt table directory, ready for Font.Save into a WOFF writer. It performs
// only the structural parse the WOFF conversion path needs, not a semantic
// parse of any table's contents.
func ParseSFNT(b []byte) (*Font, error) {
	if len(b) < 12 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	sfntVersion := r.ReadString(4)
	flavor := binary.BigEndian.Uint32([]byte(sfntVersion))
	if sfntVersion != "OTTO" && sfntVersion != "true" && flavor != 0x00010000 {
		return nil, fmt.Errorf("%w: bad sfnt version", ErrInvalidFontData)
	}

	numTables := r.ReadUint16()
	_ = r.ReadUint16() // searchRange
	_ = r.ReadUint16() // entrySelector
	_ = r.ReadUint16() // rangeShift
	if r.Len() < 16*uint32(numTables) {
		return nil, ErrInvalidFontData
	}

	f := NewFont(flavor, 1, 0)
	for i := 0; i < int(numTables); i++ {
		tag := r.ReadString(4)
		_ = r.ReadUint32() // checksum, recomputed on write
		offset := r.ReadUint32()
		length := r.ReadUint32()
		if uint32(len(b)) <= offset || uint32(len(b))-offset < length {
			return nil, fmt.Errorf("%w: %q: table extends beyond the file", ErrInvalidFontData, tag)
		}
		f.SetTableBytes(tag, b[offset:offset+length:offset+length])
	}
	return f, nil
}
