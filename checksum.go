package woff

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// Table is a single sfnt/WOFF table: a four-byte tag and its uncompressed
// bytes.
type Table struct {
	Tag  string
	Data []byte
}

// tableChecksum sums data (zero-padded to a multiple of four) as big-endian
// uint32 words. For the head table the checkSumAdjustment field (bytes
// 8:12) is treated as zero regardless of its actual stored value.
func tableChecksum(tag string, data []byte) uint32 {
	b := data
	if tag == "head" && len(b) >= 12 {
		b = append([]byte(nil), data...)
		binary.BigEndian.PutUint32(b[8:12], 0)
	}
	if n := len(b) % 4; n != 0 {
		b = append(b, make([]byte, 4-n)...)
	}
	return calcChecksum(b)
}

// sfntOffsets returns searchRange, entrySelector and rangeShift for n
// tables, as defined by the sfnt offset subtable.
func sfntOffsets(n uint16) (searchRange, entrySelector, rangeShift uint16) {
	searchRange = 1
	for searchRange*2 <= n {
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16
	rangeShift = n*16 - searchRange
	return
}

// synthesizeSFNT assembles the equivalent bare sfnt byte stream for tables:
// a freshly built sfnt header and tag-ascending directory, followed by the
// padded table bodies in directory order. If a head table is present, its
// checkSumAdjustment field (bytes 8:12) is overwritten so that the sum of
// every table checksum plus the header+directory checksum, added to the
// adjustment, equals 0xB1B0AFBA mod 2^32 -- the same derivation the
// teacher's WOFF2/sfnt synthesis loops rely on.
func synthesizeSFNT(flavor uint32, tables []Table) ([]byte, error) {
	sorted := append([]Table(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })

	n := uint16(len(sorted))
	searchRange, entrySelector, rangeShift := sfntOffsets(n)

	headerSize := uint32(12 + 16*len(sorted))
	w := parse.NewBinaryWriter(make([]byte, 0, headerSize))
	w.WriteUint32(flavor)
	w.WriteUint16(n)
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(rangeShift)

	offsets := make([]uint32, len(sorted))
	checksums := make([]uint32, len(sorted))
	offset := headerSize
	for i, t := range sorted {
		offsets[i] = offset
		checksums[i] = tableChecksum(t.Tag, t.Data)
		offset += pad4(uint32(len(t.Data)))
	}
	for i, t := range sorted {
		w.WriteString(t.Tag)
		w.WriteUint32(checksums[i])
		w.WriteUint32(offsets[i])
		w.WriteUint32(uint32(len(t.Data)))
	}

	headerChecksum := calcChecksum(padToMultipleOf4(w.Bytes()))
	total := headerChecksum
	for _, c := range checksums {
		total += c
	}
	adjustment := uint32(0xB1B0AFBA) - total

	for _, t := range sorted {
		data := t.Data
		if t.Tag == "head" {
			if len(data) < 12 {
				return nil, fmt.Errorf("head: %w", ErrInvalidFontData)
			}
			data = append([]byte(nil), data...)
			binary.BigEndian.PutUint32(data[8:12], adjustment)
		}
		w.WriteBytes(data)
		if n := pad4(uint32(len(data))) - uint32(len(data)); n != 0 {
			w.WriteBytes(make([]byte, n))
		}
	}
	return w.Bytes(), nil
}

// headCheckSumAdjustment derives the adjustment value a head table would
// need so that the equivalent synthesised sfnt's overall checksum equals
// 0xB1B0AFBA, without requiring tables[i] for "head" to already carry it.
// flavor must match the sfnt version tag the table set will actually be
// packaged under: it is part of the synthesised header and therefore part
// of the checksum being solved for.
func headCheckSumAdjustment(flavor uint32, tables []Table) (uint32, error) {
	sfnt, err := synthesizeSFNT(flavor, tables)
	if err != nil {
		return 0, err
	}
	if len(sfnt) < 12 {
		return 0, ErrInvalidFontData
	}
	n := binary.BigEndian.Uint16(sfnt[4:6])
	for i := 0; i < int(n); i++ {
		entry := sfnt[12+16*i:]
		if string(entry[:4]) == "head" {
			headOffset := binary.BigEndian.Uint32(entry[8:12])
			if uint64(headOffset)+12 > uint64(len(sfnt)) {
				return 0, ErrInvalidFontData
			}
			return binary.BigEndian.Uint32(sfnt[headOffset+8 : headOffset+12]), nil
		}
	}
	return 0, fmt.Errorf("head: %w", ErrInvalidFontData)
}

func padToMultipleOf4(b []byte) []byte {
	if n := len(b) % 4; n != 0 {
		b = append(b, make([]byte, 4-n)...)
	}
	return b
}
