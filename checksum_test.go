package woff

import (
	"encoding/binary"
	"testing"

	"github.com/tdewolff/test"
)

func TestTableChecksum(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x02}
	test.T(t, tableChecksum("cmap", data), uint32(0x00010002))
}

func TestTableChecksumPadsToFour(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00}
	padded := tableChecksum("cmap", data)
	test.T(t, padded, uint32(0x00010000))
}

func TestTableChecksumZeroesHeadAdjustment(t *testing.T) {
	head := make([]byte, 16)
	binary.BigEndian.PutUint32(head[8:12], 0xDEADBEEF)
	withAdjustment := tableChecksum("head", head)

	head2 := make([]byte, 16)
	zeroed := tableChecksum("head", head2)
	test.T(t, withAdjustment, zeroed)
}

func TestSfntOffsets(t *testing.T) {
	searchRange, entrySelector, rangeShift := sfntOffsets(9)
	test.T(t, searchRange, uint16(128))
	test.T(t, entrySelector, uint16(3))
	test.T(t, rangeShift, uint16(9*16-128))
}

func makeHeadTable(adjustment uint32) []byte {
	head := make([]byte, 54)
	head[0] = 0x00
	head[1] = 0x01
	binary.BigEndian.PutUint32(head[8:12], adjustment)
	return head
}

func TestHeadCheckSumAdjustmentRoundTrip(t *testing.T) {
	tables := []Table{
		{Tag: "head", Data: makeHeadTable(0)},
		{Tag: "cmap", Data: []byte{0x00, 0x00, 0x00, 0x01}},
		{Tag: "maxp", Data: []byte{0x00, 0x01, 0x00, 0x00}},
	}
	adjustment, err := headCheckSumAdjustment(0x00010000, tables)
	test.Error(t, err)

	tables[0].Data = makeHeadTable(adjustment)
	sfnt, err := synthesizeSFNT(0x00010000, tables)
	test.Error(t, err)

	// The whole-file checksum, with checkSumAdjustment baked in, must equal
	// the magic constant modulo 2^32.
	total := calcChecksum(padToMultipleOf4(sfnt))
	test.T(t, total, uint32(0xB1B0AFBA))
}

func TestHeadCheckSumAdjustmentDependsOnFlavor(t *testing.T) {
	tables := []Table{
		{Tag: "head", Data: makeHeadTable(0)},
		{Tag: "cmap", Data: []byte{0x00, 0x00, 0x00, 0x01}},
	}
	adjustmentTrueType, err := headCheckSumAdjustment(0x00010000, tables)
	test.Error(t, err)
	adjustmentOTTO, err := headCheckSumAdjustment(0x4F54544F, tables)
	test.Error(t, err)
	if adjustmentTrueType == adjustmentOTTO {
		test.Fail(t, "checkSumAdjustment must depend on the target flavor")
	}
}

func TestPad4(t *testing.T) {
	test.T(t, pad4(0), uint32(0))
	test.T(t, pad4(1), uint32(4))
	test.T(t, pad4(4), uint32(4))
	test.T(t, pad4(5), uint32(8))
}
