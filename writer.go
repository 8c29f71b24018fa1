package woff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// preferredTableOrder is the fixed table-body ordering WOFF encoders
// traditionally apply to sfnt-wrapped TrueType/OpenType fonts so that the
// tables needed earliest during layout (head, hhea, maxp, the metrics
// tables, cmap) sit first in the file. Tables not named here keep their
// relative insertion order, appended after the known ones.
var preferredTableOrder = []string{
	"head", "hhea", "maxp", "OS/2", "hmtx", "LTSH", "VDMX", "hdmx", "cmap",
	"fpgm", "prep", "cvt ", "loca", "glyf", "kern", "name", "post", "gasp",
	"PCLT", "DSIG", "CFF ", "VORG", "EBDT", "EBLC", "EBSC", "BASE", "GSUB",
	"GPOS", "GDEF", "JSTF",
}

func reorderOTF(tables []Table) []Table {
	priority := make(map[string]int, len(preferredTableOrder))
	for i, tag := range preferredTableOrder {
		priority[tag] = i
	}
	sorted := append([]Table(nil), tables...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, oki := priority[sorted[i].Tag]
		pj, okj := priority[sorted[j].Tag]
		if oki && okj {
			return pi < pj
		}
		return oki && !okj
	})
	return sorted
}

// PrecompressedForm lets a caller hand SetTable an already-compressed body
// instead of letting the writer deflate the table itself (§6: "setTable(tag,
// bytes [, precompressedForm])"). Close still derives origLength and
// origChecksum from the uncompressed bytes passed to SetTable and compares
// them against OrigLength/OrigChecksum here -- any mismatch, or a CompBody
// that does not decompress back to OrigLength, or CompLength exceeding
// OrigLength, fails ErrConformanceFailure (§7) rather than being trusted.
type PrecompressedForm struct {
	OrigLength   uint32
	OrigChecksum uint32
	CompLength   uint32
	CompBody     []byte
}

// Writer emits a WOFF 1.0 byte stream from a set of tables, optional
// metadata and optional private data (§4.5). Construct with NewWriter,
// add content with SetTable/SetMetadata/SetPrivateData, then Close to
// validate and emit.
type Writer struct {
	NumTables             int
	Flavor                uint32
	MajorVersion          uint16
	MinorVersion          uint16
	CompressionLevel      int
	RecomputeHeadChecksum bool
	ReorderTables         bool

	w             io.Writer
	tables        []Table
	byTag         map[string]int
	precompressed map[string]PrecompressedForm
	metadata      []byte
	metadataTree  *MetadataElement
	privateData   []byte
}

// NewWriter returns a Writer that will emit numTables tables to w once
// Close is called. RecomputeHeadChecksum and ReorderTables default to
// true; CompressionLevel defaults to 9.
func NewWriter(w io.Writer, numTables int, flavor uint32, majorVersion, minorVersion uint16) *Writer {
	return &Writer{
		NumTables:             numTables,
		Flavor:                flavor,
		MajorVersion:          majorVersion,
		MinorVersion:          minorVersion,
		CompressionLevel:      DefaultCompressionLevel,
		RecomputeHeadChecksum: true,
		ReorderTables:         true,
		w:                     w,
		byTag:                 map[string]int{},
	}
}

// SetTable adds or replaces tag's uncompressed bytes. Table order as seen
// by SetTable calls is the "caller-supplied order" used when
// ReorderTables is false.
//
// An optional PrecompressedForm lets the caller hand the writer a body it
// has already compressed itself, instead of letting Close deflate data
// fresh; Close still verifies it against data's own length and checksum
// (§4.5's conformance self-check) rather than trusting it outright. At
// most one PrecompressedForm may be given; passing more than one panics.
func (w *Writer) SetTable(tag string, data []byte, precompressed ...PrecompressedForm) {
	if idx, ok := w.byTag[tag]; ok {
		w.tables[idx].Data = data
	} else {
		w.byTag[tag] = len(w.tables)
		w.tables = append(w.tables, Table{Tag: tag, Data: data})
	}
	switch len(precompressed) {
	case 0:
		delete(w.precompressed, tag)
	case 1:
		if w.precompressed == nil {
			w.precompressed = map[string]PrecompressedForm{}
		}
		w.precompressed[tag] = precompressed[0]
	default:
		panic("SetTable: at most one PrecompressedForm may be given")
	}
}

// SetMetadata sets the uncompressed metadata XML bytes directly.
func (w *Writer) SetMetadata(b []byte) {
	w.metadata = b
	w.metadataTree = nil
}

// SetMetadataTree sets the metadata from a parsed tree; Close serialises
// it with SerializeMetadata, which always prepends the XML declaration.
func (w *Writer) SetMetadataTree(tree *MetadataElement) {
	w.metadataTree = tree
	w.metadata = nil
}

// SetPrivateData sets the opaque private-data bytes.
func (w *Writer) SetPrivateData(b []byte) {
	w.privateData = b
}

// Close validates the accumulated tables/metadata/private data, lays out
// and emits the WOFF file to the writer's sink, and returns any
// structural or conformance failure. It does not close the underlying
// sink -- the caller owns it (§5).
func (w *Writer) Close() error {
	if len(w.tables) != w.NumTables {
		return fmt.Errorf("%w: constructed for %d tables, got %d", ErrWrongTableCount, w.NumTables, len(w.tables))
	}

	hasDSIG := false
	for _, t := range w.tables {
		if t.Tag == "DSIG" {
			hasDSIG = true
			break
		}
	}
	if hasDSIG && (w.ReorderTables || w.RecomputeHeadChecksum) {
		return ErrDsigRequiresFixedLayout
	}

	level := w.CompressionLevel
	if level == 0 {
		level = DefaultCompressionLevel
	}

	headIdx := -1
	for i, t := range w.tables {
		if t.Tag == "head" {
			headIdx = i
			break
		}
	}

	origLength := make(map[string]uint32, len(w.tables))
	origChecksum := make(map[string]uint32, len(w.tables))
	compBody := make(map[string][]byte, len(w.tables))
	compLength := make(map[string]uint32, len(w.tables))
	finalData := make(map[string][]byte, len(w.tables))

	for i, t := range w.tables {
		if i == headIdx {
			continue // deferred until the adjustment is known
		}
		finalData[t.Tag] = t.Data
		if pf, ok := w.precompressed[t.Tag]; ok {
			origLength[t.Tag] = pf.OrigLength
			origChecksum[t.Tag] = pf.OrigChecksum
			compBody[t.Tag] = pf.CompBody
			compLength[t.Tag] = pf.CompLength
			continue
		}
		origLength[t.Tag] = uint32(len(t.Data))
		origChecksum[t.Tag] = tableChecksum(t.Tag, t.Data)
		body, n, err := compressTable(t.Data, level)
		if err != nil {
			return err
		}
		compBody[t.Tag] = body
		compLength[t.Tag] = n
	}

	if headIdx >= 0 {
		headData := append([]byte(nil), w.tables[headIdx].Data...)
		if len(headData) < 12 {
			return fmt.Errorf("head: %w", ErrConformanceFailure)
		}
		if w.RecomputeHeadChecksum {
			adjustment, err := headCheckSumAdjustment(w.Flavor, w.tables)
			if err != nil {
				return err
			}
			binary.BigEndian.PutUint32(headData[8:12], adjustment)
		}
		finalData["head"] = headData
		if pf, ok := w.precompressed["head"]; ok && !w.RecomputeHeadChecksum {
			origLength["head"] = pf.OrigLength
			origChecksum["head"] = pf.OrigChecksum
			compBody["head"] = pf.CompBody
			compLength["head"] = pf.CompLength
		} else {
			origLength["head"] = uint32(len(headData))
			origChecksum["head"] = tableChecksum("head", headData)
			body, n, err := compressTable(headData, level)
			if err != nil {
				return err
			}
			compBody["head"] = body
			compLength["head"] = n
		}
	}

	// Conformance self-check (§4.5): compLength <= origLength, the
	// compressed body round-trips to the expected length, and the
	// checksum matches the uncompressed bytes. For a self-compressed
	// table this is always true by construction; it only has teeth
	// against a PrecompressedForm a caller supplied via SetTable, whose
	// claimed origLength/origChecksum/compLength/compBody are untrusted
	// until checked here.
	for _, t := range w.tables {
		tag := t.Tag
		if compLength[tag] > origLength[tag] {
			return fmt.Errorf("%s: %w", tag, ErrConformanceFailure)
		}
		if uint32(len(finalData[tag])) != origLength[tag] {
			return fmt.Errorf("%s: %w", tag, ErrConformanceFailure)
		}
		var decoded []byte
		if compLength[tag] < origLength[tag] {
			var err error
			decoded, err = inflate(compBody[tag])
			if err != nil {
				return fmt.Errorf("%s: %w", tag, ErrConformanceFailure)
			}
		} else {
			decoded = compBody[tag]
		}
		if uint32(len(decoded)) != origLength[tag] {
			return fmt.Errorf("%s: %w", tag, ErrConformanceFailure)
		}
		if tableChecksum(tag, finalData[tag]) != origChecksum[tag] {
			return fmt.Errorf("%s: %w", tag, ErrConformanceFailure)
		}
	}

	writeOrder := append([]Table(nil), w.tables...)
	if w.ReorderTables {
		writeOrder = reorderOTF(writeOrder)
	}

	sortedTags := make([]string, len(w.tables))
	for i, t := range w.tables {
		sortedTags[i] = t.Tag
	}
	sort.Strings(sortedTags)

	headerSize := uint32(44 + 20*len(w.tables))
	bodyOffset := make(map[string]uint32, len(w.tables))
	offset := headerSize
	for _, t := range writeOrder {
		bodyOffset[t.Tag] = offset
		offset += pad4(compLength[t.Tag])
	}
	tableEnd := offset

	totalSfntSize := uint32(12 + 16*len(w.tables))
	for _, tag := range sortedTags {
		totalSfntSize += pad4(origLength[tag])
	}

	metaBytes := w.metadata
	if w.metadataTree != nil {
		metaBytes = SerializeMetadata(w.metadataTree)
	}
	var compMeta []byte
	var metaOffset, metaLength, metaOrigLength uint32
	if metaBytes != nil {
		metaOrigLength = uint32(len(metaBytes))
		var err error
		compMeta, err = deflate(metaBytes, level)
		if err != nil {
			return err
		}
		metaLength = uint32(len(compMeta))
		metaOffset = pad4(tableEnd)
	}

	end := tableEnd
	if metaBytes != nil {
		end = metaOffset + metaLength
	}
	var privOffset uint32
	if w.privateData != nil {
		privOffset = pad4(end)
		end = privOffset + uint32(len(w.privateData))
	}
	length := end

	var buf bytes.Buffer
	hw := parse.NewBinaryWriter(make([]byte, 0, headerSize))
	hw.WriteString("wOFF")
	hw.WriteUint32(w.Flavor)
	hw.WriteUint32(length)
	hw.WriteUint16(uint16(len(w.tables)))
	hw.WriteUint16(0) // reserved
	hw.WriteUint32(totalSfntSize)
	hw.WriteUint16(w.MajorVersion)
	hw.WriteUint16(w.MinorVersion)
	hw.WriteUint32(metaOffset)
	hw.WriteUint32(metaLength)
	hw.WriteUint32(metaOrigLength)
	hw.WriteUint32(privOffset)
	hw.WriteUint32(uint32(len(w.privateData)))
	for _, tag := range sortedTags {
		hw.WriteString(tag)
		hw.WriteUint32(bodyOffset[tag])
		hw.WriteUint32(compLength[tag])
		hw.WriteUint32(origLength[tag])
		hw.WriteUint32(origChecksum[tag])
	}
	buf.Write(hw.Bytes())

	for _, t := range writeOrder {
		buf.Write(compBody[t.Tag])
		if n := pad4(compLength[t.Tag]) - compLength[t.Tag]; n != 0 {
			buf.Write(make([]byte, n))
		}
	}
	if metaBytes != nil {
		if gap := int64(metaOffset) - int64(tableEnd); gap > 0 {
			buf.Write(make([]byte, gap))
		}
		buf.Write(compMeta)
	}
	if w.privateData != nil {
		priorEnd := tableEnd
		if metaBytes != nil {
			priorEnd = metaOffset + metaLength
		}
		if gap := int64(privOffset) - int64(priorEnd); gap > 0 {
			buf.Write(make([]byte, gap))
		}
		buf.Write(w.privateData)
	}

	_, err := w.w.Write(buf.Bytes())
	return err
}
